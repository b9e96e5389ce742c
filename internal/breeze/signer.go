package breeze

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// TimestampLayout renders UTC wall-clock time with the millisecond field
// pinned to zero, exactly as the API's signing scheme expects. The clock is
// truncated to the second first, never rounded.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Checksum computes the request-signing token: the SHA-256 hex digest of the
// plain concatenation timestamp+body+secret, no delimiters. The
// concatenation order is mandated by the API.
func Checksum(timestamp, body, secret string) string {
	sum := sha256.Sum256([]byte(timestamp + body + secret))
	return hex.EncodeToString(sum[:])
}

// SignedRequest carries everything needed to issue one authenticated call.
// The body string here is the exact byte sequence the checksum was computed
// over; transmitting anything re-serialized from it invalidates the
// signature.
type SignedRequest struct {
	Body      string
	Timestamp string
	Checksum  string
	Headers   map[string]string
}

// Signer derives SignedRequests from credentials and a wall clock. The
// clock is injectable so tests can freeze it.
type Signer struct {
	creds Credentials
	now   func() time.Time
}

type SignerOption func(*Signer)

// WithClock replaces the wall-clock source.
func WithClock(now func() time.Time) SignerOption {
	return func(s *Signer) { s.now = now }
}

func NewSigner(creds Credentials, opts ...SignerOption) *Signer {
	s := &Signer{
		creds: creds,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sign produces a SignedRequest for the given canonical body. It fails with
// ErrMissingCredential before touching the clock if no session token is
// present. Each call stamps the current time, so a SignedRequest must not be
// reused for retries.
func (s *Signer) Sign(body string) (*SignedRequest, error) {
	if s.creds.SessionToken == "" {
		return nil, ErrMissingCredential
	}

	ts := s.now().UTC().Truncate(time.Second).Format(TimestampLayout)
	sum := Checksum(ts, body, s.creds.AppSecret)

	return &SignedRequest{
		Body:      body,
		Timestamp: ts,
		Checksum:  sum,
		Headers: map[string]string{
			"Content-Type": "application/json",
			// The literal word "token" plus a space is a quirk of
			// the API, not an encoding scheme.
			"X-Checksum":     "token " + sum,
			"X-Timestamp":    ts,
			"X-AppKey":       s.creds.AppKey,
			"X-SessionToken": s.creds.SessionToken,
		},
	}, nil
}

// encodeBody serializes a wire payload in canonical form. encoding/json
// emits struct fields in declaration order with "," and ":" separators and
// no whitespace, which is exactly the byte form the checksum is computed
// over.
func encodeBody(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode request body: %w", err)
	}
	return string(data), nil
}
