package breeze

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"
)

func frozenClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestChecksumMatchesPlainConcatenation(t *testing.T) {
	ts := "2024-03-05T10:07:22.000Z"
	body := `{"stock_code":"RELIANCE","exchange_code":"NSE","product_type":"cash","right":"Others","strike_price":"0"}`
	secret := "app-secret-fixture"

	want := sha256.Sum256([]byte(ts + body + secret))
	if got := Checksum(ts, body, secret); got != hex.EncodeToString(want[:]) {
		t.Fatalf("Checksum = %s, want %s", got, hex.EncodeToString(want[:]))
	}
}

func TestChecksumSensitiveToEveryInput(t *testing.T) {
	base := Checksum("ts", "body", "secret")

	cases := []struct {
		name          string
		ts, body, sec string
	}{
		{"timestamp changed", "tS", "body", "secret"},
		{"body changed", "ts", "bodY", "secret"},
		{"secret changed", "ts", "body", "secreT"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Checksum(tc.ts, tc.body, tc.sec); got == base {
				t.Fatalf("checksum did not change for %s", tc.name)
			}
		})
	}
}

func TestSignIsDeterministicWithFrozenClock(t *testing.T) {
	now := time.Date(2024, 3, 5, 10, 7, 22, 843_000_000, time.UTC)
	signer := NewSigner(Credentials{
		AppKey:       "key",
		AppSecret:    "secret",
		SessionToken: "session",
	}, WithClock(frozenClock(now)))

	body := `{"stock_code":"RELIANCE","exchange_code":"NSE","product_type":"cash","right":"Others","strike_price":"0"}`

	first, err := signer.Sign(body)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	second, err := signer.Sign(body)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if first.Body != second.Body || first.Timestamp != second.Timestamp || first.Checksum != second.Checksum {
		t.Fatalf("signing is not deterministic: %+v vs %+v", first, second)
	}
	for k, v := range first.Headers {
		if second.Headers[k] != v {
			t.Fatalf("header %s differs: %q vs %q", k, v, second.Headers[k])
		}
	}
}

func TestSignTruncatesSubsecondsToZero(t *testing.T) {
	// 10:07:22.843 must become 10:07:22.000, truncated, never rounded up.
	now := time.Date(2024, 3, 5, 10, 7, 22, 843_000_000, time.UTC)
	signer := NewSigner(Credentials{AppSecret: "s", SessionToken: "tok"}, WithClock(frozenClock(now)))

	signed, err := signer.Sign("{}")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if signed.Timestamp != "2024-03-05T10:07:22.000Z" {
		t.Fatalf("Timestamp = %s, want 2024-03-05T10:07:22.000Z", signed.Timestamp)
	}
}

func TestSignHeaderSet(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	signer := NewSigner(Credentials{
		AppKey:       "the-app-key",
		AppSecret:    "the-secret",
		SessionToken: "the-session",
	}, WithClock(frozenClock(now)))

	signed, err := signer.Sign(`{"stock_code":"TCS"}`)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	want := map[string]string{
		"Content-Type":   "application/json",
		"X-Checksum":     "token " + signed.Checksum,
		"X-Timestamp":    "2024-01-02T03:04:05.000Z",
		"X-AppKey":       "the-app-key",
		"X-SessionToken": "the-session",
	}
	for k, v := range want {
		if signed.Headers[k] != v {
			t.Fatalf("header %s = %q, want %q", k, signed.Headers[k], v)
		}
	}
	if len(signed.Headers) != len(want) {
		t.Fatalf("unexpected extra headers: %v", signed.Headers)
	}
}

func TestSignRequiresSessionToken(t *testing.T) {
	signer := NewSigner(Credentials{AppKey: "k", AppSecret: "s"})
	if _, err := signer.Sign("{}"); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Sign without session token = %v, want ErrMissingCredential", err)
	}
}

func TestCanonicalQuoteBody(t *testing.T) {
	body, err := encodeBody(quoteBody{
		StockCode:    "RELIANCE",
		ExchangeCode: "NSE",
		ProductType:  "cash",
		Right:        "Others",
		StrikePrice:  "0",
	})
	if err != nil {
		t.Fatalf("encodeBody: %v", err)
	}

	want := `{"stock_code":"RELIANCE","exchange_code":"NSE","product_type":"cash","right":"Others","strike_price":"0"}`
	if body != want {
		t.Fatalf("canonical body mismatch:\n got %s\nwant %s", body, want)
	}
}

func TestCanonicalQuoteBodyOmitsOptionFields(t *testing.T) {
	body, err := encodeBody(quoteBody{
		StockCode:    "SBIN",
		ExchangeCode: "BSE",
		ProductType:  "cash",
	})
	if err != nil {
		t.Fatalf("encodeBody: %v", err)
	}

	want := `{"stock_code":"SBIN","exchange_code":"BSE","product_type":"cash"}`
	if body != want {
		t.Fatalf("body with omitted option fields:\n got %s\nwant %s", body, want)
	}
}
