package breeze

import (
	"errors"
	"fmt"
)

// Failure taxonomy for signed quote requests. Every failure the client can
// produce is one of these; callers pick them apart with errors.Is/errors.As
// and never see a raw transport fault.
var (
	// ErrMissingCredential is returned before any HTTP call when the
	// session token is absent. Retrying without a fresh login cannot
	// succeed.
	ErrMissingCredential = errors.New("breeze: session token not set, log in to obtain one")

	// ErrEmptyPayload is returned when the API reports success but the
	// payload carries no quote data.
	ErrEmptyPayload = errors.New("breeze: no data available for this instrument")
)

// TransportError wraps a network-level failure: connection refused, DNS,
// timeout. The request may be retried, but only with a freshly signed
// request, since the timestamp baked into the checksum has gone stale.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("breeze: request failed before a response was received: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// HTTPError is a non-2xx response. 4xx usually means a bad checksum or an
// expired session and needs re-authentication rather than a retry.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("breeze: server returned HTTP %d: %s", e.StatusCode, e.Body)
}

// DecodeError means the response body was not the JSON envelope the API is
// documented to return, which usually indicates a contract change.
type DecodeError struct {
	Raw   string
	Cause error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("breeze: response is not valid JSON: %v", e.Cause)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// APIError is an application-level failure reported inside the envelope.
// The broker's message is surfaced verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("breeze: broker rejected the request (status %d): %s", e.Status, e.Message)
}
