package rest

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionClosed is returned when submitting to a closed session.
var ErrSessionClosed = errors.New("session is closed")

// TransportError reports a failed HTTP round trip. It is never retried here.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that does not match the expected type.
type DecodeError struct {
	Bucket     string
	Type       string
	StatusCode int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s response for %s (status %d): %v", e.Type, e.Bucket, e.StatusCode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MissingHeaderError reports an absent or malformed rate-limit header on a
// rate-limited route.
type MissingHeaderError struct {
	Header string
	Value  string
	Bucket string
}

func (e *MissingHeaderError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("missing %s header for %s", e.Header, e.Bucket)
	}
	return fmt.Sprintf("invalid %s header %q for %s", e.Header, e.Value, e.Bucket)
}

// APIError is an error body returned by the platform with a 4xx/5xx status.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != 0 {
		return fmt.Sprintf("api error %d (code %d): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, msg)
}
