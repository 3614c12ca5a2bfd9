package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Sentinels for errors.Is. Every typed error in this package matches
// exactly one of them, and a timeout NetworkError additionally matches
// ErrTimeout.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNetwork      = errors.New("network error")
	ErrTimeout      = errors.New("request timed out")
	ErrHTTPStatus   = errors.New("unexpected http status")
	ErrContentType  = errors.New("unexpected content type")
	ErrEmptyBody    = errors.New("empty response body")
)

// InvalidInputError reports a missing or malformed target URL.
type InvalidInputError struct {
	Input  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	if e.Input == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid input %q: %s", e.Input, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }

// NetworkError reports a failure to complete the HTTP exchange.
type NetworkError struct {
	URL     string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("request to %s timed out: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Is reports whether target is ErrNetwork, or ErrTimeout for a timeout.
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork || (e.Timeout && target == ErrTimeout)
}

// HTTPStatusError reports a response status outside 2xx.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	// Details carries the error message of a relay envelope, if any.
	Details string
}

func (e *HTTPStatusError) Error() string {
	msg := fmt.Sprintf("HTTP error! status: %d (%s)", e.StatusCode, e.URL)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// Is reports whether target is ErrHTTPStatus.
func (e *HTTPStatusError) Is(target error) bool { return target == ErrHTTPStatus }

// ContentTypeError reports a response that is not HTML.
type ContentTypeError struct {
	URL         string
	ContentType string
	// Encoding is set when the body used an unsupported Content-Encoding.
	Encoding string
}

func (e *ContentTypeError) Error() string {
	if e.Encoding != "" {
		return fmt.Sprintf("unsupported content encoding %q from %s", e.Encoding, e.URL)
	}
	return fmt.Sprintf("expected HTML from %s, got content type %q", e.URL, e.ContentType)
}

// Is reports whether target is ErrContentType.
func (e *ContentTypeError) Is(target error) bool { return target == ErrContentType }

// EmptyBodyError reports a body that is empty or only whitespace.
type EmptyBodyError struct {
	URL string
}

func (e *EmptyBodyError) Error() string {
	return fmt.Sprintf("received empty HTML content from %s", e.URL)
}

// Is reports whether target is ErrEmptyBody.
func (e *EmptyBodyError) Is(target error) bool { return target == ErrEmptyBody }

// Retryable reports whether a fetch failure may succeed on another attempt,
// possibly with a different identity. Invalid input and cancellation by the
// caller are permanent.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrInvalidInput):
		return false
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrHTTPStatus),
		errors.Is(err, ErrContentType), errors.Is(err, ErrEmptyBody):
		return true
	default:
		return false
	}
}
