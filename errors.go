package unifi

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors. Match with errors.Is.
var (
	// ErrNotInitialized is returned by Instance before Initialize has run.
	ErrNotInitialized = errors.New("unifi: global client not initialized")

	// ErrAlreadyInitialized is returned by a second call to Initialize.
	ErrAlreadyInitialized = errors.New("unifi: global client already initialized")

	// ErrInvalidEndpoint is returned when an endpoint contains a query
	// string or fragment. Endpoints are paths only.
	ErrInvalidEndpoint = errors.New("unifi: invalid endpoint")
)

// ConfigError reports invalid client configuration. It is surfaced at
// construction time and never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid configuration: " + e.Reason
}

func configErrorf(format string, args ...any) error {
	return errors.WithStack(&ConfigError{Reason: fmt.Sprintf(format, args...)})
}

// AuthError reports a rejected login or a request that remained
// unauthorized after the single re-authentication attempt. The client does
// not retry further; recovering is the caller's decision.
type AuthError struct {
	// StatusCode is the HTTP status that signaled the failure, 0 when the
	// failure did not come from an HTTP response.
	StatusCode int

	Reason string
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Reason)
	}
	return "authentication failed: " + e.Reason
}

// APIError reports a non-authentication error response from the controller,
// either a 4xx/5xx status or an envelope with rc != "ok". The controller's
// message is carried verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Message)
}

// TransportError reports a network-level failure (connection, TLS,
// timeout). It is surfaced unchanged and never confused with an
// authorization failure; this layer applies no retry to it.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport error: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError reports a response body that did not match the expected
// shape, distinct from APIError so callers can tell "server said no" apart
// from "server said something unparseable".
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %s", e.Endpoint, e.Err.Error())
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
