// Package observability provides interfaces for logging and metrics
// collection in the unifi-client library.
//
// This package defines standard interfaces that allow users to integrate
// their own logging and metrics implementations with the controller client.
//
// # Logger Interface
//
// The Logger interface supports structured logging with key-value pairs:
//
//	logger := myCustomLogger{} // implements observability.Logger
//	client, err := unifi.New(&unifi.ClientConfig{
//		ControllerURL: url,
//		Username:      user,
//		Logger:        logger,
//	})
//
// Supported log levels:
//   - Debug: Detailed diagnostic information
//   - Info: General informational messages
//   - Warn: Warning messages for potentially problematic situations
//   - Error: Error messages for failures
//
// Credential material (passwords, session cookies, CSRF tokens) is never
// passed through a Field; the client redacts secrets before logging.
//
// # MetricsRecorder Interface
//
// The MetricsRecorder interface tracks API client metrics:
//
//	metrics := myMetricsRecorder{} // implements observability.MetricsRecorder
//	client, err := unifi.New(&unifi.ClientConfig{
//		ControllerURL: url,
//		Username:      user,
//		Metrics:       metrics,
//	})
//
// Tracked metrics include:
//   - HTTP request count, status codes, and duration
//   - Re-authentication events after session expiry
//   - Rate limiting events and wait times
//   - Error occurrences by type
//
// # Default Behavior
//
// If no logger or metrics recorder is provided, the client uses no-op
// implementations that discard all events. This ensures zero overhead
// when observability is not needed.
package observability
