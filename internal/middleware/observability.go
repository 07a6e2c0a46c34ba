package middleware

import (
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/fedibtc/unifi-client/observability"
)

// Observability returns a middleware that logs and records metrics for HTTP requests.
func Observability(logger observability.Logger, metrics observability.MetricsRecorder) func(http.RoundTripper) http.RoundTripper {
	if logger == nil {
		logger = observability.NoopLogger()
	}
	if metrics == nil {
		metrics = observability.NoopMetricsRecorder()
	}

	return func(next http.RoundTripper) http.RoundTripper {
		return &observabilityTransport{
			next:    next,
			logger:  logger,
			metrics: metrics,
		}
	}
}

type observabilityTransport struct {
	next    http.RoundTripper
	logger  observability.Logger
	metrics observability.MetricsRecorder
}

func (t *observabilityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	// Compute URL string once to avoid multiple allocations
	urlStr := req.URL.String()

	// Log request
	t.logger.Debug("http request started",
		observability.Field{Key: "method", Value: req.Method},
		observability.Field{Key: "url", Value: urlStr},
		observability.Field{Key: "path", Value: req.URL.Path},
	)

	// Make request
	resp, err := t.next.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		// Log error
		t.logger.Error("http request failed",
			observability.Field{Key: "method", Value: req.Method},
			observability.Field{Key: "url", Value: urlStr},
			observability.Field{Key: "duration", Value: duration},
			observability.Field{Key: "error", Value: err.Error()},
		)

		t.metrics.RecordError("http_request", "NetworkError")

		//nolint:wrapcheck // Observability middleware logs error but passes it through unchanged
		return nil, err
	}

	// Log response
	fields := []observability.Field{
		{Key: "method", Value: req.Method},
		{Key: "url", Value: urlStr},
		{Key: "status", Value: resp.StatusCode},
		{Key: "duration", Value: duration},
	}

	if resp.StatusCode >= http.StatusBadRequest {
		t.logger.Warn("http request completed with error", fields...)
	} else {
		t.logger.Debug("http request completed", fields...)
	}

	// Record metrics with normalized path to avoid unbounded cardinality
	normalizedPath := normalizePath(req.URL.Path)
	t.metrics.RecordHTTPRequest(req.Method, normalizedPath, resp.StatusCode, duration)

	return resp, nil
}

var (
	// objectIDPattern matches the 24-hex-digit ObjectIDs the controller
	// uses for vouchers, guests, and sites.
	objectIDPattern = regexp.MustCompile(`[0-9a-f]{24}`)
	// macPattern matches MAC addresses embedded in stat paths
	// (e.g. /stat/user/00:11:22:33:44:55).
	macPattern = regexp.MustCompile(`(?i)(?:[0-9a-f]{2}:){5}[0-9a-f]{2}`)
	// sitePattern matches the site segment in classic controller paths:
	// /api/s/{site}/... on legacy, /proxy/network/api/s/{site}/... on
	// UniFi OS.
	sitePattern = regexp.MustCompile(`(/api/s/)[^/]+`)

	// normalizedPathCache caches normalized paths to avoid repeated regex
	// operations. Clients hit a small fixed set of endpoints, so nearly
	// every lookup after warm-up is a cache hit.
	normalizedPathCache sync.Map
)

// normalizePath replaces dynamic path segments (site names, MAC addresses,
// ObjectIDs) with placeholders to prevent unbounded cardinality in metrics.
//
// Examples:
//   - /api/s/default/stat/voucher → /api/s/:site/stat/voucher
//   - /api/s/default/stat/user/00:11:22:33:44:55 → /api/s/:site/stat/user/:mac
//   - /proxy/network/api/s/corp/rest/user/507f1f77bcf86cd799439011 → /proxy/network/api/s/:site/rest/user/:id
func normalizePath(path string) string {
	// Fast path: check cache
	if cached, ok := normalizedPathCache.Load(path); ok {
		//nolint:forcetypeassert // Cache only stores strings, type assertion is safe
		return cached.(string)
	}

	normalized := sitePattern.ReplaceAllString(path, "${1}:site")
	normalized = macPattern.ReplaceAllString(normalized, ":mac")
	normalized = objectIDPattern.ReplaceAllString(normalized, ":id")

	normalizedPathCache.Store(path, normalized)

	return normalized
}
