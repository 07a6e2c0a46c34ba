package unifi

import (
	"context"
	"net/http"
	"net/url"

	"github.com/cockroachdb/errors"
)

// Variant identifies which of the two supported controller deployment
// styles is in use. The login endpoint, API path prefix, and the statuses
// that signal session expiry all differ between them.
type Variant int

const (
	// VariantUnknown means the variant has not been detected yet.
	VariantUnknown Variant = iota

	// VariantLegacy is the standalone Network controller software
	// (self-hosted, typically on port 8443).
	VariantLegacy

	// VariantUniFiOS is a UniFi OS console (UDM, Cloud Key Gen2, ...)
	// hosting the Network application behind /proxy/network.
	VariantUniFiOS
)

func (v Variant) String() string {
	switch v {
	case VariantLegacy:
		return "legacy"
	case VariantUniFiOS:
		return "unifi-os"
	default:
		return "unknown"
	}
}

// loginPath returns the variant-specific login endpoint.
func (v Variant) loginPath() string {
	if v == VariantUniFiOS {
		return "/api/auth/login"
	}
	return "/api/login"
}

// apiPrefix returns the path prefix for Network application endpoints.
func (v Variant) apiPrefix() string {
	if v == VariantUniFiOS {
		return "/proxy/network"
	}
	return ""
}

// sessionExpiredStatus reports whether an HTTP status on a non-login
// request signals an invalid session. 401 does on both variants; UniFi OS
// additionally answers 403 for expired sessions, while on legacy
// controllers 403 is a genuine permission error and must not trigger
// re-authentication.
func (v Variant) sessionExpiredStatus(code int) bool {
	if code == http.StatusUnauthorized {
		return true
	}
	return v == VariantUniFiOS && code == http.StatusForbidden
}

// detectVariant probes the controller root with a HEAD request. UniFi OS
// consoles answer 200; the legacy controller answers with a redirect or
// 304. The result is cached on the session for the client's lifetime.
func detectVariant(ctx context.Context, doer interface {
	Do(*http.Request) (*http.Response, error)
}, base *url.URL,
) (Variant, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, base.String(), nil)
	if err != nil {
		return VariantUnknown, errors.Wrap(err, "building probe request")
	}

	resp, err := doer.Do(req)
	if err != nil {
		return VariantUnknown, &TransportError{Err: errors.Wrap(err, "controller probe failed")}
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		return VariantUniFiOS, nil
	}
	return VariantLegacy, nil
}
