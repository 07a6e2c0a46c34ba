package middleware

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
)

// TLSConfig returns a middleware that installs config on the transport's
// TLS client. Self-hosted controllers almost never carry a publicly
// trusted certificate, so this is how the client trusts a console's own
// CA (CustomCA) or, as a last resort, skips verification entirely
// (InsecureSkipVerify).
func TLSConfig(config *tls.Config) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		transport, ok := next.(*http.Transport)
		if !ok {
			defaultTransport, ok := http.DefaultTransport.(*http.Transport)
			if !ok {
				return next
			}
			transport = defaultTransport.Clone()
			transport.ForceAttemptHTTP2 = true
		} else {
			transport = transport.Clone()
		}

		transport.TLSClientConfig = config

		return transport
	}
}

// CustomCA returns a TLS config that verifies the controller against the
// given root pool instead of the system roots. This is the right answer
// for UniFi OS consoles and legacy controllers serving a self-signed or
// locally-issued certificate: export the controller's CA once and keep
// full verification.
func CustomCA(pool *x509.CertPool) *tls.Config {
	return &tls.Config{
		RootCAs:    pool,
		MinVersion: tls.VersionTLS12,
	}
}

// InsecureSkipVerify returns a TLS config that skips certificate
// verification. Only for lab controllers whose certificate cannot be
// exported; prefer CustomCA everywhere else.
func InsecureSkipVerify() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // Opt-in for controllers with unverifiable self-signed certificates
	}
}
