// Package unifi is a client library for self-hosted UniFi Network
// controllers, covering both the legacy standalone software and UniFi OS
// consoles.
//
// The client authenticates with username/password, maintains the session
// cookie and CSRF token across concurrent callers, transparently
// re-authenticates once when the controller reports an expired session, and
// exposes guest, site, and voucher management on top of a uniform request
// surface.
package unifi

import (
	"bytes"
	"context"
	"crypto/x509"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/fedibtc/unifi-client/internal/envelope"
	"github.com/fedibtc/unifi-client/internal/httpclient"
	"github.com/fedibtc/unifi-client/internal/middleware"
	"github.com/fedibtc/unifi-client/internal/ratelimit"
	"github.com/fedibtc/unifi-client/observability"
)

const (
	// DefaultSite is the site identifier used when none is configured.
	DefaultSite = "default"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default request budget per minute.
	DefaultRateLimit = ratelimit.DefaultPerMinute

	// DefaultUserAgent identifies this library to the controller.
	DefaultUserAgent = "unifi-client/1.0"
)

// ClientConfig holds configuration for a controller client. The zero value
// of every optional field selects the documented default.
type ClientConfig struct {
	// ControllerURL is the absolute base URL of the controller
	// (e.g. "https://unifi.example.com:8443"). Required.
	ControllerURL string

	// Username for authentication. Required.
	Username string

	// Password for authentication. Mutually exclusive with PasswordEnv.
	// If neither is set, the password is prompted on the terminal at the
	// first login.
	Password string

	// PasswordEnv names an environment variable to read the password
	// from at construction time. Mutually exclusive with Password.
	PasswordEnv string

	// Site is the site identifier resource APIs operate on
	// (defaults to "default").
	Site string

	// Variant pins the controller deployment style. Leave zero to detect
	// it with a probe at the first login.
	Variant Variant

	// RootCAs verifies the controller against these roots instead of the
	// system pool. Preferred over InsecureSkipVerify for controllers with
	// self-signed or locally-issued certificates.
	RootCAs *x509.CertPool

	// InsecureSkipVerify disables TLS certificate verification entirely.
	// Mutually exclusive with RootCAs.
	InsecureSkipVerify bool

	// Timeout bounds each HTTP request (defaults to 30s).
	Timeout time.Duration

	// Transport overrides the HTTP transport. When set, RootCAs and
	// InsecureSkipVerify are ignored; the transport brings its own TLS
	// configuration.
	Transport http.RoundTripper

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// RateLimitPerMinute caps outgoing requests (defaults to 120;
	// negative disables the limiter).
	RateLimitPerMinute int

	// Logger receives structured client logs (defaults to a no-op).
	Logger observability.Logger

	// Metrics receives client metrics (defaults to a no-op).
	Metrics observability.MetricsRecorder
}

// UniFiClient is a controller API client. One client may be shared by any
// number of goroutines; see Clone for handing it to independent components.
type UniFiClient struct {
	baseURL   *url.URL
	site      string
	userAgent string
	http      *httpclient.Client
	session   *session
	logger    observability.Logger
	metrics   observability.MetricsRecorder
}

// New validates cfg and creates a client. No network I/O happens here; the
// variant probe and login run on the first request (or an explicit Login).
func New(cfg *ClientConfig) (*UniFiClient, error) {
	if cfg == nil {
		return nil, configErrorf("config is required")
	}

	base, err := url.Parse(cfg.ControllerURL)
	if err != nil {
		return nil, configErrorf("invalid controller URL %q: %v", cfg.ControllerURL, err)
	}
	if !base.IsAbs() || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, configErrorf("controller URL %q must be absolute http(s)", cfg.ControllerURL)
	}
	if base.Host == "" {
		return nil, configErrorf("controller URL %q has no host", cfg.ControllerURL)
	}

	if cfg.Username == "" {
		return nil, configErrorf("username is required")
	}

	if cfg.RootCAs != nil && cfg.InsecureSkipVerify {
		return nil, configErrorf("RootCAs and InsecureSkipVerify are mutually exclusive")
	}

	password, err := resolvePassword(cfg)
	if err != nil {
		return nil, err
	}

	site := cfg.Site
	if site == "" {
		site = DefaultSite
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	logger := cfg.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NoopMetricsRecorder()
	}

	rateLimitPerMinute := cfg.RateLimitPerMinute
	if rateLimitPerMinute == 0 {
		rateLimitPerMinute = DefaultRateLimit
	}

	mws := []httpclient.Middleware{
		middleware.Observability(logger, metrics),
	}
	if rateLimitPerMinute > 0 {
		mws = append(mws, middleware.RateLimit(middleware.RateLimitConfig{
			Limiter: ratelimit.NewRateLimiter(rateLimitPerMinute),
			Logger:  logger,
			Metrics: metrics,
		}))
	}
	if cfg.Transport == nil {
		switch {
		case cfg.RootCAs != nil:
			mws = append(mws, middleware.TLSConfig(middleware.CustomCA(cfg.RootCAs)))
		case cfg.InsecureSkipVerify:
			mws = append(mws, middleware.TLSConfig(middleware.InsecureSkipVerify()))
		}
	}

	// Redirects are never followed: the variant probe depends on seeing
	// the controller's own status code, and API responses never redirect.
	baseClient := &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if cfg.Transport != nil {
		baseClient.Transport = cfg.Transport
	}

	return &UniFiClient{
		baseURL:   base,
		site:      site,
		userAgent: userAgent,
		http: httpclient.New(
			httpclient.WithHTTPClient(baseClient),
			httpclient.WithMiddleware(mws...),
		),
		session: &session{
			username: cfg.Username,
			password: password,
			variant:  cfg.Variant,
		},
		logger:  logger,
		metrics: metrics,
	}, nil
}

func resolvePassword(cfg *ClientConfig) (Secret, error) {
	switch {
	case cfg.Password != "" && cfg.PasswordEnv != "":
		return Secret{}, configErrorf("Password and PasswordEnv are mutually exclusive")
	case cfg.Password != "":
		return NewSecret(cfg.Password), nil
	case cfg.PasswordEnv != "":
		v := os.Getenv(cfg.PasswordEnv)
		if v == "" {
			return Secret{}, configErrorf("environment variable %s is not set", cfg.PasswordEnv)
		}
		return NewSecret(v), nil
	default:
		// Deferred: prompted on the terminal at first login.
		return Secret{}, nil
	}
}

// Clone returns a client sharing this client's session and transport.
// Re-authentication performed through any clone is visible to all of them,
// so no clone can keep using a stale session.
func (c *UniFiClient) Clone() *UniFiClient {
	clone := *c
	return &clone
}

// Site returns the configured site identifier.
func (c *UniFiClient) Site() string {
	return c.site
}

// Variant returns the detected controller variant, or VariantUnknown
// before the first login.
func (c *UniFiClient) Variant() Variant {
	c.session.mu.RLock()
	defer c.session.mu.RUnlock()
	return c.session.variant
}

// SiteAPIPath scopes an endpoint to the configured site:
// SiteAPIPath("stat/voucher") becomes "/api/s/default/stat/voucher".
// Resource APIs build their endpoints through this helper; the
// variant-specific prefix is applied later by the executor.
func (c *UniFiClient) SiteAPIPath(endpoint string) string {
	return "/api/s/" + c.site + "/" + strings.TrimPrefix(endpoint, "/")
}

// Guests returns the guest authorization API.
func (c *UniFiClient) Guests() *GuestsService {
	return &GuestsService{client: c}
}

// Sites returns the site API.
func (c *UniFiClient) Sites() *SitesService {
	return &SitesService{client: c}
}

// Vouchers returns the hotspot voucher API.
func (c *UniFiClient) Vouchers() *VouchersService {
	return &VouchersService{client: c}
}

// maxAttempts bounds the executor: the original request plus one retry
// after re-authentication. Never more.
const maxAttempts = 2

// Do executes an authenticated request against a controller endpoint and
// returns the raw response. The endpoint is a path without query or
// fragment, relative to the Network application root; the variant prefix
// (/proxy/network on UniFi OS) is applied automatically. A non-nil body is
// sent as JSON.
//
// A session-expiry response triggers one re-authentication and one retry
// with the fresh session; every other failure is surfaced unchanged.
// Non-2xx responses are returned as *APIError.
func (c *UniFiClient) Do(ctx context.Context, method, endpoint string, body any) (*http.Response, error) {
	resp, _, err := c.execute(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.apiError(resp)
	}
	return resp, nil
}

// Get executes an authenticated GET and decodes the envelope data payload
// into out. Pass a nil out to discard the payload.
func (c *UniFiClient) Get(ctx context.Context, endpoint string, out any) error {
	return c.doJSON(ctx, http.MethodGet, endpoint, nil, out)
}

// Post executes an authenticated POST with a JSON body and decodes the
// envelope data payload into out. Pass a nil out to discard the payload.
func (c *UniFiClient) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, endpoint, body, out)
}

func (c *UniFiClient) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	resp, data, err := c.execute(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp)
	}

	env, err := envelope.Decode(data)
	if err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	if !env.OK() {
		return errors.WithStack(&APIError{StatusCode: resp.StatusCode, Message: env.Meta.Msg})
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	return nil
}

// execute is the single choke point for authenticated requests. It returns
// the response with its body already read into data (and restored on the
// response for raw callers).
func (c *UniFiClient) execute(ctx context.Context, method, endpoint string, body any) (*http.Response, []byte, error) {
	if err := validateEndpoint(endpoint); err != nil {
		return nil, nil, err
	}

	if err := c.ensureAuthenticated(ctx); err != nil {
		return nil, nil, err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, nil, errors.Wrap(err, "encoding request body")
		}
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		cookie, csrf, variant := c.session.artifacts()

		req, err := c.newRequest(ctx, method, endpoint, payload, cookie, csrf, variant)
		if err != nil {
			return nil, nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, nil, &TransportError{Err: err}
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, nil, &TransportError{Err: errors.Wrap(err, "reading response body")}
		}

		c.session.rotateCSRF(resp.Header)

		if c.sessionExpired(resp.StatusCode, data, variant) {
			if attempt+1 < maxAttempts {
				c.logger.Warn("session expired, re-authenticating",
					observability.Field{Key: "method", Value: method},
					observability.Field{Key: "endpoint", Value: endpoint},
					observability.Field{Key: "status", Value: resp.StatusCode},
				)
				c.metrics.RecordReauth(endpoint)

				if err := c.reauthenticate(ctx, cookie); err != nil {
					return nil, nil, err
				}
				continue
			}
			return nil, nil, errors.WithStack(&AuthError{
				StatusCode: resp.StatusCode,
				Reason:     "request unauthorized after re-authentication",
			})
		}

		resp.Body = io.NopCloser(bytes.NewReader(data))
		return resp, data, nil
	}

	// Unreachable: every loop iteration returns or continues at most once.
	return nil, nil, errors.New("request attempts exhausted")
}

// sessionExpired reports whether a response signals an invalid session:
// a variant-specific status, or the controller's LoginRequired envelope on
// an otherwise-successful response.
func (c *UniFiClient) sessionExpired(status int, data []byte, variant Variant) bool {
	if variant.sessionExpiredStatus(status) {
		return true
	}
	return status == http.StatusOK && envelope.IsLoginRequired(data)
}

func (c *UniFiClient) newRequest(
	ctx context.Context,
	method, endpoint string,
	payload []byte,
	cookie, csrf Secret,
	variant Variant,
) (*http.Request, error) {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + variant.apiPrefix() + endpoint

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !cookie.IsZero() {
		req.Header.Set("Cookie", cookie.Reveal())
	}
	if !csrf.IsZero() {
		req.Header.Set("X-Csrf-Token", csrf.Reveal())
	}

	return req, nil
}

// apiError builds an APIError from a non-2xx response, carrying the
// controller's message when the body is a decodable envelope.
func (c *UniFiClient) apiError(resp *http.Response) error {
	msg := ""
	if data, err := io.ReadAll(resp.Body); err == nil {
		resp.Body.Close()
		if env, envErr := envelope.Decode(data); envErr == nil {
			msg = env.Meta.Msg
		}
	}
	return errors.WithStack(&APIError{StatusCode: resp.StatusCode, Message: msg})
}

// validateEndpoint rejects endpoints that would smuggle a query string or
// fragment into the request path.
func validateEndpoint(endpoint string) error {
	if endpoint == "" || !strings.HasPrefix(endpoint, "/") {
		return errors.Wrapf(ErrInvalidEndpoint, "endpoint %q must be an absolute path", endpoint)
	}
	if strings.ContainsAny(endpoint, "?#") {
		return errors.Wrapf(ErrInvalidEndpoint, "endpoint %q must not include query or fragment", endpoint)
	}
	return nil
}
