package unifi

import (
	"context"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedibtc/unifi-client/internal/testutil"
)

// newTestClient builds a client against a mock controller with the rate
// limiter disabled so tests never wait on token refill.
func newTestClient(t *testing.T, m *testutil.MockController) *UniFiClient {
	t.Helper()

	client, err := New(&ClientConfig{
		ControllerURL:      m.URL(),
		Username:           "admin",
		Password:           "secret",
		RateLimitPerMinute: -1,
	})
	require.NoError(t, err)
	return client
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  *ClientConfig
	}{
		{"nil config", nil},
		{"empty controller URL", &ClientConfig{Username: "admin", Password: "x"}},
		{"relative controller URL", &ClientConfig{ControllerURL: "unifi.local", Username: "admin", Password: "x"}},
		{"unsupported scheme", &ClientConfig{ControllerURL: "ftp://unifi.local", Username: "admin", Password: "x"}},
		{"missing host", &ClientConfig{ControllerURL: "https://", Username: "admin", Password: "x"}},
		{"missing username", &ClientConfig{ControllerURL: "https://unifi.local", Password: "x"}},
		{
			"password and password env",
			&ClientConfig{ControllerURL: "https://unifi.local", Username: "admin", Password: "x", PasswordEnv: "UNIFI_PASSWORD"},
		},
		{
			"root CAs and insecure skip verify",
			&ClientConfig{
				ControllerURL:      "https://unifi.local",
				Username:           "admin",
				Password:           "x",
				RootCAs:            x509.NewCertPool(),
				InsecureSkipVerify: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg)
			require.Error(t, err)

			var cerr *ConfigError
			assert.ErrorAs(t, err, &cerr)
		})
	}
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	client, err := New(&ClientConfig{
		ControllerURL: "https://unifi.local:8443",
		Username:      "admin",
		Password:      "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultSite, client.Site())
	assert.Equal(t, DefaultUserAgent, client.userAgent)
	assert.Equal(t, VariantUnknown, client.Variant())
	assert.Equal(t, 30*time.Second, client.http.HTTPClient().Timeout)
}

// A controller serving a certificate from a private CA is verified once
// that CA is configured; without it the handshake is rejected.
func TestNewWithRootCAs(t *testing.T) {
	t.Parallel()

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())

	client, err := New(&ClientConfig{
		ControllerURL:      srv.URL,
		Username:           "admin",
		Password:           "secret",
		RootCAs:            pool,
		RateLimitPerMinute: -1,
	})
	require.NoError(t, err)

	variant, err := detectVariant(context.Background(), client.http, client.baseURL)
	require.NoError(t, err)
	assert.Equal(t, VariantUniFiOS, variant)

	// Without the CA the same controller is untrusted.
	untrusting, err := New(&ClientConfig{
		ControllerURL:      srv.URL,
		Username:           "admin",
		Password:           "secret",
		RateLimitPerMinute: -1,
	})
	require.NoError(t, err)

	_, err = detectVariant(context.Background(), untrusting.http, untrusting.baseURL)
	require.Error(t, err)
}

func TestNewVariantOverride(t *testing.T) {
	t.Parallel()

	client, err := New(&ClientConfig{
		ControllerURL: "https://unifi.local:8443",
		Username:      "admin",
		Password:      "secret",
		Variant:       VariantLegacy,
	})
	require.NoError(t, err)
	assert.Equal(t, VariantLegacy, client.Variant())
}

func TestNewPasswordEnv(t *testing.T) {
	t.Setenv("UNIFI_TEST_PASSWORD", "from-env")

	client, err := New(&ClientConfig{
		ControllerURL: "https://unifi.local",
		Username:      "admin",
		PasswordEnv:   "UNIFI_TEST_PASSWORD",
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env", client.session.password.Reveal())
}

func TestNewPasswordEnvUnset(t *testing.T) {
	t.Setenv("UNIFI_TEST_PASSWORD", "")

	_, err := New(&ClientConfig{
		ControllerURL: "https://unifi.local",
		Username:      "admin",
		PasswordEnv:   "UNIFI_TEST_PASSWORD",
	})
	require.Error(t, err)

	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestSiteAPIPath(t *testing.T) {
	t.Parallel()

	client, err := New(&ClientConfig{
		ControllerURL: "https://unifi.local",
		Username:      "admin",
		Password:      "secret",
		Site:          "branch-office",
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/s/branch-office/stat/voucher", client.SiteAPIPath("stat/voucher"))
	assert.Equal(t, "/api/s/branch-office/cmd/stamgr", client.SiteAPIPath("/cmd/stamgr"))
}

func TestInvalidEndpoint(t *testing.T) {
	t.Parallel()

	client, err := New(&ClientConfig{
		ControllerURL: "https://unifi.local",
		Username:      "admin",
		Password:      "secret",
	})
	require.NoError(t, err)

	for _, endpoint := range []string{
		"",
		"stat/guest",
		"/api/self/sites?limit=1",
		"/api/self/sites#frag",
	} {
		err := client.Get(context.Background(), endpoint, nil)
		assert.ErrorIs(t, err, ErrInvalidEndpoint, "endpoint %q", endpoint)
	}
}

func TestLegacyRequestFlow(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	m.HandleJSON("/api/self/sites", http.StatusOK,
		testutil.OKEnvelope(`[{"_id":"abc","name":"default","desc":"Default"}]`))

	client := newTestClient(t, m)

	sites, err := client.Sites().List(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 1)
	assert.Equal(t, "default", sites[0].Name)

	assert.Equal(t, VariantLegacy, client.Variant())
	assert.Equal(t, 1, m.ProbeCount())
	assert.Equal(t, 1, m.LoginCount())

	// The session and the detected variant are reused; no further probe
	// or login happens.
	_, err = client.Sites().List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, m.ProbeCount())
	assert.Equal(t, 1, m.LoginCount())
}

func TestUniFiOSRequestFlow(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindUniFiOS)

	var mu sync.Mutex
	var gotCSRF, gotPath string
	m.Handle("/api/self/sites", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotCSRF = r.Header.Get("X-Csrf-Token")
		gotPath = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(testutil.OKEnvelope(`[{"_id":"abc","name":"default","desc":"Default"}]`)))
	})

	client := newTestClient(t, m)

	sites, err := client.Sites().List(context.Background())
	require.NoError(t, err)
	require.Len(t, sites, 1)

	assert.Equal(t, VariantUniFiOS, client.Variant())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/proxy/network/api/self/sites", gotPath)
	assert.Equal(t, m.CurrentCSRF(), gotCSRF)
}

func TestAPIErrorFromEnvelope(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	m.HandleJSON("/api/self/sites", http.StatusOK, testutil.ErrorEnvelope("api.err.NoSiteContext"))

	client := newTestClient(t, m)

	_, err := client.Sites().List(context.Background())
	require.Error(t, err)

	var aerr *APIError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, "api.err.NoSiteContext", aerr.Message)
}

func TestAPIErrorFromStatus(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	m.HandleJSON("/api/self/sites", http.StatusInternalServerError, testutil.ErrorEnvelope("api.err.ServerBusy"))

	client := newTestClient(t, m)

	_, err := client.Sites().List(context.Background())
	require.Error(t, err)

	var aerr *APIError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, http.StatusInternalServerError, aerr.StatusCode)
	assert.Equal(t, "api.err.ServerBusy", aerr.Message)
}

func TestDoRawResponse(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	m.HandleJSON("/api/self/sites", http.StatusOK, testutil.OKEnvelope(`[]`))

	client := newTestClient(t, m)

	resp, err := client.Do(context.Background(), http.MethodGet, "/api/self/sites", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCloneSharesSession(t *testing.T) {
	t.Parallel()

	m := testutil.NewMockController(t, testutil.KindLegacy)
	m.HandleJSON("/api/self/sites", http.StatusOK, testutil.OKEnvelope(`[]`))

	client := newTestClient(t, m)
	clone := client.Clone()

	_, err := client.Sites().List(context.Background())
	require.NoError(t, err)

	_, err = clone.Sites().List(context.Background())
	require.NoError(t, err)

	// The clone reused the original's session.
	assert.Equal(t, 1, m.LoginCount())
	assert.Same(t, client.session, clone.session)
}
