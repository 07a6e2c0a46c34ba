// Package testutil provides a scriptable in-memory controller for tests.
//
// MockController speaks just enough of the controller wire protocol for the
// client to probe, log in, and issue API requests against it: the root
// probe, the variant-specific login endpoint with cookie and CSRF issuance,
// and caller-registered API handlers. Counters expose how often each
// surface was hit so tests can assert on probe caching and retry bounds.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Controller deployment styles the mock can impersonate.
const (
	KindLegacy  = "legacy"
	KindUniFiOS = "unifi-os"
)

// MockController is an httptest-backed fake controller.
type MockController struct {
	t      *testing.T
	Server *httptest.Server
	Kind   string

	mu          sync.Mutex
	probeCount  int
	loginCount  int
	apiCounts   map[string]int
	handlers    map[string]http.HandlerFunc
	loginStatus int
	omitCookie  bool
	cookie      string
	csrf        string
}

// NewMockController starts a fake controller of the given kind. The caller
// need not close it; cleanup is registered on t.
func NewMockController(t *testing.T, kind string) *MockController {
	t.Helper()

	m := &MockController{
		t:         t,
		Kind:      kind,
		apiCounts: make(map[string]int),
		handlers:  make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.Server.Close)
	return m
}

// URL returns the controller base URL.
func (m *MockController) URL() string {
	return m.Server.URL
}

// Handle registers an API handler for a path relative to the Network
// application root (e.g. "/api/s/default/stat/guest"). The UniFi OS
// /proxy/network prefix is stripped before lookup.
func (m *MockController) Handle(path string, fn http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = fn
}

// HandleJSON registers a handler that answers with a fixed JSON body.
func (m *MockController) HandleJSON(path string, status int, body string) {
	m.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

// FailLogins makes subsequent logins answer with status instead of
// issuing a session.
func (m *MockController) FailLogins(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loginStatus = status
}

// OmitSessionCookie makes subsequent logins succeed without a Set-Cookie
// header.
func (m *MockController) OmitSessionCookie() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.omitCookie = true
}

// InvalidateSession discards the current session so that requests carrying
// the old cookie are rejected until the client logs in again.
func (m *MockController) InvalidateSession() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookie = ""
	m.csrf = ""
}

// ProbeCount reports how many root probes the controller has seen.
func (m *MockController) ProbeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.probeCount
}

// LoginCount reports how many login attempts the controller has seen.
func (m *MockController) LoginCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loginCount
}

// APICount reports how many requests hit the given API path.
func (m *MockController) APICount(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.apiCounts[path]
}

// CurrentCookie returns the session cookie pair issued by the last login,
// or "" when no session is live.
func (m *MockController) CurrentCookie() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cookie
}

// CurrentCSRF returns the CSRF token issued by the last login.
func (m *MockController) CurrentCSRF() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.csrf
}

func (m *MockController) loginPath() string {
	if m.Kind == KindUniFiOS {
		return "/api/auth/login"
	}
	return "/api/login"
}

func (m *MockController) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead && r.URL.Path == "/" {
		m.serveProbe(w)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == m.loginPath() {
		m.serveLogin(w)
		return
	}

	path := r.URL.Path
	if m.Kind == KindUniFiOS {
		path = strings.TrimPrefix(path, "/proxy/network")
	}
	m.serveAPI(w, r, path)
}

func (m *MockController) serveProbe(w http.ResponseWriter) {
	m.mu.Lock()
	m.probeCount++
	m.mu.Unlock()

	if m.Kind == KindUniFiOS {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.Header().Set("Location", "/manage")
	w.WriteHeader(http.StatusFound)
}

func (m *MockController) serveLogin(w http.ResponseWriter) {
	m.mu.Lock()
	m.loginCount++
	n := m.loginCount
	failStatus := m.loginStatus
	omitCookie := m.omitCookie

	if failStatus == 0 && !omitCookie {
		if m.Kind == KindUniFiOS {
			m.cookie = fmt.Sprintf("TOKEN=session-%d", n)
			m.csrf = fmt.Sprintf("csrf-%d", n)
		} else {
			m.cookie = fmt.Sprintf("unifises=session-%d", n)
		}
	}
	cookie, csrf := m.cookie, m.csrf
	m.mu.Unlock()

	if failStatus != 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(failStatus)
		fmt.Fprint(w, ErrorEnvelope("api.err.Invalid"))
		return
	}

	if !omitCookie {
		w.Header().Set("Set-Cookie", cookie+"; Path=/; HttpOnly")
	}
	if csrf != "" {
		w.Header().Set("X-Csrf-Token", csrf)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if m.Kind == KindUniFiOS {
		fmt.Fprint(w, `{"unique_id":"test-user"}`)
	} else {
		fmt.Fprint(w, OKEnvelope("[]"))
	}
}

func (m *MockController) serveAPI(w http.ResponseWriter, r *http.Request, path string) {
	m.mu.Lock()
	m.apiCounts[path]++
	cookie := m.cookie
	csrf := m.csrf
	handler := m.handlers[path]
	m.mu.Unlock()

	if cookie == "" || r.Header.Get("Cookie") != cookie {
		m.rejectSession(w)
		return
	}

	// UniFi OS enforces the CSRF token on mutating requests.
	if m.Kind == KindUniFiOS && r.Method != http.MethodGet && r.Header.Get("X-Csrf-Token") != csrf {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, ErrorEnvelope("api.err.CsrfTokenMismatch"))
		return
	}

	if handler == nil {
		m.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		return
	}
	handler(w, r)
}

// rejectSession answers an invalid session with 401 and the LoginRequired
// envelope, which both variants treat as session expiry.
func (m *MockController) rejectSession(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprint(w, LoginRequiredBody())
}

// OKEnvelope wraps a JSON data array in a success envelope.
func OKEnvelope(data string) string {
	return `{"meta":{"rc":"ok"},"data":` + data + `}`
}

// ErrorEnvelope builds an error envelope with the given message.
func ErrorEnvelope(msg string) string {
	return `{"meta":{"rc":"error","msg":"` + msg + `"},"data":[]}`
}

// LoginRequiredBody is the envelope the controller uses to report a
// missing or expired session.
func LoginRequiredBody() string {
	return ErrorEnvelope("api.err.LoginRequired")
}
