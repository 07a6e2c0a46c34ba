package unifi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/term"

	"github.com/fedibtc/unifi-client/observability"
)

// authState tracks where a session is in its lifecycle.
type authState int

const (
	stateUnauthenticated authState = iota
	stateAuthenticated
	stateFailed
)

// session holds the authentication artifacts shared by a client and all of
// its clones. The cookie, CSRF token, and variant always change together
// under the write lock, so a reader never observes a cookie from one login
// paired with a CSRF token from another.
type session struct {
	mu sync.RWMutex

	state    authState
	username string
	password Secret

	variant Variant
	cookie  Secret
	csrf    Secret
}

// artifacts snapshots the credentials a request should carry.
func (s *session) artifacts() (cookie, csrf Secret, variant Variant) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookie, s.csrf, s.variant
}

// rotateCSRF applies a token rotation announced in a response. UniFi OS
// rotates the CSRF token periodically, on either header.
func (s *session) rotateCSRF(h http.Header) {
	token := h.Get("X-Updated-Csrf-Token")
	if token == "" {
		token = h.Get("X-Csrf-Token")
	}
	if token == "" {
		return
	}

	s.mu.Lock()
	s.csrf = NewSecret(token)
	s.mu.Unlock()
}

// ensureAuthenticated logs in if no valid session exists. When many
// goroutines race here, exactly one performs the login; the rest block on
// the write lock and find the session established.
func (c *UniFiClient) ensureAuthenticated(ctx context.Context) error {
	c.session.mu.RLock()
	authenticated := c.session.state == stateAuthenticated
	c.session.mu.RUnlock()
	if authenticated {
		return nil
	}

	c.session.mu.Lock()
	defer c.session.mu.Unlock()
	if c.session.state == stateAuthenticated {
		return nil
	}
	return c.loginLocked(ctx)
}

// reauthenticate replaces a session the controller has rejected. usedCookie
// is the cookie the failed request carried: if the stored cookie already
// differs, a sibling clone re-logged in while this request was in flight
// and the fresh session can simply be reused.
func (c *UniFiClient) reauthenticate(ctx context.Context, usedCookie Secret) error {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()

	if c.session.state == stateAuthenticated && c.session.cookie != usedCookie {
		return nil
	}

	c.session.state = stateUnauthenticated
	c.session.cookie = Secret{}
	c.session.csrf = Secret{}
	return c.loginLocked(ctx)
}

// Login authenticates eagerly, replacing any existing session. Calling it
// is never required; the first request logs in on demand.
func (c *UniFiClient) Login(ctx context.Context) error {
	c.session.mu.Lock()
	defer c.session.mu.Unlock()

	c.session.state = stateUnauthenticated
	c.session.cookie = Secret{}
	c.session.csrf = Secret{}
	return c.loginLocked(ctx)
}

// loginLocked performs the variant probe (once) and the login exchange.
// Callers hold the session write lock.
func (c *UniFiClient) loginLocked(ctx context.Context) error {
	if c.session.variant == VariantUnknown {
		variant, err := detectVariant(ctx, c.http, c.baseURL)
		if err != nil {
			return err
		}
		c.session.variant = variant
		c.logger.Debug("controller variant detected",
			observability.Field{Key: "variant", Value: variant.String()},
		)
	}

	if c.session.password.IsZero() {
		password, err := promptPassword(c.session.username)
		if err != nil {
			return err
		}
		c.session.password = password
	}

	resp, body, err := c.postLogin(ctx)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.session.state = stateFailed
		return errors.WithStack(&AuthError{
			StatusCode: resp.StatusCode,
			Reason:     loginFailureReason(body),
		})
	}

	cookie, ok := sessionCookie(resp.Header)
	if !ok {
		c.session.state = stateFailed
		return errors.WithStack(&AuthError{
			StatusCode: resp.StatusCode,
			Reason:     "no session cookie received",
		})
	}

	// The artifacts are replaced as a unit. Legacy controllers issue no
	// CSRF token; a login response without one clears any previous token.
	c.session.cookie = cookie
	c.session.csrf = Secret{}
	if token := resp.Header.Get("X-Csrf-Token"); token != "" {
		c.session.csrf = NewSecret(token)
	}
	c.session.state = stateAuthenticated

	c.metrics.RecordLogin(c.session.variant.String())
	c.logger.Info("authenticated with controller",
		observability.Field{Key: "variant", Value: c.session.variant.String()},
		observability.Field{Key: "username", Value: c.session.username},
	)
	return nil
}

func (c *UniFiClient) postLogin(ctx context.Context) (*http.Response, []byte, error) {
	payload, err := json.Marshal(loginRequest{
		Username: c.session.username,
		Password: c.session.password.Reveal(),
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "encoding login request")
	}

	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + c.session.variant.loginPath()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, nil, errors.Wrap(err, "building login request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &TransportError{Err: errors.Wrap(err, "login request failed")}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &TransportError{Err: errors.Wrap(err, "reading login response")}
	}
	return resp, body, nil
}

// sessionCookie extracts the session cookie from a login response as a
// ready-to-send "name=value" pair. Legacy controllers set unifises, UniFi
// OS sets TOKEN; the first cookie wins either way.
func sessionCookie(h http.Header) (Secret, bool) {
	raw := h.Get("Set-Cookie")
	if raw == "" {
		return Secret{}, false
	}
	if i := strings.IndexByte(raw, ';'); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimSpace(raw)
	if !strings.ContainsRune(raw, '=') {
		return Secret{}, false
	}
	return NewSecret(raw), true
}

// loginFailureReason pulls the controller's message out of a rejected login
// body when there is one.
func loginFailureReason(body []byte) string {
	var env struct {
		Meta struct {
			Msg string `json:"msg"`
		} `json:"meta"`
	}
	if err := json.Unmarshal(body, &env); err == nil && env.Meta.Msg != "" {
		return "login rejected: " + env.Meta.Msg
	}
	return "login rejected"
}

// promptPassword reads a password from the terminal without echo. It is
// only used when neither Password nor PasswordEnv is configured.
func promptPassword(username string) (Secret, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return Secret{}, configErrorf("no password configured and stdin is not a terminal")
	}

	fmt.Fprintf(os.Stderr, "Password for %s: ", username)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return Secret{}, errors.Wrap(err, "reading password")
	}
	if len(raw) == 0 {
		return Secret{}, configErrorf("empty password")
	}
	return NewSecret(string(raw)), nil
}
