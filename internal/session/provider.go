package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// AuthError means the configured service account could not log in. This is
// a configuration-level failure: it is never retried here.
type AuthError struct {
	User string
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed for service account %q: %v", e.User, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Provider logs the configured service account into the web application and
// extracts its session cookie values. A fresh login is performed on every
// call: sessions are not cached across deliveries.
type Provider struct {
	baseURL    string
	cookieName string
	username   string
	password   string
	client     *http.Client
}

func New(baseURL, cookieName, username, password string) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: cookieName,
		username:   username,
		password:   password,
		client: &http.Client{
			Timeout: 30 * time.Second,
			// The login endpoint redirects on success; the cookies are on
			// the redirect response itself.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Authenticate performs a login and returns the session cookie values
// suitable for injection into a browser session or an HTTP request.
func (p *Provider) Authenticate(ctx context.Context) ([]string, error) {
	form := url.Values{}
	form.Set("username", p.username)
	form.Set("password", p.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/login/", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{User: p.username, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &AuthError{User: p.username, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &AuthError{User: p.username, Err: fmt.Errorf("login returned status %d", resp.StatusCode)}
	}

	var values []string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == p.cookieName {
			values = append(values, cookie.Value)
		}
	}
	if len(values) == 0 {
		return nil, &AuthError{User: p.username, Err: fmt.Errorf("no %q cookie in login response", p.cookieName)}
	}

	return values, nil
}

// CookieName returns the name the application uses for its session cookie.
func (p *Provider) CookieName() string { return p.cookieName }
