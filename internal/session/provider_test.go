package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthenticateExtractsSessionCookie(t *testing.T) {
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login/" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotUser = r.PostForm.Get("username")
		gotPass = r.PostForm.Get("password")

		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123"})
		http.SetCookie(w, &http.Cookie{Name: "other", Value: "ignored"})
		http.Redirect(w, r, "/", http.StatusFound)
	}))
	defer srv.Close()

	p := New(srv.URL, "session", "reporter", "secret")
	values, err := p.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotUser != "reporter" || gotPass != "secret" {
		t.Errorf("credentials not posted: user=%q pass=%q", gotUser, gotPass)
	}
	if len(values) != 1 || values[0] != "abc123" {
		t.Errorf("unexpected cookie values: %v", values)
	}
}

func TestAuthenticateDoesNotFollowRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/login/" {
			// Cookie only on the redirect response, like a real login flow.
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "on-redirect"})
			http.Redirect(w, r, "/home", http.StatusFound)
			return
		}
		// Following the redirect would land here, with no cookie.
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(srv.URL, "session", "reporter", "secret")
	values, err := p.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(values) != 1 || values[0] != "on-redirect" {
		t.Errorf("cookie from redirect response lost: %v", values)
	}
}

func TestAuthenticateBadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := New(srv.URL, "session", "reporter", "wrong")
	_, err := p.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.User != "reporter" {
		t.Errorf("unexpected user in error: %q", authErr.User)
	}
}

func TestAuthenticateMissingCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := New(srv.URL, "session", "reporter", "secret")
	_, err := p.Authenticate(context.Background())

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for missing cookie, got %v", err)
	}
}
