package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sheshield/apiserver/types"
)

const goodToken = "good-token"

// fakeAPI serves just enough of the API surface for session tests.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+goodToken {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "unauthorized"})
			return
		}
		_ = json.NewEncoder(w).Encode(types.User{ID: 1, Name: "A", Email: "a@x.com", Role: types.RoleAdmin})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "invalid email or password"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": goodToken,
			"user":  types.User{ID: 1, Name: "A", Email: req.Email, Role: types.RoleAdmin},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func tempTokenStore(t *testing.T) *FileTokenStore {
	t.Helper()
	return &FileTokenStore{Path: filepath.Join(t.TempDir(), "token")}
}

func TestRehydrateWithValidStoredToken(t *testing.T) {
	srv := fakeAPI(t)
	tokens := tempTokenStore(t)
	if err := tokens.Save(goodToken); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	c, err := New(context.Background(), srv.URL, tokens)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	user, ok := c.CurrentUser()
	if !ok {
		t.Fatalf("expected rehydrated session")
	}
	if user.Email != "a@x.com" {
		t.Fatalf("user = %+v", user)
	}
	if !c.IsAdmin() {
		t.Fatalf("expected admin session")
	}
}

// An unverifiable stored token is the same as being logged out.
func TestRehydrateDiscardsBadToken(t *testing.T) {
	srv := fakeAPI(t)
	tokens := tempTokenStore(t)
	if err := tokens.Save("stale-token"); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	c, err := New(context.Background(), srv.URL, tokens)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, ok := c.CurrentUser(); ok {
		t.Fatalf("stale token produced a session")
	}
	if c.IsAdmin() {
		t.Fatalf("stale token produced an admin session")
	}
}

func TestLoginPersistsToken(t *testing.T) {
	srv := fakeAPI(t)
	tokens := tempTokenStore(t)

	c, err := New(context.Background(), srv.URL, tokens)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := c.Login(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	stored, err := tokens.Load()
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	if stored != goodToken {
		t.Fatalf("stored token = %q", stored)
	}
	if _, ok := c.CurrentUser(); !ok {
		t.Fatalf("no session after login")
	}
}

func TestLogoutClearsEverything(t *testing.T) {
	srv := fakeAPI(t)
	tokens := tempTokenStore(t)

	c, err := New(context.Background(), srv.URL, tokens)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.Login(context.Background(), "a@x.com", "secret1"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := c.Logout(); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, ok := c.CurrentUser(); ok {
		t.Fatalf("session survived logout")
	}
	stored, err := tokens.Load()
	if err != nil {
		t.Fatalf("load token: %v", err)
	}
	if stored != "" {
		t.Fatalf("token survived logout: %q", stored)
	}
}

func TestLoginFailureSurfacesUnauthenticated(t *testing.T) {
	srv := fakeAPI(t)

	c, err := New(context.Background(), srv.URL, NopTokenStore{})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = c.Login(context.Background(), "a@x.com", "wrong")
	if err == nil {
		t.Fatalf("expected login failure")
	}
	if _, ok := c.CurrentUser(); ok {
		t.Fatalf("failed login left a session")
	}
}
