package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	signed, err := tokens.Issue(Identity{Username: "alice", Role: "admin"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	identity, err := tokens.Validate(context.Background(), signed)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if identity.Username != "alice" {
		t.Fatalf("Username = %q", identity.Username)
	}
	if !identity.IsAdmin() {
		t.Fatal("expected admin identity")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer, err := NewTokens("secret-a", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	verifier, err := NewTokens("secret-b", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	signed, err := issuer.Issue(Identity{Username: "alice", Role: "user"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := verifier.Validate(context.Background(), signed); err == nil {
		t.Fatal("expected verification failure for wrong secret")
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Minute)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	signed, err := tokens.Issue(Identity{Username: "alice", Role: "user"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := tokens.Validate(context.Background(), signed); err == nil {
		t.Fatal("expected verification failure for expired token")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	if _, err := tokens.Validate(context.Background(), "not.a.token"); err == nil {
		t.Fatal("expected verification failure")
	}
}

func TestNewTokensRequiresSecret(t *testing.T) {
	if _, err := NewTokens("  ", time.Hour); err == nil {
		t.Fatal("expected error for blank secret")
	}
}

func TestMiddlewareRequiresToken(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	mw := Middleware(slog.New(slog.NewJSONHandler(io.Discard, nil)), tokens)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/run-query", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestMiddlewarePutsIdentityInContext(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}
	signed, err := tokens.Issue(Identity{Username: "bob", Role: "user"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	mw := Middleware(nil, tokens)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFromContext(r.Context())
		if !ok || identity.Username != "bob" {
			t.Fatalf("identity = %+v, ok = %v", identity, ok)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/run-query", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	tokens, err := NewTokens("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokens() error = %v", err)
	}

	mw := Middleware(slog.New(slog.NewJSONHandler(io.Discard, nil)), tokens)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/run-query", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
