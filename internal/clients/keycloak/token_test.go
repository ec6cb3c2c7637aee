package keycloak

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openexcavate/fieldbook-backend/internal/pkg/logger"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestRolesFromToken(t *testing.T) {
	tok := signedToken(t, jwt.MapClaims{
		"sub": "user-1",
		"resource_access": map[string]any{
			"fieldbook-app": map[string]any{
				"roles": []any{"editor", "mima"},
			},
		},
	})
	roles := RolesFromToken(tok, "fieldbook-app")
	if len(roles) != 2 || roles[0] != "editor" || roles[1] != "mima" {
		t.Fatalf("roles = %v", roles)
	}
	if got := RolesFromToken(tok, "other-client"); got != nil {
		t.Fatalf("wrong client should yield nil, got %v", got)
	}
	if got := RolesFromToken("not-a-jwt", "fieldbook-app"); got != nil {
		t.Fatalf("garbage token should yield nil, got %v", got)
	}
}

func TestRefresh(t *testing.T) {
	access := signedToken(t, jwt.MapClaims{"sub": "user-1"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/realms/fieldbook/protocol/openid-connect/token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "r0" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"` + access + `","refresh_token":"r1","expires_in":300}`))
	}))
	defer srv.Close()

	m, err := New(logger.NewNop(), Config{
		BaseURL:         srv.URL,
		Realm:           "fieldbook",
		ClientID:        "fieldbook-app",
		RefreshInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m.SetTokens("stale", "r0")
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if m.Token() != access {
		t.Fatalf("access token not installed")
	}
	m.mu.RLock()
	refreshed := m.refreshToken
	m.mu.RUnlock()
	if refreshed != "r1" {
		t.Fatalf("refresh token not rotated: %q", refreshed)
	}
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	m, err := New(logger.NewNop(), Config{BaseURL: "http://localhost:1", Realm: "r", ClientID: "c"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Refresh(context.Background()); err == nil {
		t.Fatalf("expected error with no refresh token")
	}
}
