package qboclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GregMSThompson/receipts-backend/internal/dto"
)

func newServerAdapter(serverURL string) *Adapter {
	a := NewAdapter("client-id", "client-secret", "https://app.example.com/callback", dto.LedgerSandbox)
	a.apiBase = serverURL
	a.tokenURL = serverURL + "/tokens/bearer"
	a.revokeURL = serverURL + "/tokens/revoke"
	return a
}

func TestRevokeTokenEncodesBody(t *testing.T) {
	var got struct {
		Token string `json:"token"`
	}
	var decodeErr error
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decodeErr = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := newServerAdapter(srv.URL)
	token := `re"fresh\token`
	if err := a.RevokeToken(context.Background(), token); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	if decodeErr != nil {
		t.Fatalf("request body is not valid JSON: %v", decodeErr)
	}
	if got.Token != token {
		t.Fatalf("expected token %q in body, got %q", token, got.Token)
	}
}

func TestRefreshTokenParsesGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			t.Errorf("unexpected basic auth: %q %q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") != "refresh-old" {
			t.Errorf("unexpected form: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-new","refresh_token":"refresh-new","expires_in":3600,"x_refresh_token_expires_in":8640000}`))
	}))
	defer srv.Close()

	a := newServerAdapter(srv.URL)
	grant, err := a.RefreshToken(context.Background(), "refresh-old")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if grant.AccessToken != "access-new" || grant.RefreshToken != "refresh-new" {
		t.Fatalf("unexpected grant: %#v", grant)
	}
	if grant.ExpiresIn != 3600 || grant.RefreshExpiresIn != 8640000 {
		t.Fatalf("unexpected expiries: %#v", grant)
	}
}
