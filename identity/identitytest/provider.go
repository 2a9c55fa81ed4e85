// Package identitytest runs a stand-in Microsoft tenant for tests.
package identitytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/oauth2"

	"github.com/ironspideychinu/TuckHub/identity"
)

const (
	// Code is the only authorization code the stand-in tenant accepts.
	Code        = "auth-code"
	accessToken = "graph-access-token"
)

// NewMicrosoft returns a provider whose token and Graph endpoints are served
// by an httptest.Server that signs in profile.
func NewMicrosoft(t *testing.T, profile identity.Profile, allowedDomains ...string) *identity.Microsoft {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != Code {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": accessToken,
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+accessToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &identity.Microsoft{
		Config: &oauth2.Config{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RedirectURL:  "http://localhost:5000/api/auth/microsoft/callback",
			Scopes:       []string{"User.Read"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   srv.URL + "/authorize",
				TokenURL:  srv.URL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		ProfileURL:     srv.URL + "/me",
		AllowedDomains: allowedDomains,
	}
}
