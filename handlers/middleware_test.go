package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ironspideychinu/TuckHub/config"
	"github.com/ironspideychinu/TuckHub/models"
	"github.com/ironspideychinu/TuckHub/models/modeltest"
)

func TestAccessErrorsUseTaxonomy(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.FlowImmediate)

	student := modeltest.SeedUser(t, env.db, "student", models.RoleStudent)
	staff := modeltest.SeedUser(t, env.db, "staff", models.RoleStaff)
	studentToken := env.token(student, models.ProviderMicrosoft)
	items := gin.H{"items": []gin.H{{"itemId": "x", "qty": 1}}}

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		token      string
		wantCode   int
		wantPrefix string
	}{
		{name: "no token", method: http.MethodGet, path: "/api/auth/me", wantCode: http.StatusUnauthorized, wantPrefix: "unauthorized: authorization header"},
		{name: "garbage token", method: http.MethodGet, path: "/api/auth/me", token: "not-a-jwt", wantCode: http.StatusUnauthorized, wantPrefix: "unauthorized: invalid token"},
		{name: "student on password login", method: http.MethodPost, path: "/api/orders", body: items, token: env.token(student, models.ProviderLocal), wantCode: http.StatusUnauthorized, wantPrefix: "unauthorized: student access"},
		{name: "wrong role", method: http.MethodPost, path: "/api/orders", body: items, token: env.token(staff, models.ProviderLocal), wantCode: http.StatusForbidden, wantPrefix: "forbidden: role staff"},
		{name: "another user's orders", method: http.MethodGet, path: "/api/orders/user/" + staff.ID, token: studentToken, wantCode: http.StatusForbidden, wantPrefix: "forbidden: orders of another user"},
		{name: "bad password", method: http.MethodPost, path: "/api/auth/login", body: gin.H{"email": staff.Email, "password": "nope"}, wantCode: http.StatusUnauthorized, wantPrefix: "unauthorized: invalid credentials"},
		{name: "unknown email", method: http.MethodPost, path: "/api/auth/login", body: gin.H{"email": "ghost@campus.test", "password": "nope"}, wantCode: http.StatusUnauthorized, wantPrefix: "unauthorized: invalid credentials"},
	}

	for _, tt := range tests {
		w := env.do(tt.method, tt.path, tt.body, tt.token)
		if w.Code != tt.wantCode {
			t.Fatalf("%s: expected %d, got %d (%s)", tt.name, tt.wantCode, w.Code, w.Body.String())
		}
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode %s: %v", tt.name, w.Body.String(), err)
		}
		if !strings.HasPrefix(body.Error, tt.wantPrefix) {
			t.Fatalf("%s: error = %q, want prefix %q", tt.name, body.Error, tt.wantPrefix)
		}
	}
}
