package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ironspideychinu/TuckHub/config"
	"github.com/ironspideychinu/TuckHub/events"
	"github.com/ironspideychinu/TuckHub/models"
	"github.com/ironspideychinu/TuckHub/models/modeltest"
)

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.FlowImmediate)

	if w := env.do(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Stu", "email": "stu@campus.test", "password": "password123", "role": "student",
	}, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("student registration: expected 400, got %d", w.Code)
	}

	w := env.do(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Kitchen", "email": "kitchen@campus.test", "password": "password123", "role": "staff",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d (%s)", w.Code, w.Body.String())
	}

	if w := env.do(http.MethodPost, "/api/auth/register", gin.H{
		"name": "Kitchen", "email": "kitchen@campus.test", "password": "password123", "role": "staff",
	}, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email: expected 400, got %d", w.Code)
	}

	if w := env.do(http.MethodPost, "/api/auth/login", gin.H{"email": "kitchen@campus.test", "password": "wrong-password"}, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", w.Code)
	}

	w = env.do(http.MethodPost, "/api/auth/login", gin.H{"email": "kitchen@campus.test", "password": "password123"}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d (%s)", w.Code, w.Body.String())
	}
	var out authResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || out.Token == "" {
		t.Fatalf("login body: %s", w.Body.String())
	}
	if out.User.Role != models.RoleStaff {
		t.Fatalf("role = %s", out.User.Role)
	}

	w = env.do(http.MethodGet, "/api/auth/me", nil, out.Token)
	if w.Code != http.StatusOK {
		t.Fatalf("me: %d", w.Code)
	}
}

func TestStudentsCannotUsePasswordLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.FlowImmediate)

	student := modeltest.SeedUser(t, env.db, "student", models.RoleStudent)
	if err := student.HashPassword("password123"); err != nil {
		t.Fatal(err)
	}
	env.db.Save(&student)

	if w := env.do(http.MethodPost, "/api/auth/login", gin.H{"email": student.Email, "password": "password123"}, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestMenuManagement(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.FlowImmediate)

	staff := env.token(modeltest.SeedUser(t, env.db, "staff", models.RoleStaff), models.ProviderLocal)
	admin := env.token(modeltest.SeedUser(t, env.db, "admin", models.RoleAdmin), models.ProviderLocal)

	if w := env.do(http.MethodPost, "/api/menu", gin.H{"name": "Samosa", "price": 15, "stock": 2}, admin); w.Code != http.StatusForbidden {
		t.Fatalf("admin created menu item: %d", w.Code)
	}

	w := env.do(http.MethodPost, "/api/menu", gin.H{"name": "Samosa", "price": 15, "stock": 0}, staff)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d (%s)", w.Code, w.Body.String())
	}
	var created struct {
		Item models.MenuItem `json:"item"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Item.Available {
		t.Fatal("item with zero stock created as available")
	}

	w = env.do(http.MethodPatch, "/api/menu/"+created.Item.ID, gin.H{"stock": 4}, staff)
	if w.Code != http.StatusOK {
		t.Fatalf("update: %d (%s)", w.Code, w.Body.String())
	}
	stock, available := modeltest.ItemStock(t, env.db, created.Item.ID)
	if *stock != 4 || !available {
		t.Fatalf("stock = %d available = %v", *stock, available)
	}
	if n := env.events.Count(events.StockUpdated); n != 2 {
		t.Fatalf("stock:updated = %d, want 2", n)
	}

	if w := env.do(http.MethodPatch, "/api/menu/missing", gin.H{"stock": 4}, staff); w.Code != http.StatusNotFound {
		t.Fatalf("update missing: %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/api/menu/"+created.Item.ID, nil, staff); w.Code != http.StatusOK {
		t.Fatalf("delete: %d", w.Code)
	}
	if w := env.do(http.MethodGet, "/api/menu", nil, ""); w.Code != http.StatusOK {
		t.Fatalf("public menu: %d", w.Code)
	}
}

func TestCategoriesAreUnique(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.FlowImmediate)
	admin := env.token(modeltest.SeedUser(t, env.db, "admin", models.RoleAdmin), models.ProviderLocal)

	if w := env.do(http.MethodPost, "/api/categories", gin.H{"name": "Snacks"}, admin); w.Code != http.StatusCreated {
		t.Fatalf("create: %d (%s)", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodPost, "/api/categories", gin.H{"name": "Snacks"}, admin); w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate: expected 400, got %d", w.Code)
	}
	if w := env.do(http.MethodDelete, "/api/categories/missing", nil, admin); w.Code != http.StatusNotFound {
		t.Fatalf("delete missing: %d", w.Code)
	}
}

func TestAdminRoleChange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, config.FlowImmediate)
	admin := env.token(modeltest.SeedUser(t, env.db, "admin", models.RoleAdmin), models.ProviderLocal)
	user := modeltest.SeedUser(t, env.db, "someone", models.RoleStudent)

	if w := env.do(http.MethodPatch, "/api/admin/users/"+user.ID+"/role", gin.H{"role": "wizard"}, admin); w.Code != http.StatusBadRequest {
		t.Fatalf("bad role: %d", w.Code)
	}
	if w := env.do(http.MethodPatch, "/api/admin/users/missing/role", gin.H{"role": "runner"}, admin); w.Code != http.StatusNotFound {
		t.Fatalf("missing user: %d", w.Code)
	}
	if w := env.do(http.MethodPatch, "/api/admin/users/"+user.ID+"/role", gin.H{"role": "runner"}, admin); w.Code != http.StatusOK {
		t.Fatalf("role change: %d (%s)", w.Code, w.Body.String())
	}
	if w := env.do(http.MethodGet, "/api/admin/reports", nil, admin); w.Code != http.StatusOK {
		t.Fatalf("reports: %d (%s)", w.Code, w.Body.String())
	}
}
