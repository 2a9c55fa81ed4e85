// Package modeltest provides an isolated in-memory database for tests.
package modeltest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/models"
)

// NewDB returns a migrated in-memory sqlite database private to the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := models.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Stock returns a pointer for tracked stock counts.
func Stock(n int) *int {
	return &n
}

// SeedItem inserts a menu item priced at price with the given stock (nil for untracked).
func SeedItem(t testing.TB, db *gorm.DB, name string, price int64, stock *int) models.MenuItem {
	t.Helper()

	item := models.MenuItem{
		Name:      name,
		Price:     decimal.NewFromInt(price),
		Available: true,
		Stock:     stock,
	}
	item.SyncAvailability()
	if err := db.Create(&item).Error; err != nil {
		t.Fatalf("seed item %s: %v", name, err)
	}
	return item
}

// SeedUser inserts a user with the given role.
func SeedUser(t testing.TB, db *gorm.DB, name string, role models.Role) models.User {
	t.Helper()

	user := models.User{
		Name:         name,
		Email:        name + "@campus.test",
		Role:         role,
		AuthProvider: models.ProviderLocal,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", name, err)
	}
	return user
}

// ItemStock reloads the persisted stock and availability of an item.
func ItemStock(t testing.TB, db *gorm.DB, id string) (stock *int, available bool) {
	t.Helper()

	var item models.MenuItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		t.Fatalf("reload item %s: %v", id, err)
	}
	return item.Stock, item.Available
}
