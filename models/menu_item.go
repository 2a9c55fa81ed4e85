package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MenuItem is a sellable item. A nil Stock means the item is untracked and
// always orderable while Available is set.
type MenuItem struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name       string          `json:"name" gorm:"not null"`
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Image      string          `json:"image,omitempty"`
	CategoryID *string         `json:"category_id,omitempty" gorm:"type:varchar(36);index"`
	Available  bool            `json:"available" gorm:"not null"`
	Stock      *int            `json:"stock"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Tracked reports whether the item's stock is counted.
func (m *MenuItem) Tracked() bool {
	return m.Stock != nil
}

// Orderable reports whether qty units could be sold right now.
func (m *MenuItem) Orderable(qty int) bool {
	if !m.Available {
		return false
	}
	return !m.Tracked() || *m.Stock >= qty
}

// SyncAvailability restores available == (stock > 0) for tracked items.
func (m *MenuItem) SyncAvailability() {
	if m.Tracked() {
		m.Available = *m.Stock > 0
	}
}

type Category struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"uniqueIndex;not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
