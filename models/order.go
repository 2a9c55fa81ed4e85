package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusPlaced         OrderStatus = "placed"
	OrderStatusMaking         OrderStatus = "making"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusDelivering     OrderStatus = "delivering"
	OrderStatusCompleted      OrderStatus = "completed"
)

// ParseOrderStatus validates a status coming from outside the process.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPendingPayment, OrderStatusPlaced, OrderStatusMaking,
		OrderStatusReady, OrderStatusDelivering, OrderStatusCompleted:
		return st, nil
	default:
		return "", fmt.Errorf("unknown order status %q", s)
	}
}

// Order is the aggregate root: its Items and StatusHistory are owned by it and
// never shared. Items are a snapshot taken at order time.
type Order struct {
	ID               string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID           string          `json:"user_id" gorm:"type:varchar(36);not null;index"`
	Items            []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	ServiceFee       decimal.Decimal `json:"service_fee" gorm:"type:decimal(10,2);not null"`
	TotalAmount      decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Status           OrderStatus     `json:"status" gorm:"type:varchar(24);not null;index"`
	StatusHistory    []StatusEntry   `json:"status_history" gorm:"foreignKey:OrderID"`
	AssignedRunnerID *string         `json:"assigned_runner_id,omitempty" gorm:"type:varchar(36);index"`
	PaymentRef       *string         `json:"payment_ref,omitempty" gorm:"uniqueIndex"`
	PaymentID        *string         `json:"payment_id,omitempty" gorm:"uniqueIndex"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// LastStatus returns the status of the most recent history entry.
func (o *Order) LastStatus() OrderStatus {
	if len(o.StatusHistory) == 0 {
		return ""
	}
	return o.StatusHistory[len(o.StatusHistory)-1].Status
}

// OrderItem is the immutable line snapshot of a menu item at order time.
type OrderItem struct {
	ID         uint            `json:"-" gorm:"primaryKey"`
	OrderID    string          `json:"-" gorm:"type:varchar(36);not null;index"`
	MenuItemID string          `json:"item_id" gorm:"type:varchar(36);not null"`
	Name       string          `json:"name" gorm:"not null"`
	UnitPrice  decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	Quantity   int             `json:"qty" gorm:"not null"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusEntry is one append-only row of an order's history. ID breaks ties
// between entries written within the same clock tick.
type StatusEntry struct {
	ID        uint        `json:"-" gorm:"primaryKey"`
	OrderID   string      `json:"-" gorm:"type:varchar(36);not null;index"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(24);not null"`
	Timestamp time.Time   `json:"timestamp" gorm:"not null"`
}

// All returns every persisted model, in migration order.
func All() []any {
	return []any{&User{}, &Category{}, &MenuItem{}, &Order{}, &OrderItem{}, &StatusEntry{}}
}
