package models

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
)

// WithOrderDetails preloads line items and history in insertion order.
func WithOrderDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp ASC, id ASC") })
}

// LoadOrder fetches one order with its details, mapping a miss to ErrOrderNotFound.
func LoadOrder(db *gorm.DB, id string) (*Order, error) {
	var order Order
	if err := WithOrderDetails(db).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", apperr.ErrOrderNotFound, id)
		}
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	return &order, nil
}

// LoadOrderByPaymentRef fetches the order bound to a gateway order id.
func LoadOrderByPaymentRef(db *gorm.DB, ref string) (*Order, error) {
	var order Order
	if err := WithOrderDetails(db).First(&order, "payment_ref = ?", ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: payment reference %s", apperr.ErrOrderNotFound, ref)
		}
		return nil, fmt.Errorf("load order by payment reference %s: %w", ref, err)
	}
	return &order, nil
}
