// Package statemachine enforces the fixed order status graph and persists
// transitions together with their history entry.
package statemachine

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/models"
)

// Flow is an ordered fulfilment path starting at placed.
type Flow struct {
	Name  string
	Steps []models.OrderStatus
}

var (
	Pickup = Flow{Name: "pickup", Steps: []models.OrderStatus{
		models.OrderStatusPlaced,
		models.OrderStatusMaking,
		models.OrderStatusReady,
		models.OrderStatusCompleted,
	}}
	Delivery = Flow{Name: "delivery", Steps: []models.OrderStatus{
		models.OrderStatusPlaced,
		models.OrderStatusMaking,
		models.OrderStatusReady,
		models.OrderStatusDelivering,
		models.OrderStatusCompleted,
	}}
)

// FlowFor picks the delivery-capable flow when runners deliver orders.
func FlowFor(deliveryEnabled bool) Flow {
	if deliveryEnabled {
		return Delivery
	}
	return Pickup
}

// Guard vetoes a transition after the order is loaded.
type Guard func(order *models.Order) error

type Machine struct {
	flow Flow
	now  func() time.Time
}

func New(flow Flow) *Machine {
	return &Machine{flow: flow, now: time.Now}
}

func (m *Machine) Flow() Flow {
	return m.flow
}

// Next returns the only status reachable from `from`.
func (m *Machine) Next(from models.OrderStatus) (models.OrderStatus, bool) {
	if from == models.OrderStatusPendingPayment {
		return models.OrderStatusPlaced, true
	}
	for i, s := range m.flow.Steps {
		if s == from && i+1 < len(m.flow.Steps) {
			return m.flow.Steps[i+1], true
		}
	}
	return "", false
}

// Terminal reports whether no transition leaves the status.
func (m *Machine) Terminal(s models.OrderStatus) bool {
	_, ok := m.Next(s)
	return !ok
}

// Check validates from -> to. Re-applying the current status is a no-op.
func (m *Machine) Check(from, to models.OrderStatus) (noop bool, err error) {
	if !m.known(to) {
		return false, fmt.Errorf("%w: %q is not part of the %s flow", apperr.ErrInvalidStatus, to, m.flow.Name)
	}
	if from == to {
		return true, nil
	}
	if next, ok := m.Next(from); !ok || next != to {
		return false, fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, from, to)
	}
	return false, nil
}

func (m *Machine) known(s models.OrderStatus) bool {
	if s == models.OrderStatusPendingPayment {
		return true
	}
	for _, step := range m.flow.Steps {
		if step == s {
			return true
		}
	}
	return false
}

// Begin initialises a new order's status and history.
func (m *Machine) Begin(order *models.Order, initial models.OrderStatus) {
	order.Status = initial
	order.StatusHistory = []models.StatusEntry{{Status: initial, Timestamp: m.now()}}
}

// Apply moves an already loaded order to `to` inside tx. The status column is
// compare-and-swapped against the loaded value; losing that race yields
// ErrConflict and nothing is written.
func (m *Machine) Apply(ctx context.Context, tx *gorm.DB, order *models.Order, to models.OrderStatus) error {
	from := order.Status
	now := m.now()

	res := tx.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(map[string]any{"status": to, "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("update order %s status: %w", order.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %s is no longer %s", apperr.ErrConflict, order.ID, from)
	}

	entry := models.StatusEntry{OrderID: order.ID, Status: to, Timestamp: now}
	if err := tx.WithContext(ctx).Create(&entry).Error; err != nil {
		return fmt.Errorf("append order %s history: %w", order.ID, err)
	}

	order.Status = to
	order.UpdatedAt = now
	order.StatusHistory = append(order.StatusHistory, entry)
	return nil
}

// Transition loads the order, validates adjacency, runs guards and applies
// the change in one transaction. changed is false for idempotent re-application.
func (m *Machine) Transition(ctx context.Context, db *gorm.DB, orderID string, to models.OrderStatus, guards ...Guard) (order *models.Order, changed bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loaded, err := models.LoadOrder(tx, orderID)
		if err != nil {
			return err
		}
		for _, guard := range guards {
			if err := guard(loaded); err != nil {
				return err
			}
		}

		noop, err := m.Check(loaded.Status, to)
		if err != nil {
			return err
		}
		order = loaded
		if noop {
			return nil
		}
		if err := m.Apply(ctx, tx, loaded, to); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, changed, nil
}
