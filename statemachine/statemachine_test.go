package statemachine

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/models"
	"github.com/ironspideychinu/TuckHub/models/modeltest"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		flow     Flow
		from, to models.OrderStatus
		wantNoop bool
		wantErr  error
	}{
		{name: "payment_confirms", flow: Pickup, from: models.OrderStatusPendingPayment, to: models.OrderStatusPlaced},
		{name: "placed_to_making", flow: Pickup, from: models.OrderStatusPlaced, to: models.OrderStatusMaking},
		{name: "ready_to_completed_pickup", flow: Pickup, from: models.OrderStatusReady, to: models.OrderStatusCompleted},
		{name: "ready_to_delivering", flow: Delivery, from: models.OrderStatusReady, to: models.OrderStatusDelivering},
		{name: "same_status", flow: Pickup, from: models.OrderStatusMaking, to: models.OrderStatusMaking, wantNoop: true},
		{name: "skip_ahead", flow: Pickup, from: models.OrderStatusPlaced, to: models.OrderStatusCompleted, wantErr: apperr.ErrInvalidTransition},
		{name: "backwards", flow: Pickup, from: models.OrderStatusReady, to: models.OrderStatusMaking, wantErr: apperr.ErrInvalidTransition},
		{name: "delivery_skips_delivering", flow: Delivery, from: models.OrderStatusReady, to: models.OrderStatusCompleted, wantErr: apperr.ErrInvalidTransition},
		{name: "delivering_outside_delivery_flow", flow: Pickup, from: models.OrderStatusReady, to: models.OrderStatusDelivering, wantErr: apperr.ErrInvalidStatus},
		{name: "unknown_status", flow: Pickup, from: models.OrderStatusPlaced, to: "cancelled", wantErr: apperr.ErrInvalidStatus},
		{name: "from_terminal", flow: Pickup, from: models.OrderStatusCompleted, to: models.OrderStatusPlaced, wantErr: apperr.ErrInvalidTransition},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			noop, err := New(tt.flow).Check(tt.from, tt.to)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if noop != tt.wantNoop {
				t.Fatalf("noop = %v, want %v", noop, tt.wantNoop)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()
	m := New(Delivery)
	if !m.Terminal(models.OrderStatusCompleted) {
		t.Fatal("completed must be terminal")
	}
	if m.Terminal(models.OrderStatusDelivering) {
		t.Fatal("delivering must not be terminal")
	}
}

func seedOrder(t *testing.T, db *gorm.DB, m *Machine, status models.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:      "student-1",
		ServiceFee:  decimal.NewFromInt(5),
		TotalAmount: decimal.NewFromInt(35),
		Items: []models.OrderItem{
			{MenuItemID: "A", Name: "Sandwich", UnitPrice: decimal.NewFromInt(15), Quantity: 2},
		},
	}
	m.Begin(order, status)
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return order
}

func TestTransitionWalksPickupFlow(t *testing.T) {
	t.Parallel()
	db := modeltest.NewDB(t)
	m := New(Pickup)
	order := seedOrder(t, db, m, models.OrderStatusPlaced)

	path := []models.OrderStatus{models.OrderStatusMaking, models.OrderStatusReady, models.OrderStatusCompleted}
	for i, status := range path {
		updated, changed, err := m.Transition(context.Background(), db, order.ID, status)
		if err != nil {
			t.Fatalf("transition to %s: %v", status, err)
		}
		if !changed {
			t.Fatalf("transition to %s reported no change", status)
		}
		if updated.Status != status || updated.LastStatus() != status {
			t.Fatalf("status = %s, last history = %s, want %s", updated.Status, updated.LastStatus(), status)
		}
		if got, want := len(updated.StatusHistory), i+2; got != want {
			t.Fatalf("history length = %d, want %d", got, want)
		}
	}

	reloaded, err := models.LoadOrder(db, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(reloaded.StatusHistory); i++ {
		if reloaded.StatusHistory[i].Timestamp.Before(reloaded.StatusHistory[i-1].Timestamp) {
			t.Fatal("history is not ordered by time")
		}
	}
}

func TestTransitionRejectsNonAdjacent(t *testing.T) {
	t.Parallel()
	db := modeltest.NewDB(t)
	m := New(Pickup)
	order := seedOrder(t, db, m, models.OrderStatusPlaced)

	_, _, err := m.Transition(context.Background(), db, order.ID, models.OrderStatusCompleted)
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}

	reloaded, err := models.LoadOrder(db, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Status != models.OrderStatusPlaced || len(reloaded.StatusHistory) != 1 {
		t.Fatalf("order mutated: status %s, history %d", reloaded.Status, len(reloaded.StatusHistory))
	}
}

func TestTransitionIdempotentReapply(t *testing.T) {
	t.Parallel()
	db := modeltest.NewDB(t)
	m := New(Pickup)
	order := seedOrder(t, db, m, models.OrderStatusMaking)

	updated, changed, err := m.Transition(context.Background(), db, order.ID, models.OrderStatusMaking)
	if err != nil {
		t.Fatal(err)
	}
	if changed || len(updated.StatusHistory) != 1 {
		t.Fatalf("changed = %v, history = %d; want no-op", changed, len(updated.StatusHistory))
	}
}

func TestTransitionGuardVetoes(t *testing.T) {
	t.Parallel()
	db := modeltest.NewDB(t)
	m := New(Pickup)
	order := seedOrder(t, db, m, models.OrderStatusReady)

	veto := func(*models.Order) error { return apperr.ErrOrderNotFound }
	_, _, err := m.Transition(context.Background(), db, order.ID, models.OrderStatusCompleted, veto)
	if !errors.Is(err, apperr.ErrOrderNotFound) {
		t.Fatalf("err = %v, want guard error", err)
	}
}

func TestTransitionMissingOrder(t *testing.T) {
	t.Parallel()
	db := modeltest.NewDB(t)

	_, _, err := New(Pickup).Transition(context.Background(), db, "nope", models.OrderStatusMaking)
	if !errors.Is(err, apperr.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestApplyLosesRace(t *testing.T) {
	t.Parallel()
	db := modeltest.NewDB(t)
	m := New(Pickup)
	order := seedOrder(t, db, m, models.OrderStatusPendingPayment)

	stale := *order
	if err := m.Apply(context.Background(), db, order, models.OrderStatusPlaced); err != nil {
		t.Fatal(err)
	}
	err := m.Apply(context.Background(), db, &stale, models.OrderStatusPlaced)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	reloaded, err := models.LoadOrder(db, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.StatusHistory) != 2 {
		t.Fatalf("history = %d entries, want 2", len(reloaded.StatusHistory))
	}
}
