package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/models/modeltest"
)

func newLedger(t *testing.T) (*Ledger, func(name string, stock *int) string) {
	t.Helper()
	db := modeltest.NewDB(t)
	ledger := NewLedger(db, zap.NewNop())
	seed := func(name string, stock *int) string {
		return modeltest.SeedItem(t, db, name, 10, stock).ID
	}
	return ledger, seed
}

func TestCheckAndReserve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		stock         *int
		qty           int
		wantErr       error
		wantStock     *int
		wantAvailable bool
	}{
		{name: "partial", stock: modeltest.Stock(5), qty: 2, wantStock: modeltest.Stock(3), wantAvailable: true},
		{name: "exhausts_stock", stock: modeltest.Stock(3), qty: 3, wantStock: modeltest.Stock(0), wantAvailable: false},
		{name: "too_many", stock: modeltest.Stock(2), qty: 3, wantErr: apperr.ErrInsufficientStock},
		{name: "sold_out", stock: modeltest.Stock(0), qty: 1, wantErr: apperr.ErrInsufficientStock},
		{name: "untracked", stock: nil, qty: 50, wantStock: nil, wantAvailable: true},
		{name: "zero_qty", stock: modeltest.Stock(5), qty: 0, wantErr: apperr.ErrValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ledger, seed := newLedger(t)
			id := seed("samosa", tt.stock)

			r, err := ledger.CheckAndReserve(context.Background(), id, tt.qty)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := r.Level.Stock; (got == nil) != (tt.wantStock == nil) || (got != nil && *got != *tt.wantStock) {
				t.Fatalf("stock = %v, want %v", got, tt.wantStock)
			}
			if r.Level.Available != tt.wantAvailable {
				t.Fatalf("available = %v, want %v", r.Level.Available, tt.wantAvailable)
			}
			if r.Changed != (tt.stock != nil) {
				t.Fatalf("changed = %v for stock %v", r.Changed, tt.stock)
			}
		})
	}
}

func TestCheckAndReserveUnknownItem(t *testing.T) {
	t.Parallel()
	ledger, _ := newLedger(t)

	_, err := ledger.CheckAndReserve(context.Background(), "missing", 1)
	if !errors.Is(err, apperr.ErrItemNotFound) {
		t.Fatalf("err = %v, want ErrItemNotFound", err)
	}
}

func TestConcurrentReservationsNeverOversell(t *testing.T) {
	t.Parallel()
	ledger, seed := newLedger(t)
	id := seed("chips", modeltest.Stock(5))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.CheckAndReserve(context.Background(), id, 3); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, apperr.ErrInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successes = %d, want 1", successes)
	}
	level, err := ledger.Restore(context.Background(), id, 1)
	if err != nil {
		t.Fatal(err)
	}
	if *level.Stock != 3 {
		t.Fatalf("stock after restore = %d, want 3", *level.Stock)
	}
}

func TestReserveAllCompensatesOnFailure(t *testing.T) {
	t.Parallel()
	ledger, seed := newLedger(t)
	tea := seed("tea", modeltest.Stock(4))
	coffee := seed("coffee", modeltest.Stock(4))

	// Lines are reserved in id order; the short item must come second.
	first, second := min(tea, coffee), max(tea, coffee)
	if _, err := ledger.SetLevel(context.Background(), second, modeltest.Stock(4), modeltest.Stock(1), true); err != nil {
		t.Fatal(err)
	}

	_, err := ledger.ReserveAll(context.Background(), []Line{
		{ItemID: second, Qty: 2},
		{ItemID: first, Qty: 4},
	})
	if !errors.Is(err, apperr.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	r, err := ledger.CheckAndReserve(context.Background(), first, 4)
	if err != nil {
		t.Fatalf("first item was not restored: %v", err)
	}
	if *r.Level.Stock != 0 || r.Level.Available {
		t.Fatalf("level = %+v, want empty and unavailable", r.Level)
	}
}

func TestRestoreReenablesItem(t *testing.T) {
	t.Parallel()
	ledger, seed := newLedger(t)
	id := seed("pie", modeltest.Stock(0))

	level, err := ledger.Restore(context.Background(), id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !level.Available || *level.Stock != 2 {
		t.Fatalf("level = %+v, want available with 2", level)
	}
}

func TestDeductFloorsAtZero(t *testing.T) {
	t.Parallel()
	ledger, seed := newLedger(t)
	id := seed("wrap", modeltest.Stock(1))

	level, oversold, err := ledger.Deduct(context.Background(), id, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !oversold {
		t.Fatal("expected oversold")
	}
	if *level.Stock != 0 || level.Available {
		t.Fatalf("level = %+v, want empty and unavailable", level)
	}
}

func TestSetLevelKeepsAvailabilityInvariant(t *testing.T) {
	t.Parallel()
	ledger, seed := newLedger(t)
	id := seed("juice", modeltest.Stock(2))

	level, err := ledger.SetLevel(context.Background(), id, modeltest.Stock(2), modeltest.Stock(0), true)
	if err != nil {
		t.Fatal(err)
	}
	if level.Available {
		t.Fatal("tracked item with zero stock must be unavailable")
	}

	level, err = ledger.SetLevel(context.Background(), id, modeltest.Stock(0), nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if level.Stock != nil || !level.Available {
		t.Fatalf("level = %+v, want untracked and available", level)
	}
}

func TestSetLevelRefusesStaleRead(t *testing.T) {
	t.Parallel()
	ledger, seed := newLedger(t)
	id := seed("wrap", modeltest.Stock(5))

	if _, err := ledger.CheckAndReserve(context.Background(), id, 3); err != nil {
		t.Fatal(err)
	}

	_, err := ledger.SetLevel(context.Background(), id, modeltest.Stock(5), modeltest.Stock(5), true)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	level, err := ledger.SetLevel(context.Background(), id, modeltest.Stock(2), modeltest.Stock(7), true)
	if err != nil {
		t.Fatal(err)
	}
	if *level.Stock != 7 {
		t.Fatalf("stock = %d, want 7", *level.Stock)
	}

	if _, err := ledger.SetLevel(context.Background(), "missing", nil, nil, true); !errors.Is(err, apperr.ErrItemNotFound) {
		t.Fatalf("missing item: err = %v", err)
	}
}

func TestReserveAllTakesLinesInIDOrder(t *testing.T) {
	t.Parallel()
	ledger, seed := newLedger(t)
	a := seed("a", modeltest.Stock(3))
	b := seed("b", modeltest.Stock(3))
	c := seed("c", nil)

	lines := []Line{{ItemID: c, Qty: 1}, {ItemID: b, Qty: 1}, {ItemID: a, Qty: 1}}
	reserved, err := ledger.ReserveAll(context.Background(), lines)
	if err != nil {
		t.Fatal(err)
	}
	if len(reserved) != 3 {
		t.Fatalf("reserved %d lines, want 3", len(reserved))
	}
	for i := 1; i < len(reserved); i++ {
		if reserved[i-1].ItemID > reserved[i].ItemID {
			t.Fatalf("reservations out of order: %s before %s", reserved[i-1].ItemID, reserved[i].ItemID)
		}
	}
	if lines[0].ItemID != c {
		t.Fatal("caller's lines were reordered")
	}
}
