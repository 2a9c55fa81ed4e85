// Package inventory owns menu item stock counts and availability. Every stock
// mutation is a single conditional UPDATE so concurrent orders cannot oversell.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/models"
)

// Line is a request for qty units of one item.
type Line struct {
	ItemID string
	Qty    int
}

// Level is the stock state of an item after a ledger operation.
type Level struct {
	ItemID    string `json:"itemId"`
	Available bool   `json:"available"`
	Stock     *int   `json:"stock"`
}

// Reservation records units taken from an item so they can be given back.
type Reservation struct {
	Line
	Level Level
	// Changed is false for untracked items, whose stock is never touched.
	Changed bool
}

type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLedger(db *gorm.DB, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// WithTx returns a ledger whose operations join the given transaction.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, logger: l.logger}
}

// CheckAndReserve atomically takes qty units of an item. Tracked items fail
// with ErrInsufficientStock when fewer than qty units remain; untracked items
// only need to be available.
func (l *Ledger) CheckAndReserve(ctx context.Context, itemID string, qty int) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, fmt.Errorf("%w: quantity must be positive", apperr.ErrValidation)
	}
	db := l.db.WithContext(ctx)

	res := db.Model(&models.MenuItem{}).
		Where("id = ? AND available = ? AND stock IS NOT NULL AND stock >= ?", itemID, true, qty).
		Updates(map[string]any{
			"stock":     gorm.Expr("stock - ?", qty),
			"available": gorm.Expr("stock > ?", qty),
		})
	if res.Error != nil {
		return Reservation{}, fmt.Errorf("reserve %s: %w", itemID, res.Error)
	}

	item, err := l.load(db, itemID)
	if err != nil {
		return Reservation{}, err
	}
	r := Reservation{Line: Line{ItemID: itemID, Qty: qty}, Level: levelOf(item)}

	if res.RowsAffected == 1 {
		r.Changed = true
		return r, nil
	}
	if !item.Tracked() && item.Available {
		return r, nil
	}
	return Reservation{}, fmt.Errorf("%w: %s", apperr.ErrInsufficientStock, item.Name)
}

// Restore gives back qty units of a tracked item and re-enables it.
func (l *Ledger) Restore(ctx context.Context, itemID string, qty int) (Level, error) {
	if qty <= 0 {
		return Level{}, fmt.Errorf("%w: quantity must be positive", apperr.ErrValidation)
	}
	db := l.db.WithContext(ctx)

	res := db.Model(&models.MenuItem{}).
		Where("id = ? AND stock IS NOT NULL", itemID).
		Updates(map[string]any{
			"stock":     gorm.Expr("stock + ?", qty),
			"available": gorm.Expr("stock + ? > 0", qty),
		})
	if res.Error != nil {
		return Level{}, fmt.Errorf("restore %s: %w", itemID, res.Error)
	}

	item, err := l.load(db, itemID)
	if err != nil {
		return Level{}, err
	}
	return levelOf(item), nil
}

// ReserveAll reserves every line or none: when a line fails, the lines that
// already succeeded are restored before the error is returned. Lines are taken
// in item id order so concurrent orders lock rows in the same sequence.
func (l *Ledger) ReserveAll(ctx context.Context, lines []Line) ([]Reservation, error) {
	lines = slices.Clone(lines)
	slices.SortFunc(lines, func(a, b Line) int { return strings.Compare(a.ItemID, b.ItemID) })

	reserved := make([]Reservation, 0, len(lines))
	for _, line := range lines {
		r, err := l.CheckAndReserve(ctx, line.ItemID, line.Qty)
		if err != nil {
			l.Release(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, r)
	}
	return reserved, nil
}

// Release restores every changed reservation. Failures are logged, not
// returned, because Release runs on paths that are already failing.
func (l *Ledger) Release(ctx context.Context, reserved []Reservation) []Level {
	levels := make([]Level, 0, len(reserved))
	for _, r := range reserved {
		if !r.Changed {
			continue
		}
		level, err := l.Restore(context.WithoutCancel(ctx), r.ItemID, r.Qty)
		if err != nil {
			l.logger.Error("Failed to restore reserved stock",
				zap.String("item_id", r.ItemID),
				zap.Int("qty", r.Qty),
				zap.Error(err),
			)
			continue
		}
		levels = append(levels, level)
	}
	return levels
}

// Deduct takes qty units of a tracked item, flooring the count at zero. It is
// used when payment has already been captured and the sale cannot be refused.
// oversold reports that fewer than qty units were left.
func (l *Ledger) Deduct(ctx context.Context, itemID string, qty int) (level Level, oversold bool, err error) {
	db := l.db.WithContext(ctx)

	before, err := l.load(db, itemID)
	if errors.Is(err, apperr.ErrItemNotFound) {
		// The item was deleted after the order snapshot; nothing to count.
		return Level{ItemID: itemID}, false, nil
	}
	if err != nil {
		return Level{}, false, err
	}
	if !before.Tracked() {
		return levelOf(before), false, nil
	}

	res := db.Model(&models.MenuItem{}).
		Where("id = ? AND stock IS NOT NULL", itemID).
		Updates(map[string]any{
			"stock":     gorm.Expr("CASE WHEN stock > ? THEN stock - ? ELSE 0 END", qty, qty),
			"available": gorm.Expr("stock > ?", qty),
		})
	if res.Error != nil {
		return Level{}, false, fmt.Errorf("deduct %s: %w", itemID, res.Error)
	}

	after, err := l.load(db, itemID)
	if err != nil {
		return Level{}, false, err
	}
	return levelOf(after), *before.Stock < qty, nil
}

// SetLevel overwrites stock and availability from a staff edit, keeping
// available == stock > 0 for tracked items. expected is the stock the editor
// read; if a reservation changed it since, nothing is written and
// ErrConflict is returned.
func (l *Ledger) SetLevel(ctx context.Context, itemID string, expected, stock *int, available bool) (Level, error) {
	if stock != nil && *stock < 0 {
		return Level{}, fmt.Errorf("%w: stock must not be negative", apperr.ErrValidation)
	}
	if stock != nil {
		available = *stock > 0
	}
	db := l.db.WithContext(ctx)

	query := db.Model(&models.MenuItem{}).Where("id = ?", itemID)
	if expected == nil {
		query = query.Where("stock IS NULL")
	} else {
		query = query.Where("stock = ?", *expected)
	}
	res := query.Updates(map[string]any{"stock": stock, "available": available})
	if res.Error != nil {
		return Level{}, fmt.Errorf("set stock %s: %w", itemID, res.Error)
	}

	item, err := l.load(db, itemID)
	if err != nil {
		return Level{}, err
	}
	if res.RowsAffected == 0 {
		return Level{}, fmt.Errorf("%w: stock of %s changed while editing, reload and retry", apperr.ErrConflict, item.Name)
	}
	return levelOf(item), nil
}

func (l *Ledger) load(db *gorm.DB, itemID string) (models.MenuItem, error) {
	var item models.MenuItem
	if err := db.First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return item, fmt.Errorf("%w: %s", apperr.ErrItemNotFound, itemID)
		}
		return item, fmt.Errorf("load item %s: %w", itemID, err)
	}
	return item, nil
}

func levelOf(item models.MenuItem) Level {
	return Level{ItemID: item.ID, Available: item.Available, Stock: item.Stock}
}
