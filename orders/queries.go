package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/models"
)

func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	return models.LoadOrder(s.db.WithContext(ctx), orderID)
}

// ListForUser returns the orders a user placed, newest first.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.Order, error) {
	return s.list(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("user_id = ?", userID) })
}

// ListForRunner returns the orders assigned to a runner, newest first.
func (s *Service) ListForRunner(ctx context.Context, runnerID string) ([]models.Order, error) {
	return s.list(ctx, func(db *gorm.DB) *gorm.DB { return db.Where("assigned_runner_id = ?", runnerID) })
}

// ListAll returns every order, newest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Order, error) {
	return s.list(ctx, nil)
}

func (s *Service) list(ctx context.Context, filter func(*gorm.DB) *gorm.DB) ([]models.Order, error) {
	query := models.WithOrderDetails(s.db.WithContext(ctx))
	if filter != nil {
		query = filter(query)
	}

	orders := []models.Order{}
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

type SalesTotal struct {
	TotalSales decimal.Decimal `json:"totalSales"`
	Orders     int64           `json:"orders"`
}

type ItemSales struct {
	Name    string          `json:"name"`
	Qty     int64           `json:"qty"`
	Revenue decimal.Decimal `json:"revenue"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type Report struct {
	TotalSales    SalesTotal  `json:"totalSales"`
	ItemWise      []ItemSales `json:"itemWise"`
	BusiestByHour []HourCount `json:"busiestByHour"`
}

// Report aggregates paid orders. Orders still awaiting payment are left out.
func (s *Service) Report(ctx context.Context) (Report, error) {
	db := s.db.WithContext(ctx)

	var report Report
	if err := db.Model(&models.Order{}).
		Select("COALESCE(SUM(total_amount), 0) AS total_sales, COUNT(*) AS orders").
		Where("orders.status <> ?", models.OrderStatusPendingPayment).
		Scan(&report.TotalSales).Error; err != nil {
		return Report{}, fmt.Errorf("report total sales: %w", err)
	}

	report.ItemWise = []ItemSales{}
	if err := db.Model(&models.OrderItem{}).
		Select("order_items.name AS name, SUM(order_items.quantity) AS qty, SUM(order_items.unit_price * order_items.quantity) AS revenue").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.status <> ?", models.OrderStatusPendingPayment).
		Group("order_items.name").
		Order("revenue DESC").
		Scan(&report.ItemWise).Error; err != nil {
		return Report{}, fmt.Errorf("report item sales: %w", err)
	}

	// Hour extraction differs between sqlite and postgres, so bucket in Go.
	var placedAt []time.Time
	if err := db.Model(&models.Order{}).Where("orders.status <> ?", models.OrderStatusPendingPayment).Pluck("created_at", &placedAt).Error; err != nil {
		return Report{}, fmt.Errorf("report orders by hour: %w", err)
	}
	report.BusiestByHour = byHour(placedAt)

	return report, nil
}

func byHour(times []time.Time) []HourCount {
	counts := make(map[int]int)
	for _, t := range times {
		counts[t.Hour()]++
	}
	out := make([]HourCount, 0, len(counts))
	for hour, n := range counts {
		out = append(out, HourCount{Hour: hour, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}
