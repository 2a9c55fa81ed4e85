// Package orders composes the ledger, the state machine, payment
// reconciliation and the event publisher into the order lifecycle.
package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/config"
	"github.com/ironspideychinu/TuckHub/events"
	"github.com/ironspideychinu/TuckHub/inventory"
	"github.com/ironspideychinu/TuckHub/models"
	"github.com/ironspideychinu/TuckHub/payment"
	"github.com/ironspideychinu/TuckHub/statemachine"
)

// ItemRequest is one requested line of a new order.
type ItemRequest struct {
	ItemID string `json:"itemId"`
	Qty    int    `json:"qty"`
}

// PaymentIntent is what the client needs to open the gateway checkout.
type PaymentIntent struct {
	GatewayOrderID string          `json:"gatewayOrderId"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	OrderID        string          `json:"orderId"`
}

// Placement is the result of PlaceOrder. Intent is set only in the payment flow.
type Placement struct {
	Order  *models.Order
	Intent *PaymentIntent
}

type Settings struct {
	Flow       config.OrderFlow
	ServiceFee decimal.Decimal
	Currency   string
}

type Service struct {
	db         *gorm.DB
	machine    *statemachine.Machine
	ledger     *inventory.Ledger
	reconciler *payment.Reconciler
	gateway    payment.Gateway
	publisher  events.Publisher
	settings   Settings
	logger     *zap.Logger
}

func NewService(
	db *gorm.DB,
	machine *statemachine.Machine,
	ledger *inventory.Ledger,
	reconciler *payment.Reconciler,
	gateway payment.Gateway,
	publisher events.Publisher,
	settings Settings,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:         db,
		machine:    machine,
		ledger:     ledger,
		reconciler: reconciler,
		gateway:    gateway,
		publisher:  publisher,
		settings:   settings,
		logger:     logger,
	}
}

func (s *Service) Flow() config.OrderFlow {
	return s.settings.Flow
}

// PlaceOrder runs the create-order variant the deployment is configured for.
func (s *Service) PlaceOrder(ctx context.Context, userID string, items []ItemRequest) (Placement, error) {
	if s.settings.Flow == config.FlowImmediate {
		order, err := s.PlaceOrderImmediate(ctx, userID, items)
		return Placement{Order: order}, err
	}
	intent, order, err := s.PlaceOrderWithPayment(ctx, userID, items)
	return Placement{Order: order, Intent: intent}, err
}

// PlaceOrderWithPayment prices the order, opens a gateway payment for it and
// stores the order as pending_payment with the gateway reference. No stock
// is taken until the payment is confirmed.
func (s *Service) PlaceOrderWithPayment(ctx context.Context, userID string, items []ItemRequest) (*PaymentIntent, *models.Order, error) {
	if s.gateway == nil {
		return nil, nil, fmt.Errorf("%w: payment flow is not configured", apperr.ErrUpstream)
	}

	lines, err := normalize(items)
	if err != nil {
		return nil, nil, err
	}
	snapshot, err := s.snapshot(s.db.WithContext(ctx), lines)
	if err != nil {
		return nil, nil, err
	}

	order := s.newOrder(userID, snapshot, models.OrderStatusPendingPayment)
	// The id is fixed before the gateway call so the intent can carry it and
	// the order is written once, already bound to its payment reference.
	order.ID = uuid.NewString()

	intent, err := s.gateway.CreateIntent(ctx, payment.IntentRequest{
		Amount:   order.TotalAmount,
		Currency: s.settings.Currency,
		Receipt:  "order_" + order.ID,
		Notes:    map[string]string{"orderId": order.ID, "userId": userID},
	})
	if err != nil {
		s.logger.Error("Failed to create payment intent", zap.String("order_id", order.ID), zap.Error(err))
		return nil, nil, err
	}
	order.PaymentRef = &intent.GatewayOrderID

	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("Created pending order",
		zap.String("order_id", order.ID),
		zap.String("gateway_order_id", intent.GatewayOrderID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	currency := intent.Currency
	if currency == "" {
		currency = s.settings.Currency
	}
	return &PaymentIntent{
		GatewayOrderID: intent.GatewayOrderID,
		Amount:         order.TotalAmount,
		Currency:       currency,
		OrderID:        order.ID,
	}, order, nil
}

// PlaceOrderImmediate reserves every line and stores the order as placed in
// one transaction. Any failed line leaves neither stock changes nor an order.
func (s *Service) PlaceOrderImmediate(ctx context.Context, userID string, items []ItemRequest) (*models.Order, error) {
	lines, err := normalize(items)
	if err != nil {
		return nil, err
	}

	var (
		order    *models.Order
		reserved []inventory.Reservation
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		snapshot, err := s.snapshot(tx, lines)
		if err != nil {
			return err
		}

		reserved, err = s.ledger.WithTx(tx).ReserveAll(ctx, lines)
		if err != nil {
			return err
		}

		order = s.newOrder(userID, snapshot, models.OrderStatusPlaced)
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Placed order", zap.String("order_id", order.ID), zap.String("total", order.TotalAmount.StringFixed(2)))

	s.publisher.Publish(ctx, events.NewOrderCreated(order))
	for _, r := range reserved {
		if r.Changed {
			s.publisher.Publish(ctx, events.NewStockUpdated(r.Level))
		}
	}
	return order, nil
}

// ConfirmCheckout applies a client-reported payment.
func (s *Service) ConfirmCheckout(ctx context.Context, c payment.CheckoutConfirmation) (*models.Order, error) {
	out, err := s.reconciler.VerifyCheckout(ctx, c)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, out)
	return out.Order, nil
}

// HandleWebhook applies a gateway-pushed payment event. Events other than
// captures are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	out, err := s.reconciler.VerifyWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}
	s.announce(ctx, out)
	return nil
}

func (s *Service) announce(ctx context.Context, out payment.Outcome) {
	if !out.Applied {
		return
	}
	s.publisher.Publish(ctx, events.NewOrderCreated(out.Order))
	for _, level := range out.Levels {
		if level.Stock != nil {
			s.publisher.Publish(ctx, events.NewStockUpdated(level))
		}
	}
}

// AdvanceStatus moves an order one step along the fulfilment flow. Callers
// must already have checked the actor may manage orders.
func (s *Service) AdvanceStatus(ctx context.Context, orderID string, target models.OrderStatus) (*models.Order, error) {
	order, changed, err := s.machine.Transition(ctx, s.db, orderID, target, awaitingPayment)
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("Order status changed", zap.String("order_id", order.ID), zap.String("status", string(order.Status)))
		s.publisher.Publish(ctx, events.NewOrderUpdated(order))
	}
	return order, nil
}

// awaitingPayment keeps unpaid orders out of the kitchen: only the payment
// path may move an order off pending_payment.
func awaitingPayment(order *models.Order) error {
	if order.Status == models.OrderStatusPendingPayment {
		return fmt.Errorf("%w: order %s is awaiting payment", apperr.ErrInvalidTransition, order.ID)
	}
	return nil
}

// AssignRunner hands an order to a runner.
func (s *Service) AssignRunner(ctx context.Context, orderID, runnerID string) (*models.Order, error) {
	if _, err := uuid.Parse(runnerID); err != nil {
		return nil, fmt.Errorf("%w: invalid runnerId", apperr.ErrValidation)
	}

	db := s.db.WithContext(ctx)
	var runner models.User
	if err := db.First(&runner, "id = ?", runnerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: runner %s does not exist", apperr.ErrValidation, runnerID)
		}
		return nil, fmt.Errorf("load runner %s: %w", runnerID, err)
	}
	if runner.Role != models.RoleRunner {
		return nil, fmt.Errorf("%w: user %s is not a runner", apperr.ErrValidation, runnerID)
	}

	var order *models.Order
	err := db.Transaction(func(tx *gorm.DB) error {
		loaded, err := models.LoadOrder(tx, orderID)
		if err != nil {
			return err
		}
		if loaded.Status == models.OrderStatusPendingPayment || s.machine.Terminal(loaded.Status) {
			return fmt.Errorf("%w: order %s is %s", apperr.ErrInvalidTransition, orderID, loaded.Status)
		}

		res := tx.Model(&models.Order{}).Where("id = ? AND status = ?", orderID, loaded.Status).
			Update("assigned_runner_id", runnerID)
		if res.Error != nil {
			return fmt.Errorf("assign runner to order %s: %w", orderID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %s changed during assignment", apperr.ErrConflict, orderID)
		}
		loaded.AssignedRunnerID = &runnerID
		order = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Runner assigned", zap.String("order_id", orderID), zap.String("runner_id", runnerID))
	s.publisher.Publish(ctx, events.NewRunnerAssigned(orderID, runnerID))
	return order, nil
}

// MarkDelivered completes an order on behalf of the runner it is assigned
// to. Orders assigned to anyone else are reported as missing.
func (s *Service) MarkDelivered(ctx context.Context, orderID, runnerID string) (*models.Order, error) {
	assignedToCaller := func(order *models.Order) error {
		if order.AssignedRunnerID == nil || *order.AssignedRunnerID != runnerID {
			return fmt.Errorf("%w: %s", apperr.ErrOrderNotFound, orderID)
		}
		return nil
	}

	order, changed, err := s.machine.Transition(ctx, s.db, orderID, models.OrderStatusCompleted, assignedToCaller)
	if err != nil {
		return nil, err
	}
	if changed {
		s.logger.Info("Order delivered", zap.String("order_id", orderID), zap.String("runner_id", runnerID))
		s.publisher.Publish(ctx, events.NewOrderUpdated(order))
	}
	return order, nil
}

// normalize validates requested lines and merges repeats of one item.
func normalize(items []ItemRequest) ([]inventory.Line, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items required", apperr.ErrValidation)
	}

	lines := make([]inventory.Line, 0, len(items))
	index := make(map[string]int, len(items))
	for _, it := range items {
		if it.ItemID == "" {
			return nil, fmt.Errorf("%w: itemId required", apperr.ErrValidation)
		}
		if it.Qty <= 0 {
			return nil, fmt.Errorf("%w: qty for %s must be positive", apperr.ErrValidation, it.ItemID)
		}
		if i, ok := index[it.ItemID]; ok {
			lines[i].Qty += it.Qty
			continue
		}
		index[it.ItemID] = len(lines)
		lines = append(lines, inventory.Line{ItemID: it.ItemID, Qty: it.Qty})
	}
	return lines, nil
}

// snapshot captures name and price of every line and checks it can be sold.
func (s *Service) snapshot(db *gorm.DB, lines []inventory.Line) ([]models.OrderItem, error) {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ItemID
	}

	var found []models.MenuItem
	if err := db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, fmt.Errorf("load menu items: %w", err)
	}
	byID := make(map[string]models.MenuItem, len(found))
	for _, item := range found {
		byID[item.ID] = item
	}

	snapshot := make([]models.OrderItem, 0, len(lines))
	for _, l := range lines {
		item, ok := byID[l.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", apperr.ErrItemNotFound, l.ItemID)
		}
		if !item.Orderable(l.Qty) {
			return nil, fmt.Errorf("%w: %s is not available in quantity %d", apperr.ErrInsufficientStock, item.Name, l.Qty)
		}
		snapshot = append(snapshot, models.OrderItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			UnitPrice:  item.Price,
			Quantity:   l.Qty,
		})
	}
	return snapshot, nil
}

// newOrder prices a snapshot once: the total is never recomputed later. Only
// orders paid through the gateway carry the service fee.
func (s *Service) newOrder(userID string, items []models.OrderItem, initial models.OrderStatus) *models.Order {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	fee := decimal.Zero
	if initial == models.OrderStatusPendingPayment {
		fee = s.settings.ServiceFee
	}
	order := &models.Order{
		UserID:      userID,
		Items:       items,
		ServiceFee:  fee,
		TotalAmount: subtotal.Add(fee),
	}
	s.machine.Begin(order, initial)
	return order
}
