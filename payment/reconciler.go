package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ironspideychinu/TuckHub/apperr"
	"github.com/ironspideychinu/TuckHub/inventory"
	"github.com/ironspideychinu/TuckHub/models"
	"github.com/ironspideychinu/TuckHub/statemachine"
)

const EventPaymentCaptured = "payment.captured"

// CheckoutConfirmation is what the client reports after completing checkout.
type CheckoutConfirmation struct {
	OrderID          string
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// WebhookEvent is the subset of the gateway's webhook body we act on.
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string            `json:"id"`
				OrderID string            `json:"order_id"`
				Notes   map[string]string `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// Outcome describes what a confirmation did.
type Outcome struct {
	Order *models.Order
	// Applied is true only for the one confirmation that moved the order out
	// of pending_payment. Duplicates and race losers see false.
	Applied bool
	// Ignored is set for webhook events that are not payment captures.
	Ignored bool
	Levels  []inventory.Level
}

// Reconciler turns untrusted payment confirmations into exactly one order
// transition and one stock decrement per order.
type Reconciler struct {
	db            *gorm.DB
	machine       *statemachine.Machine
	ledger        *inventory.Ledger
	keySecret     string
	webhookSecret string
	logger        *zap.Logger
}

func NewReconciler(db *gorm.DB, machine *statemachine.Machine, ledger *inventory.Ledger, keySecret, webhookSecret string, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		db:            db,
		machine:       machine,
		ledger:        ledger,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		logger:        logger,
	}
}

// VerifyCheckout handles the direct client callback.
func (r *Reconciler) VerifyCheckout(ctx context.Context, c CheckoutConfirmation) (Outcome, error) {
	if c.OrderID == "" || c.GatewayOrderID == "" || c.GatewayPaymentID == "" || c.Signature == "" {
		return Outcome{}, fmt.Errorf("%w: orderId, gatewayOrderId, gatewayPaymentId and signature are required", apperr.ErrValidation)
	}
	if !Verify(r.keySecret, CheckoutPayload(c.GatewayOrderID, c.GatewayPaymentID), c.Signature) {
		r.logger.Warn("Checkout signature verification failed",
			zap.String("order_id", c.OrderID),
			zap.String("gateway_order_id", c.GatewayOrderID),
			zap.String("gateway_payment_id", c.GatewayPaymentID),
		)
		return Outcome{}, apperr.ErrInvalidSignature
	}

	return r.confirm(ctx, c.GatewayPaymentID, func(tx *gorm.DB) (*models.Order, error) {
		order, err := models.LoadOrder(tx, c.OrderID)
		if err != nil {
			return nil, err
		}
		if order.PaymentRef == nil || *order.PaymentRef != c.GatewayOrderID {
			return nil, fmt.Errorf("%w: order %s", apperr.ErrPaymentMismatch, c.OrderID)
		}
		return order, nil
	})
}

// VerifyWebhook handles an asynchronous gateway push. payload must be the raw
// request body exactly as received.
func (r *Reconciler) VerifyWebhook(ctx context.Context, payload []byte, signature string) (Outcome, error) {
	if !Verify(r.webhookSecret, payload, signature) {
		r.logger.Warn("Webhook signature verification failed", zap.Int("payload_bytes", len(payload)))
		return Outcome{}, apperr.ErrInvalidSignature
	}

	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return Outcome{}, fmt.Errorf("%w: malformed webhook body", apperr.ErrValidation)
	}
	if event.Event != EventPaymentCaptured {
		r.logger.Info("Ignoring webhook event", zap.String("event", event.Event))
		return Outcome{Ignored: true}, nil
	}

	entity := event.Payload.Payment.Entity
	return r.confirm(ctx, entity.ID, func(tx *gorm.DB) (*models.Order, error) {
		if entity.OrderID != "" {
			return models.LoadOrderByPaymentRef(tx, entity.OrderID)
		}
		if id := entity.Notes["orderId"]; id != "" {
			return models.LoadOrder(tx, id)
		}
		return nil, fmt.Errorf("%w: webhook carries no order reference", apperr.ErrOrderNotFound)
	})
}

// confirm is the shared exactly-once path. The status compare-and-swap in
// Machine.Apply is the critical section: of any number of concurrent callers
// for one order, only one commits the transition and the stock deduction.
func (r *Reconciler) confirm(ctx context.Context, paymentID string, locate func(tx *gorm.DB) (*models.Order, error)) (Outcome, error) {
	var out Outcome

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := locate(tx)
		if err != nil {
			return err
		}
		out.Order = order

		if order.Status != models.OrderStatusPendingPayment {
			return nil
		}

		if err := r.machine.Apply(ctx, tx, order, models.OrderStatusPlaced); err != nil {
			if errors.Is(err, apperr.ErrConflict) {
				return nil
			}
			return err
		}

		if paymentID != "" {
			if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
				Update("payment_id", paymentID).Error; err != nil {
				return fmt.Errorf("record payment id on order %s: %w", order.ID, err)
			}
			order.PaymentID = &paymentID
		}

		// Same row order as Ledger.ReserveAll.
		items := slices.Clone(order.Items)
		slices.SortFunc(items, func(a, b models.OrderItem) int { return strings.Compare(a.MenuItemID, b.MenuItemID) })

		ledger := r.ledger.WithTx(tx)
		for _, item := range items {
			level, oversold, err := ledger.Deduct(ctx, item.MenuItemID, item.Quantity)
			if err != nil {
				return err
			}
			if oversold {
				r.logger.Warn("Paid order oversold stock",
					zap.String("order_id", order.ID),
					zap.String("item_id", item.MenuItemID),
					zap.Int("qty", item.Quantity),
				)
			}
			out.Levels = append(out.Levels, level)
		}

		out.Applied = true
		return nil
	})
	if err != nil {
		return Outcome{}, err
	}

	if !out.Applied {
		r.logger.Info("Payment already processed", zap.String("order_id", out.Order.ID), zap.String("status", string(out.Order.Status)))
		// The loaded copy may predate the winner's commit.
		if fresh, err := models.LoadOrder(r.db.WithContext(ctx), out.Order.ID); err == nil {
			out.Order = fresh
		}
	}
	return out, nil
}
