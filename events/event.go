// Package events fans order and stock changes out to connected clients and,
// optionally, to a message broker. Delivery is best effort: clients treat
// events as a hint to refetch over REST.
package events

import (
	"context"

	"github.com/ironspideychinu/TuckHub/inventory"
	"github.com/ironspideychinu/TuckHub/models"
)

type Type string

const (
	OrderCreated   Type = "order:created"
	OrderUpdated   Type = "order:updated"
	StockUpdated   Type = "stock:updated"
	RunnerAssigned Type = "runner:assigned"
)

// Event is the envelope written to every listener.
type Event struct {
	Type Type `json:"event"`
	Data any  `json:"data"`
	// Key groups related events for brokers that partition by key.
	Key string `json:"-"`
}

type orderPayload struct {
	Order *models.Order `json:"order"`
}

type runnerPayload struct {
	OrderID  string `json:"orderId"`
	RunnerID string `json:"runnerId"`
}

func NewOrderCreated(order *models.Order) Event {
	return Event{Type: OrderCreated, Data: orderPayload{Order: order}, Key: order.ID}
}

func NewOrderUpdated(order *models.Order) Event {
	return Event{Type: OrderUpdated, Data: orderPayload{Order: order}, Key: order.ID}
}

func NewStockUpdated(level inventory.Level) Event {
	return Event{Type: StockUpdated, Data: level, Key: level.ItemID}
}

func NewRunnerAssigned(orderID, runnerID string) Event {
	return Event{Type: RunnerAssigned, Data: runnerPayload{OrderID: orderID, RunnerID: runnerID}, Key: orderID}
}

// Publisher delivers an event to some audience. Publish never blocks on slow
// listeners and never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Multi publishes to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) {
	for _, p := range m {
		p.Publish(ctx, e)
	}
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
