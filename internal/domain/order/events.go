package order

import (
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
)

// EventLine is the wire form of an order line inside events.
type EventLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func eventLines(lines []Line) []EventLine {
	out := make([]EventLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, EventLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// OrderCreatedEvent is emitted once a checkout has committed stock and the order.
type OrderCreatedEvent struct {
	OrderID       string      `json:"order_id"`
	OwnerUID      string      `json:"owner_uid"`
	CustomerEmail string      `json:"customer_email"`
	Lines         []EventLine `json:"lines"`
	TotalAmount   string      `json:"total_amount"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:       o.ID,
		OwnerUID:      o.OwnerUID,
		CustomerEmail: o.CustomerEmail,
		Lines:         eventLines(o.Lines),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		OccurredAt:    time.Now().UTC(),
	}
}

// OrderStatusChangedEvent is emitted after every applied fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID       string    `json:"order_id"`
	OwnerUID      string    `json:"owner_uid"`
	CustomerEmail string    `json:"customer_email"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	ActorUID      string    `json:"actor_uid"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

func NewOrderStatusChangedEvent(o *Order, from Status, actorUID string) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{
		OrderID:       o.ID,
		OwnerUID:      o.OwnerUID,
		CustomerEmail: o.CustomerEmail,
		From:          from,
		To:            o.Status,
		ActorUID:      actorUID,
		OccurredAt:    time.Now().UTC(),
	}
}

// OrderCancelledEvent lists the stock given back by a cancellation.
type OrderCancelledEvent struct {
	OrderID       string      `json:"order_id"`
	OwnerUID      string      `json:"owner_uid"`
	CustomerEmail string      `json:"customer_email"`
	Restored      []EventLine `json:"restored"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order) OrderCancelledEvent {
	return OrderCancelledEvent{
		OrderID:       o.ID,
		OwnerUID:      o.OwnerUID,
		CustomerEmail: o.CustomerEmail,
		Restored:      eventLines(o.Lines),
		OccurredAt:    time.Now().UTC(),
	}
}

// PaymentStatusChangedEvent is emitted when the payment callback updates an order.
type PaymentStatusChangedEvent struct {
	OrderID    string         `json:"order_id"`
	OwnerUID   string         `json:"owner_uid"`
	From       payment.Status `json:"from"`
	To         payment.Status `json:"to"`
	OccurredAt time.Time      `json:"occurred_at"`
}

func (PaymentStatusChangedEvent) EventName() string { return "order.payment_status_changed" }

func NewPaymentStatusChangedEvent(o *Order, from payment.Status) PaymentStatusChangedEvent {
	return PaymentStatusChangedEvent{
		OrderID:    o.ID,
		OwnerUID:   o.OwnerUID,
		From:       from,
		To:         o.PaymentStatus,
		OccurredAt: time.Now().UTC(),
	}
}

func (e OrderCreatedEvent) AggregateID() string         { return e.OrderID }
func (e OrderStatusChangedEvent) AggregateID() string   { return e.OrderID }
func (e OrderCancelledEvent) AggregateID() string       { return e.OrderID }
func (e PaymentStatusChangedEvent) AggregateID() string { return e.OrderID }

// EventNames lists every order event the engine publishes.
func EventNames() []string {
	return []string{
		OrderCreatedEvent{}.EventName(),
		OrderStatusChangedEvent{}.EventName(),
		OrderCancelledEvent{}.EventName(),
		PaymentStatusChangedEvent{}.EventName(),
	}
}
