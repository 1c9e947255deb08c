package notification

import (
	"context"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const workerService = "notification-worker"

// Message is a customer-facing notice. Delivery is the Notifier's concern.
type Message struct {
	Kind    string
	To      string
	Subject string
	Body    string
	OrderID string
}

// Notifier is the outbound delivery port (email, push, ...).
type Notifier interface {
	Notify(ctx context.Context, m Message) error
}

// Worker turns committed order events into customer notifications.
type Worker struct {
	notifier   Notifier
	subscriber domoutbox.Subscriber
	inst       *application.Instrument
}

func NewWorker(notifier Notifier, subscriber domoutbox.Subscriber, tel observability.Observability) *Worker {
	return &Worker{
		notifier:   notifier,
		subscriber: subscriber,
		inst:       application.NewInstrument(workerService, tel),
	}
}

// Start subscribes the worker. Middlewares wrap every handler, outermost first.
func (w *Worker) Start(middlewares ...func(domoutbox.Handler) domoutbox.Handler) {
	if w.subscriber == nil || w.notifier == nil {
		return
	}
	var h domoutbox.Handler = w.handle
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	w.subscriber.Subscribe(domorder.OrderCreatedEvent{}.EventName(), h)
	w.subscriber.Subscribe(domorder.OrderStatusChangedEvent{}.EventName(), h)
}

func (w *Worker) handle(ctx context.Context, e domoutbox.Event) (err error) {
	const useCase = "notification.order_event"
	msg, ok := messageFor(e)
	if !ok {
		return nil
	}

	ctx, run := w.inst.Start(ctx, useCase, "NotifyCustomer",
		attribute.String("event", e.EventName()),
		attribute.String("order.id", msg.OrderID),
	)
	defer func() { run.End(err) }()
	run.Annotate(
		observability.F("event", e.EventName()),
		observability.F("order_id", msg.OrderID),
		observability.F("kind", msg.Kind),
	)

	if msg.To == "" {
		run.SetStatus("NO_RECIPIENT")
		return nil
	}
	if err := w.notifier.Notify(ctx, msg); err != nil {
		run.Fail("NOTIFY_FAILED")
		return fmt.Errorf("notification: deliver %s for %s: %w", msg.Kind, msg.OrderID, err)
	}
	return nil
}

func messageFor(e domoutbox.Event) (Message, bool) {
	switch evt := e.(type) {
	case domorder.OrderCreatedEvent:
		return Message{
			Kind:    "order_confirmation",
			To:      evt.CustomerEmail,
			OrderID: evt.OrderID,
			Subject: fmt.Sprintf("Order %s received", evt.OrderID),
			Body:    fmt.Sprintf("We received your order %s (%d line(s), total %s).", evt.OrderID, len(evt.Lines), evt.TotalAmount),
		}, true
	case domorder.OrderStatusChangedEvent:
		return Message{
			Kind:    "order_status",
			To:      evt.CustomerEmail,
			OrderID: evt.OrderID,
			Subject: fmt.Sprintf("Order %s is %s", evt.OrderID, evt.To),
			Body:    fmt.Sprintf("Your order %s moved from %s to %s.", evt.OrderID, evt.From, evt.To),
		}, true
	}
	return Message{}, false
}
