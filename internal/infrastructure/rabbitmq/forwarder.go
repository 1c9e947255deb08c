package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
	amqp "github.com/rabbitmq/amqp091-go"
)

const peerRabbitMQ = "rabbitmq"

// Channel is the subset of *amqp.Channel the forwarder publishes through.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Forwarder republishes committed domain events to a topic exchange, routed by event name.
type Forwarder struct {
	ch       Channel
	exchange string
	log      observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewForwarder(ch Channel, exchange string, tel observability.Observability) *Forwarder {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Forwarder{
		ch:           ch,
		exchange:     exchange,
		log:          tel.Logger().With(observability.F("component", "rabbitmq_forwarder")),
		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

// Start subscribes the forwarder to every named event.
func (f *Forwarder) Start(sub domoutbox.Subscriber, eventNames ...string) {
	for _, name := range eventNames {
		sub.Subscribe(name, f.Forward)
	}
}

// Forward is a domoutbox.Handler.
func (f *Forwarder) Forward(ctx context.Context, e domoutbox.Event) error {
	name := e.EventName()
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal %s: %w", name, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         name,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if key := domoutbox.KeyOf(e); key != "" {
		msg.MessageId = name + ":" + key
	}

	start := time.Now()
	err = f.ch.PublishWithContext(ctx,
		f.exchange, // exchange
		name,       // routing key
		false,      // mandatory
		false,      // immediate
		msg,
	)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.extCounter.Add(1,
		observability.L("peer", peerRabbitMQ),
		observability.L("endpoint", name),
		observability.L("outcome", outcome),
	)
	f.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peerRabbitMQ),
		observability.L("endpoint", name),
	)
	if err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", name, err)
	}
	logctx.FromOr(ctx, f.log).Debug("event_forwarded",
		observability.F("exchange", f.exchange),
		observability.F("routing_key", name),
	)
	return nil
}
