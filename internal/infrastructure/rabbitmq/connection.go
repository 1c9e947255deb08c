package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange = "storefront.events"
	ExchangeType    = "topic"
	dialAttempts    = 5
)

// Connect dials url with a short retry for broker startup and declares the topic exchange.
func Connect(ctx context.Context, url, exchange string, logger observability.Logger) (*amqp.Connection, *amqp.Channel, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	var conn *amqp.Connection
	var err error
	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("rabbitmq_dial_failed",
			observability.F("attempt", i+1),
			observability.F("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq: connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,     // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq: declare exchange %s: %w", exchange, err)
	}
	return conn, ch, nil
}
