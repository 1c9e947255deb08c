package rabbitmq_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	sent []published
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

type subs []string

func (s *subs) Subscribe(name string, _ domoutbox.Handler) { *s = append(*s, name) }

func TestForwarder_PublishesRoutedByEventName(t *testing.T) {
	ch := &fakeChannel{}
	fwd := rabbitmq.NewForwarder(ch, "", nil)

	evt := domorder.OrderCancelledEvent{OrderID: "ord-1", OwnerUID: "u-1"}
	require.NoError(t, fwd.Forward(context.Background(), evt))

	require.Len(t, ch.sent, 1)
	got := ch.sent[0]
	assert.Equal(t, rabbitmq.DefaultExchange, got.exchange)
	assert.Equal(t, "order.cancelled", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "order.cancelled:ord-1", got.msg.MessageId)

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.msg.Body, &body))
	assert.Equal(t, "ord-1", body["order_id"])
}

func TestForwarder_WrapsPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	fwd := rabbitmq.NewForwarder(&fakeChannel{err: boom}, "shop.events", nil)

	err := fwd.Forward(context.Background(), domorder.OrderCancelledEvent{OrderID: "ord-2"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "order.cancelled")
}

func TestForwarder_StartSubscribesEveryEvent(t *testing.T) {
	var s subs
	rabbitmq.NewForwarder(&fakeChannel{}, "", nil).Start(&s, domorder.EventNames()...)
	assert.ElementsMatch(t, domorder.EventNames(), []string(s))
}
