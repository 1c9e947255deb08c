package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application/notification"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Notify(ctx context.Context, msg notification.Message) error {
	return m.Called(ctx, msg).Error(0)
}

// handlers captures subscriptions so tests can deliver events synchronously.
type handlers map[string]domoutbox.Handler

func (h handlers) Subscribe(name string, fn domoutbox.Handler) { h[name] = fn }

func (h handlers) deliver(t *testing.T, e domoutbox.Event) error {
	t.Helper()
	fn, ok := h[e.EventName()]
	require.True(t, ok, "no handler for %s", e.EventName())
	return fn(context.Background(), e)
}

func TestWorker_OrderCreated(t *testing.T) {
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.MatchedBy(func(m notification.Message) bool {
		return m.Kind == "order_confirmation" && m.To == "ana@example.com" && m.Subject == "Order ord-1 received"
	})).Return(nil).Once()

	subs := handlers{}
	notification.NewWorker(n, subs, nil).Start()

	err := subs.deliver(t, domorder.OrderCreatedEvent{
		OrderID:       "ord-1",
		CustomerEmail: "ana@example.com",
		TotalAmount:   "12.00",
		OccurredAt:    time.Now(),
	})
	require.NoError(t, err)
	n.AssertExpectations(t)
}

func TestWorker_StatusChanged(t *testing.T) {
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.MatchedBy(func(m notification.Message) bool {
		return m.Kind == "order_status" && m.Subject == "Order ord-2 is shipped"
	})).Return(errors.New("smtp down")).Once()

	subs := handlers{}
	notification.NewWorker(n, subs, nil).Start()

	err := subs.deliver(t, domorder.OrderStatusChangedEvent{
		OrderID:       "ord-2",
		CustomerEmail: "ben@example.com",
		From:          domorder.StatusProcessing,
		To:            domorder.StatusShipped,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ord-2")
	n.AssertExpectations(t)
}

func TestWorker_SkipsWithoutRecipient(t *testing.T) {
	n := &mockNotifier{}
	subs := handlers{}
	notification.NewWorker(n, subs, nil).Start()

	require.NoError(t, subs.deliver(t, domorder.OrderCreatedEvent{OrderID: "ord-3"}))
	n.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestWorker_MiddlewaresWrapOutermostFirst(t *testing.T) {
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything).Return(nil)

	var order []string
	mw := func(name string) func(domoutbox.Handler) domoutbox.Handler {
		return func(next domoutbox.Handler) domoutbox.Handler {
			return func(ctx context.Context, e domoutbox.Event) error {
				order = append(order, name)
				return next(ctx, e)
			}
		}
	}
	subs := handlers{}
	notification.NewWorker(n, subs, nil).Start(mw("outer"), mw("inner"))

	require.NoError(t, subs.deliver(t, domorder.OrderCreatedEvent{OrderID: "ord-4", CustomerEmail: "c@example.com"}))
	assert.Equal(t, []string{"outer", "inner"}, order)
}
