package order_test

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransition_OnlyListedEdges(t *testing.T) {
	allowed := map[order.Status][]order.Status{
		order.StatusPending:    {order.StatusProcessing, order.StatusCancelled},
		order.StatusProcessing: {order.StatusShipped, order.StatusCancelled},
		order.StatusShipped:    {order.StatusDelivered},
	}

	for _, from := range order.Statuses() {
		for _, to := range order.Statuses() {
			err := order.ValidateTransition(from, to)
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			if want {
				assert.NoError(t, err, "%s -> %s", from, to)
			} else {
				assert.ErrorIs(t, err, order.ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
}

func TestStatus_TerminalAndCancellable(t *testing.T) {
	assert.True(t, order.StatusDelivered.IsTerminal())
	assert.True(t, order.StatusCancelled.IsTerminal())
	assert.False(t, order.StatusShipped.IsTerminal())

	assert.True(t, order.StatusPending.Cancellable())
	assert.True(t, order.StatusProcessing.Cancellable())
	assert.False(t, order.StatusShipped.Cancellable())
	assert.False(t, order.StatusCancelled.Cancellable())
}

func TestParseStatus(t *testing.T) {
	st, err := order.ParseStatus("  Shipped ")
	require.NoError(t, err)
	assert.Equal(t, order.StatusShipped, st)

	_, err = order.ParseStatus("refunded")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestRestoresStock(t *testing.T) {
	for _, st := range order.Statuses() {
		assert.Equal(t, st == order.StatusCancelled, order.RestoresStock(st), st)
	}
}
