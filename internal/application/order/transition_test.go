package order_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	apporder "github.com/Zhima-Mochi/minishop-storefront/internal/application/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) transition(t *testing.T, who identity.Identity, orderID string, to domorder.Status) (*domorder.Order, error) {
	t.Helper()
	return apporder.NewTransitionUseCase(f.deps, f.guard).Execute(as(who), apporder.TransitionCommand{
		OrderID: orderID,
		To:      string(to),
	})
}

func (f *fixture) cancel(t *testing.T, who identity.Identity, orderID string) (*domorder.Order, error) {
	t.Helper()
	return apporder.NewCancelUseCase(f.deps, f.guard).Execute(as(who), apporder.CancelCommand{OrderID: orderID})
}

func TestCancel_OwnerCancelsProcessingOrder(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5), product(t, "beans", "10", 4))
	res, err := f.buyNow(t, ana, "mug", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, f.stock(t, "mug"))

	_, err = f.transition(t, admin, res.Order.ID, domorder.StatusProcessing)
	require.NoError(t, err)

	cancelled, err := f.cancel(t, ana, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCancelled, cancelled.Status)
	assert.Equal(t, 5, f.stock(t, "mug"))

	_, err = f.cancel(t, ana, res.Order.ID)
	require.ErrorIs(t, err, domorder.ErrInvalidTransition)
	assert.Equal(t, 5, f.stock(t, "mug"), "stock restored exactly once")
	assert.Equal(t, 4, f.stock(t, "beans"))

	assert.Equal(t, []string{
		"order.created",
		"order.status_changed",
		"order.status_changed",
		"order.cancelled",
	}, f.pub.names())
}

func TestTransition_DeliveredToShippedRejected(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5))
	res, err := f.buyNow(t, ana, "mug", 1)
	require.NoError(t, err)

	for _, to := range []domorder.Status{domorder.StatusProcessing, domorder.StatusShipped, domorder.StatusDelivered} {
		_, err = f.transition(t, admin, res.Order.ID, to)
		require.NoError(t, err, to)
	}

	_, err = f.transition(t, admin, res.Order.ID, domorder.StatusShipped)
	require.ErrorIs(t, err, domorder.ErrInvalidTransition)

	got, err := f.orders.Get(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusDelivered, got.Status)
	assert.Equal(t, 4, f.stock(t, "mug"), "forward transitions never touch stock")
}

func TestTransition_CustomersCannotDriveFulfillment(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5))
	res, err := f.buyNow(t, ana, "mug", 1)
	require.NoError(t, err)

	_, err = f.transition(t, ana, res.Order.ID, domorder.StatusProcessing)
	require.ErrorIs(t, err, identity.ErrForbidden)

	_, err = apporder.NewTransitionUseCase(f.deps, f.guard).Execute(context.Background(),
		apporder.TransitionCommand{OrderID: res.Order.ID, To: "processing"})
	require.ErrorIs(t, err, identity.ErrUnauthorized)

	got, err := f.orders.Get(context.Background(), res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusPending, got.Status)
}

func TestTransition_RejectsUnknownAndSameState(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5))
	res, err := f.buyNow(t, ana, "mug", 1)
	require.NoError(t, err)

	_, err = f.transition(t, admin, res.Order.ID, domorder.Status("refunded"))
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.transition(t, admin, res.Order.ID, domorder.StatusPending)
	require.ErrorIs(t, err, domorder.ErrInvalidTransition)

	_, err = f.transition(t, admin, "nope", domorder.StatusProcessing)
	require.ErrorIs(t, err, domorder.ErrNotFound)
}

func TestTransition_AdminCancelRestoresStock(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5))
	res, err := f.buyNow(t, ana, "mug", 3)
	require.NoError(t, err)

	_, err = f.transition(t, admin, res.Order.ID, domorder.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, "mug"))
}

func TestCancel_OnlyOwnerOrAdmin(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5))
	res, err := f.buyNow(t, ana, "mug", 1)
	require.NoError(t, err)

	_, err = f.cancel(t, ben, res.Order.ID)
	require.ErrorIs(t, err, identity.ErrForbidden)

	got, err := f.cancel(t, admin, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCancelled, got.Status)
	assert.Equal(t, 5, f.stock(t, "mug"))
}

func TestCancel_ShippedOrderIsFinal(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5))
	res, err := f.buyNow(t, ana, "mug", 1)
	require.NoError(t, err)
	for _, to := range []domorder.Status{domorder.StatusProcessing, domorder.StatusShipped} {
		_, err = f.transition(t, admin, res.Order.ID, to)
		require.NoError(t, err)
	}

	_, err = f.cancel(t, ana, res.Order.ID)
	require.ErrorIs(t, err, domorder.ErrInvalidTransition)
	assert.Equal(t, 4, f.stock(t, "mug"))
}

func TestCancel_SkipsDeletedProducts(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5), product(t, "beans", "2", 5))
	res, err := f.buyNow(t, ana, "mug", 2)
	require.NoError(t, err)
	require.NoError(t, f.products.Delete(context.Background(), "mug"))

	got, err := f.cancel(t, ana, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCancelled, got.Status)
}

func TestQueries_OwnershipAndAdminFilter(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 10))
	mine, err := f.buyNow(t, ana, "mug", 1)
	require.NoError(t, err)
	theirs, err := f.buyNow(t, ben, "mug", 1)
	require.NoError(t, err)
	_, err = f.transition(t, admin, theirs.Order.ID, domorder.StatusProcessing)
	require.NoError(t, err)

	q := apporder.NewQueries(f.deps, f.guard)

	got, err := q.Get(as(ana), mine.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, ana.UID, got.OwnerUID)

	_, err = q.Get(as(ana), theirs.Order.ID)
	require.ErrorIs(t, err, identity.ErrForbidden)

	list, err := q.Mine(as(ana))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.Order.ID, list[0].ID)

	_, err = q.List(as(ana), "")
	require.ErrorIs(t, err, identity.ErrForbidden)

	all, err := q.List(as(admin), "all")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	processing, err := q.List(as(admin), "processing")
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, theirs.Order.ID, processing[0].ID)

	_, err = q.List(as(admin), "lost")
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestCancel_ConcurrentCancelsRestoreStockOnce(t *testing.T) {
	const callers = 16
	f := newFixture(t, product(t, "mug", "3", 5))
	res, err := f.buyNow(t, ana, "mug", 2)
	require.NoError(t, err)
	_, err = f.transition(t, admin, res.Order.ID, domorder.StatusProcessing)
	require.NoError(t, err)

	uc := apporder.NewCancelUseCase(f.deps, f.guard)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok, lost int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := ana
			if i%2 == 1 {
				who = admin
			}
			_, err := uc.Execute(as(who), apporder.CancelCommand{OrderID: res.Order.ID})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if !errors.Is(err, domorder.ErrInvalidTransition) && !errors.Is(err, domorder.ErrConflict) {
				t.Errorf("unexpected cancel error: %v", err)
			}
			lost++
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, lost)
	assert.Equal(t, 5, f.stock(t, "mug"))

	cancelled := 0
	for _, name := range f.pub.names() {
		if name == "order.cancelled" {
			cancelled++
		}
	}
	assert.Equal(t, 1, cancelled)
}

func TestCancel_DroppedRequestStillRestoresStock(t *testing.T) {
	f := newFixture(t, product(t, "mug", "3", 5))
	res, err := f.buyNow(t, ana, "mug", 2)
	require.NoError(t, err)
	require.Equal(t, 3, f.stock(t, "mug"))

	ctx, cancel := context.WithCancel(as(ana))
	defer cancel()
	f.deps.Products = ctxAdjuster{Repository: f.deps.Products}
	f.deps.Orders = hookedOrders{Repository: f.deps.Orders, afterStatus: cancel}

	updated, err := apporder.NewCancelUseCase(f.deps, f.guard).Execute(ctx, apporder.CancelCommand{OrderID: res.Order.ID})
	require.NoError(t, err)
	assert.Equal(t, domorder.StatusCancelled, updated.Status)
	assert.Equal(t, 5, f.stock(t, "mug"))
	assert.Contains(t, f.pub.names(), "order.cancelled")
}
