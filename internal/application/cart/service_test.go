package cart_test

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	appcart "github.com/Zhima-Mochi/minishop-storefront/internal/application/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	domcart "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shopper = identity.Identity{UID: "u-1", Email: "s@example.com", Role: identity.RoleCustomer}

type harness struct {
	svc      *appcart.Service
	store    *memory.CartStore
	products *memory.ProductRepository
	ctx      context.Context
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mug, err := catalog.New("mug", "Mug", decimal.NewFromInt(8), 3)
	require.NoError(t, err)
	tee, err := catalog.New("tee", "Tee", decimal.NewFromInt(20), 10)
	require.NoError(t, err)
	gone, err := catalog.New("gone", "Gone", decimal.NewFromInt(1), 0)
	require.NoError(t, err)

	h := &harness{
		store:    memory.NewCartStore(),
		products: memory.NewProductRepository(mug, tee, gone),
		ctx:      identity.WithIdentity(context.Background(), shopper),
	}
	h.svc = appcart.NewService(h.store, h.products, access.NewGuard(nil), nil)
	return h
}

func TestAdd_ClampsToStock(t *testing.T) {
	h := newHarness(t)

	c, err := h.svc.Add(h.ctx, "mug", 2)
	require.NoError(t, err)
	c, err = h.svc.Add(h.ctx, "mug", 5)
	require.NoError(t, err)

	item, ok := c.Item("mug")
	require.True(t, ok)
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(8)))

	stored, err := h.store.Load(context.Background(), shopper.UID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Len())
}

func TestAdd_Rejects(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.Add(context.Background(), "mug", 1)
	require.ErrorIs(t, err, identity.ErrUnauthorized)

	_, err = h.svc.Add(h.ctx, "gone", 1)
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	_, err = h.svc.Add(h.ctx, "missing", 1)
	require.ErrorIs(t, err, catalog.ErrNotFound)

	_, err = h.svc.Add(h.ctx, "mug", 0)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestView_RefreshesAndDropsDeleted(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Add(h.ctx, "mug", 1)
	require.NoError(t, err)
	_, err = h.svc.Add(h.ctx, "tee", 4)
	require.NoError(t, err)

	admin := access.Elevate(context.Background())
	require.NoError(t, h.products.Delete(admin, "mug"))
	tee, err := h.products.Get(admin, "tee")
	require.NoError(t, err)
	tee.Price = decimal.NewFromInt(15)
	require.NoError(t, h.products.Update(admin, tee))

	c, err := h.svc.View(h.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())
	item, _ := c.Item("tee")
	assert.True(t, item.UnitPrice.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, 4, item.Quantity)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(60)))

	stored, err := h.store.Load(context.Background(), shopper.UID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Len(), "refreshed cart is persisted")
}

func TestSetQuantity(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.SetQuantity(h.ctx, "tee", 2)
	require.ErrorIs(t, err, domcart.ErrLineNotFound)

	_, err = h.svc.Add(h.ctx, "tee", 1)
	require.NoError(t, err)
	c, err := h.svc.SetQuantity(h.ctx, "tee", 99)
	require.NoError(t, err)
	item, _ := c.Item("tee")
	assert.Equal(t, 10, item.Quantity)

	c, err = h.svc.SetQuantity(h.ctx, "tee", 0)
	require.NoError(t, err)
	item, _ = c.Item("tee")
	assert.Equal(t, 1, item.Quantity)

	require.NoError(t, h.products.Delete(context.Background(), "tee"))
	_, err = h.svc.SetQuantity(h.ctx, "tee", 2)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	stored, err := h.store.Load(context.Background(), shopper.UID)
	require.NoError(t, err)
	assert.True(t, stored.IsEmpty())
}

func TestRemoveClearDiscard(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Add(h.ctx, "tee", 1)
	require.NoError(t, err)
	_, err = h.svc.Add(h.ctx, "mug", 1)
	require.NoError(t, err)

	c, err := h.svc.Remove(h.ctx, "tee")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = h.svc.Remove(h.ctx, "tee")
	require.ErrorIs(t, err, domcart.ErrLineNotFound)

	require.NoError(t, h.svc.Clear(h.ctx))
	c, err = h.svc.View(h.ctx)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = h.svc.Add(h.ctx, "mug", 1)
	require.NoError(t, err)
	require.NoError(t, h.svc.Discard(context.Background(), shopper.UID))
	require.NoError(t, h.svc.Discard(context.Background(), ""))
	c, err = h.svc.View(h.ctx)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}
