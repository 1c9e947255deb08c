package access

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
)

// GuardedCatalog re-checks capabilities on every catalog mutation. Reads are public.
type GuardedCatalog struct {
	inner catalog.Repository
	guard *Guard
}

var _ catalog.Repository = (*GuardedCatalog)(nil)

func NewGuardedCatalog(inner catalog.Repository, g *Guard) *GuardedCatalog {
	return &GuardedCatalog{inner: inner, guard: g}
}

func (c *GuardedCatalog) Get(ctx context.Context, id string) (*catalog.Product, error) {
	return c.inner.Get(ctx, id)
}

func (c *GuardedCatalog) List(ctx context.Context, f catalog.ListFilter) ([]*catalog.Product, error) {
	return c.inner.List(ctx, f)
}

func (c *GuardedCatalog) AdjustStock(ctx context.Context, id string, delta, expectedMinimum int) (int, error) {
	if err := c.guard.RequireOrElevated(ctx, CapAuthenticated); err != nil {
		return 0, err
	}
	// Increments outside an elevated context are restocking, an admin action.
	if delta > 0 {
		if err := c.guard.RequireOrElevated(ctx, Admin...); err != nil {
			return 0, err
		}
	}
	return c.inner.AdjustStock(ctx, id, delta, expectedMinimum)
}

func (c *GuardedCatalog) Create(ctx context.Context, p *catalog.Product) error {
	if err := c.guard.RequireOrElevated(ctx, Admin...); err != nil {
		return err
	}
	return c.inner.Create(ctx, p)
}

func (c *GuardedCatalog) Update(ctx context.Context, p *catalog.Product) error {
	if err := c.guard.RequireOrElevated(ctx, Admin...); err != nil {
		return err
	}
	return c.inner.Update(ctx, p)
}

func (c *GuardedCatalog) SetStock(ctx context.Context, id string, stock int) error {
	if err := c.guard.RequireOrElevated(ctx, Admin...); err != nil {
		return err
	}
	return c.inner.SetStock(ctx, id, stock)
}

func (c *GuardedCatalog) Delete(ctx context.Context, id string) error {
	if err := c.guard.RequireOrElevated(ctx, Admin...); err != nil {
		return err
	}
	return c.inner.Delete(ctx, id)
}

// GuardedOrders enforces ownership on reads and admin authority on status writes.
type GuardedOrders struct {
	inner order.Repository
	guard *Guard
}

var _ order.Repository = (*GuardedOrders)(nil)

func NewGuardedOrders(inner order.Repository, g *Guard) *GuardedOrders {
	return &GuardedOrders{inner: inner, guard: g}
}

func (o *GuardedOrders) Insert(ctx context.Context, ord *order.Order) error {
	if Elevated(ctx) {
		return o.inner.Insert(ctx, ord)
	}
	id, err := o.guard.Require(ctx, CapAuthenticated)
	if err != nil {
		return err
	}
	if ord != nil && ord.OwnerUID != id.UID {
		return identity.ErrForbidden
	}
	return o.inner.Insert(ctx, ord)
}

func (o *GuardedOrders) Get(ctx context.Context, orderID string) (*order.Order, error) {
	if Elevated(ctx) {
		return o.inner.Get(ctx, orderID)
	}
	id, err := o.guard.Require(ctx, CapAuthenticated)
	if err != nil {
		return nil, err
	}
	ord, err := o.inner.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && !ord.IsOwnedBy(id.UID) {
		return nil, identity.ErrForbidden
	}
	return ord, nil
}

func (o *GuardedOrders) FindByIdempotency(ctx context.Context, ownerUID, key string) (*order.Order, error) {
	if !Elevated(ctx) {
		id, err := o.guard.Require(ctx, CapAuthenticated)
		if err != nil {
			return nil, err
		}
		if !id.IsAdmin() && id.UID != ownerUID {
			return nil, identity.ErrForbidden
		}
	}
	return o.inner.FindByIdempotency(ctx, ownerUID, key)
}

func (o *GuardedOrders) UpdateStatus(ctx context.Context, orderID string, expected, next order.Status) (*order.Order, error) {
	if err := o.guard.RequireOrElevated(ctx, Admin...); err != nil {
		return nil, err
	}
	return o.inner.UpdateStatus(ctx, orderID, expected, next)
}

func (o *GuardedOrders) UpdatePaymentStatus(ctx context.Context, orderID string, expected, next payment.Status) (*order.Order, error) {
	if err := o.guard.RequireOrElevated(ctx, Admin...); err != nil {
		return nil, err
	}
	return o.inner.UpdatePaymentStatus(ctx, orderID, expected, next)
}

// List narrows non-admin callers to their own orders.
func (o *GuardedOrders) List(ctx context.Context, f order.ListFilter) ([]*order.Order, error) {
	if !Elevated(ctx) {
		id, err := o.guard.Require(ctx, CapAuthenticated)
		if err != nil {
			return nil, err
		}
		if !id.IsAdmin() {
			f.OwnerUID = id.UID
		}
	}
	return o.inner.List(ctx, f)
}
