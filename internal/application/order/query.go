package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseGet      = "order.get"
	useCaseListMine = "order.list_mine"
	useCaseListAll  = "order.list"
)

// Queries serves order reads. Owners see their own orders; admins see everything.
type Queries struct {
	orders domorder.Repository
	guard  *access.Guard
	inst   *application.Instrument
}

func NewQueries(d Deps, guard *access.Guard) *Queries {
	return &Queries{orders: d.Orders, guard: guard, inst: d.instrument()}
}

func (q *Queries) Get(ctx context.Context, orderID string) (_ *domorder.Order, err error) {
	ctx, run := q.inst.Start(ctx, useCaseGet, "GetOrder", attribute.String("order.id", orderID))
	defer func() { run.End(err) }()

	caller, err := q.guard.Require(ctx, access.Customer...)
	if err != nil {
		return nil, err
	}
	if orderID == "" {
		return nil, domain.Validation("order id is required")
	}
	o, err := q.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !o.IsOwnedBy(caller.UID) {
		return nil, identity.ErrForbidden
	}
	return o, nil
}

// Mine lists the caller's own orders, newest first.
func (q *Queries) Mine(ctx context.Context) (_ []*domorder.Order, err error) {
	ctx, run := q.inst.Start(ctx, useCaseListMine, "ListMyOrders")
	defer func() { run.End(err) }()

	caller, err := q.guard.Require(ctx, access.Customer...)
	if err != nil {
		return nil, err
	}
	orders, err := q.orders.List(ctx, domorder.ListFilter{OwnerUID: caller.UID})
	if err != nil {
		return nil, err
	}
	run.Annotate(observability.F("count", len(orders)))
	return orders, nil
}

// List is the admin view with an optional status filter ("" or "all" means every status).
func (q *Queries) List(ctx context.Context, status string) (_ []*domorder.Order, err error) {
	ctx, run := q.inst.Start(ctx, useCaseListAll, "ListOrders", attribute.String("order.status_filter", status))
	defer func() { run.End(err) }()

	if _, err = q.guard.Require(ctx, access.Admin...); err != nil {
		return nil, err
	}
	var f domorder.ListFilter
	if status != "" && status != "all" {
		if f.Status, err = domorder.ParseStatus(status); err != nil {
			return nil, err
		}
	}
	orders, err := q.orders.List(ctx, f)
	if err != nil {
		return nil, err
	}
	run.Annotate(observability.F("count", len(orders)))
	return orders, nil
}
