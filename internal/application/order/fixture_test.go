package order_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	apporder "github.com/Zhima-Mochi/minishop-storefront/internal/application/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	admin = identity.Identity{UID: "admin-1", Email: "ops@example.com", Role: identity.RoleAdmin}
	ana   = identity.Identity{UID: "u-ana", Email: "ana@example.com", Role: identity.RoleCustomer}
	ben   = identity.Identity{UID: "u-ben", Email: "ben@example.com", Role: identity.RoleCustomer}
)

func address(name string) identity.ShippingAddress {
	return identity.ShippingAddress{
		FullName:     name,
		Phone:        "+351 900 000 000",
		AddressLine1: "Rua Augusta 1",
		City:         "Lisbon",
		State:        "Lisboa",
		PostalCode:   "1100-048",
		Country:      "PT",
	}
}

func as(id identity.Identity) context.Context {
	return identity.WithIdentity(context.Background(), id)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventName())
	}
	return out
}

type sequence struct{ n atomic.Int64 }

func (s *sequence) NewID() string { return fmt.Sprintf("ord-%03d", s.n.Add(1)) }

type fixture struct {
	products *memory.ProductRepository
	orders   *memory.OrderRepository
	users    *memory.UserRepository
	carts    *memory.CartStore
	pub      *recordingPublisher
	guard    *access.Guard
	deps     apporder.Deps
}

func newFixture(t *testing.T, products ...*catalog.Product) *fixture {
	t.Helper()
	f := &fixture{
		products: memory.NewProductRepository(products...),
		orders:   memory.NewOrderRepository(),
		users: memory.NewUserRepository(
			&identity.User{UID: ana.UID, Email: ana.Email, Role: ana.Role, Address: address("Ana")},
			&identity.User{UID: ben.UID, Email: ben.Email, Role: ben.Role, Address: address("Ben")},
			&identity.User{UID: admin.UID, Email: admin.Email, Role: admin.Role},
		),
		carts: memory.NewCartStore(),
		pub:   &recordingPublisher{},
		guard: access.NewGuard(nil),
	}
	f.deps = apporder.Deps{
		Orders:    access.NewGuardedOrders(f.orders, f.guard),
		Products:  access.NewGuardedCatalog(f.products, f.guard),
		Users:     f.users,
		Carts:     f.carts,
		IDs:       &sequence{},
		Publisher: f.pub,
	}
	return f
}

func product(t *testing.T, id, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.New(id, "Product "+id, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) buyNow(t *testing.T, who identity.Identity, productID string, qty int) (*apporder.CheckoutResult, error) {
	t.Helper()
	return apporder.NewCheckoutUseCase(f.deps).Execute(as(who), apporder.CheckoutCommand{
		ProductID: productID,
		Quantity:  qty,
	})
}

// failingAdjuster loses the stock race for one product.
type failingAdjuster struct {
	catalog.Repository
	productID string
}

func (a failingAdjuster) AdjustStock(ctx context.Context, id string, delta, expectedMinimum int) (int, error) {
	if id == a.productID && delta < 0 {
		return 0, catalog.ErrStockConflict
	}
	return a.Repository.AdjustStock(ctx, id, delta, expectedMinimum)
}

// ctxAdjuster fails on a done context the way a database driver does. afterDecrement runs
// once a decrement has been applied.
type ctxAdjuster struct {
	catalog.Repository
	afterDecrement func()
}

func (a ctxAdjuster) AdjustStock(ctx context.Context, id string, delta, expectedMinimum int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := a.Repository.AdjustStock(ctx, id, delta, expectedMinimum)
	if err == nil && delta < 0 && a.afterDecrement != nil {
		a.afterDecrement()
	}
	return n, err
}

// hookedOrders runs afterStatus once a status compare-and-set has been applied.
type hookedOrders struct {
	domorder.Repository
	afterStatus func()
}

func (o hookedOrders) UpdateStatus(ctx context.Context, id string, expected, next domorder.Status) (*domorder.Order, error) {
	updated, err := o.Repository.UpdateStatus(ctx, id, expected, next)
	if err == nil && o.afterStatus != nil {
		o.afterStatus()
	}
	return updated, err
}
