package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	domcart "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const cartService = "cart-service"

// Service edits the caller's session cart. Product reads go through the browsing
// read path and only feed display snapshots and clamping.
type Service struct {
	store    domcart.Store
	products catalog.Reader
	guard    *access.Guard
	inst     *application.Instrument
}

func NewService(store domcart.Store, products catalog.Reader, guard *access.Guard, tel observability.Observability) *Service {
	return &Service{
		store:    store,
		products: products,
		guard:    guard,
		inst:     application.NewInstrument(cartService, tel),
	}
}

// View returns the cart with snapshots refreshed. Lines whose product was deleted are dropped.
func (s *Service) View(ctx context.Context) (_ *domcart.Cart, err error) {
	ctx, run := s.inst.Start(ctx, "cart.view", "ViewCart")
	defer func() { run.End(err) }()

	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	changed := false
	for _, it := range c.Items() {
		p, getErr := s.products.Get(ctx, it.ProductID)
		if errors.Is(getErr, catalog.ErrNotFound) {
			c.Remove(it.ProductID)
			changed = true
			continue
		}
		if getErr != nil {
			return nil, fmt.Errorf("cart: refresh %s: %w", it.ProductID, getErr)
		}
		if c.Refresh(p) {
			changed = true
		}
	}
	if changed {
		if err := s.save(ctx, c); err != nil {
			return nil, err
		}
	}
	run.Annotate(observability.F("lines", c.Len()))
	return c, nil
}

func (s *Service) Add(ctx context.Context, productID string, quantity int) (_ *domcart.Cart, err error) {
	ctx, run := s.inst.Start(ctx, "cart.add", "AddToCart",
		attribute.String("product.id", productID),
		attribute.Int("cart.quantity", quantity),
	)
	defer func() { run.End(err) }()

	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	item, err := c.Add(p, quantity)
	if err != nil {
		return nil, err
	}
	run.Annotate(observability.F("line_quantity", item.Quantity))
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) SetQuantity(ctx context.Context, productID string, quantity int) (_ *domcart.Cart, err error) {
	ctx, run := s.inst.Start(ctx, "cart.set_quantity", "SetCartQuantity",
		attribute.String("product.id", productID),
		attribute.Int("cart.quantity", quantity),
	)
	defer func() { run.End(err) }()

	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := c.Item(productID); !ok {
		return nil, domcart.ErrLineNotFound
	}
	// Refresh first so the clamp uses current stock.
	p, err := s.products.Get(ctx, productID)
	switch {
	case err == nil:
		c.Refresh(p)
	case errors.Is(err, catalog.ErrNotFound):
		c.Remove(productID)
		if saveErr := s.save(ctx, c); saveErr != nil {
			return nil, saveErr
		}
		return nil, err
	default:
		return nil, err
	}
	if _, err := c.SetQuantity(productID, quantity); err != nil {
		return nil, err
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Remove(ctx context.Context, productID string) (_ *domcart.Cart, err error) {
	ctx, run := s.inst.Start(ctx, "cart.remove", "RemoveFromCart", attribute.String("product.id", productID))
	defer func() { run.End(err) }()

	c, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if !c.Remove(productID) {
		return nil, domcart.ErrLineNotFound
	}
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context) (err error) {
	ctx, run := s.inst.Start(ctx, "cart.clear", "ClearCart")
	defer func() { run.End(err) }()

	id, err := s.guard.Require(ctx, access.Customer...)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, id.UID)
}

// Discard drops a session cart on logout.
func (s *Service) Discard(ctx context.Context, ownerUID string) error {
	if ownerUID == "" {
		return nil
	}
	return s.store.Delete(ctx, ownerUID)
}

func (s *Service) load(ctx context.Context) (*domcart.Cart, error) {
	id, err := s.guard.Require(ctx, access.Customer...)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, id.UID)
	if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c *domcart.Cart) error {
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}
