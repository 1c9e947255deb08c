package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const useCaseCheckout = "order.checkout"

var ErrEmptyCart = fmt.Errorf("%w: cart is empty", domain.ErrValidation)

// CheckoutCommand converts either the caller's session cart (FromCart) or a single
// buy-now line into an order.
type CheckoutCommand struct {
	FromCart        bool
	ProductID       string
	Quantity        int
	ShippingAddress *identity.ShippingAddress
	IdempotencyKey  string
}

type CheckoutResult struct {
	Order    *domorder.Order
	Replayed bool
}

type CheckoutUseCase struct {
	orders    domorder.Repository
	products  catalog.Repository
	users     identity.Repository
	carts     cart.Store
	ids       IDGenerator
	publisher domoutbox.Publisher
	ledger    *stockLedger
	inst      *application.Instrument
}

var _ application.UseCase[CheckoutCommand, *CheckoutResult] = (*CheckoutUseCase)(nil)

func NewCheckoutUseCase(d Deps) *CheckoutUseCase {
	inst := d.instrument()
	return &CheckoutUseCase{
		orders:    d.Orders,
		products:  d.Products,
		users:     d.Users,
		carts:     d.Carts,
		ids:       d.IDs,
		publisher: d.Publisher,
		ledger:    newStockLedger(d.Products, inst.Metrics(), inst.Logger()),
		inst:      inst,
	}
}

func (uc *CheckoutUseCase) Execute(ctx context.Context, cmd CheckoutCommand) (_ *CheckoutResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseCheckout, "Checkout",
		attribute.Bool("checkout.from_cart", cmd.FromCart),
		attribute.Bool("checkout.idempotent", cmd.IdempotencyKey != ""),
	)
	defer func() { run.End(err) }()
	span := run.Span()

	caller, ok := identity.FromContext(ctx)
	if !ok {
		return nil, identity.ErrUnauthorized
	}
	span.SetAttributes(attribute.String("order.owner_uid", caller.UID))

	// A retry may arrive after the cart it was built from has been cleared.
	if cmd.IdempotencyKey != "" {
		existing, lookupErr := uc.orders.FindByIdempotency(ctx, caller.UID, cmd.IdempotencyKey)
		switch {
		case lookupErr == nil:
			run.SetStatus("IDEMPOTENT_REPLAY")
			run.Annotate(observability.F("order_id", existing.ID))
			span.AddEvent("order.idempotent_replay",
				trace.WithAttributes(attribute.String("order.id", existing.ID)),
			)
			return &CheckoutResult{Order: existing, Replayed: true}, nil
		case errors.Is(lookupErr, domorder.ErrNotFound):
		default:
			run.Fail("IDEMPOTENCY_LOOKUP_FAILED")
			return nil, fmt.Errorf("order: idempotency lookup: %w", lookupErr)
		}
	}

	addr, err := uc.shippingAddress(ctx, caller, cmd.ShippingAddress)
	if err != nil {
		return nil, err
	}

	lines, err := uc.requestedLines(ctx, caller, cmd)
	if err != nil {
		return nil, err
	}

	// Authoritative re-read; nothing from the cart is trusted beyond product id and quantity.
	products := make(map[string]*catalog.Product, len(lines))
	for _, l := range lines {
		p, getErr := uc.products.Get(ctx, l.ProductID)
		if getErr != nil {
			return nil, fmt.Errorf("order: load product %s: %w", l.ProductID, getErr)
		}
		if fErr := p.CanFulfil(l.Quantity); fErr != nil {
			return nil, fErr
		}
		products[p.ID] = p
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reserved, err := uc.ledger.reserve(ctx, lines)
	if err != nil {
		return nil, err
	}

	orderLines := make([]domorder.Line, 0, len(lines))
	for _, l := range lines {
		ol, lineErr := domorder.NewLine(products[l.ProductID], l.Quantity)
		if lineErr != nil {
			return nil, uc.rollback(ctx, reserved, lineErr)
		}
		orderLines = append(orderLines, ol)
	}

	entity, err := domorder.New(uc.ids.NewID(), caller, cmd.IdempotencyKey, orderLines, addr)
	if err != nil {
		return nil, uc.rollback(ctx, reserved, fmt.Errorf("order: construct: %w", err))
	}

	if err := uc.orders.Insert(ctx, entity); err != nil {
		rbErr := uc.rollback(ctx, reserved, nil)
		if errors.Is(err, domorder.ErrConflict) && cmd.IdempotencyKey != "" && rbErr == nil {
			if winner, lookupErr := uc.orders.FindByIdempotency(ctx, caller.UID, cmd.IdempotencyKey); lookupErr == nil {
				run.SetStatus("IDEMPOTENT_REPLAY")
				run.Annotate(observability.F("order_id", winner.ID))
				return &CheckoutResult{Order: winner, Replayed: true}, nil
			}
		}
		run.Fail("REPO_INSERT_FAILED")
		return nil, errors.Join(fmt.Errorf("order: insert: %w", err), rbErr)
	}

	run.Annotate(
		observability.F("order_id", entity.ID),
		observability.F("lines", len(entity.Lines)),
		observability.F("total_amount", entity.TotalAmount.StringFixed(2)),
	)
	span.SetAttributes(
		attribute.String("order.id", entity.ID),
		attribute.String("order.status", string(entity.Status)),
	)

	if cmd.FromCart {
		if delErr := uc.carts.Delete(ctx, caller.UID); delErr != nil {
			run.Logger().Warn("cart_clear_failed",
				observability.F("order_id", entity.ID),
				observability.F("error", delErr.Error()),
			)
		}
	}

	run.Publish(ctx, uc.publisher, domorder.NewOrderCreatedEvent(entity))

	return &CheckoutResult{Order: entity}, nil
}

// shippingAddress picks the override or the stored profile address; either must be complete.
func (uc *CheckoutUseCase) shippingAddress(ctx context.Context, caller identity.Identity, override *identity.ShippingAddress) (identity.ShippingAddress, error) {
	if override != nil && !override.IsZero() {
		if err := override.Validate(); err != nil {
			return identity.ShippingAddress{}, err
		}
		return *override, nil
	}
	user, err := uc.users.Get(ctx, caller.UID)
	if errors.Is(err, identity.ErrNotFound) {
		return identity.ShippingAddress{}, fmt.Errorf("%w: no profile on record", identity.ErrProfileIncomplete)
	}
	if err != nil {
		return identity.ShippingAddress{}, fmt.Errorf("order: load profile: %w", err)
	}
	if err := user.Address.Validate(); err != nil {
		return identity.ShippingAddress{}, err
	}
	return user.Address, nil
}

// requestedLines validates quantities and merges duplicate products, keeping first-seen order.
func (uc *CheckoutUseCase) requestedLines(ctx context.Context, caller identity.Identity, cmd CheckoutCommand) ([]reservation, error) {
	var raw []reservation
	if cmd.FromCart {
		c, err := uc.carts.Load(ctx, caller.UID)
		if err != nil {
			return nil, fmt.Errorf("order: load cart: %w", err)
		}
		if c.IsEmpty() {
			return nil, ErrEmptyCart
		}
		for _, it := range c.Items() {
			raw = append(raw, reservation{ProductID: it.ProductID, Quantity: it.Quantity})
		}
	} else {
		if cmd.ProductID == "" {
			return nil, domain.Validation("product id is required")
		}
		raw = []reservation{{ProductID: cmd.ProductID, Quantity: cmd.Quantity}}
	}
	return mergeLines(raw)
}

func mergeLines(raw []reservation) ([]reservation, error) {
	out := make([]reservation, 0, len(raw))
	index := make(map[string]int, len(raw))
	for _, r := range raw {
		if r.ProductID == "" {
			return nil, domain.Validation("product id is required")
		}
		if r.Quantity < 1 {
			return nil, domain.Validation("quantity for product %s must be at least 1", r.ProductID)
		}
		if i, ok := index[r.ProductID]; ok {
			out[i].Quantity += r.Quantity
			continue
		}
		index[r.ProductID] = len(out)
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCart
	}
	return out, nil
}

func (uc *CheckoutUseCase) rollback(ctx context.Context, reserved []reservation, cause error) error {
	if err := uc.ledger.release(ctx, reserved); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
