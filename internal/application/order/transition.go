package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	useCaseTransition = "order.transition"
	useCaseCancel     = "order.cancel"
)

// transitioner applies one edge with compare-and-set and restores stock when entering cancelled.
type transitioner struct {
	orders      domorder.Repository
	ledger      *stockLedger
	publisher   domoutbox.Publisher
	transitions observability.Counter // order_status_transitions_total{from,to}
}

func newTransitioner(d Deps, inst *application.Instrument) *transitioner {
	return &transitioner{
		orders:      d.Orders,
		ledger:      newStockLedger(d.Products, inst.Metrics(), inst.Logger()),
		publisher:   d.Publisher,
		transitions: inst.Metrics().Counter(observability.MOrderTransitions),
	}
}

func (t *transitioner) apply(ctx context.Context, run *application.Run, current *domorder.Order, to domorder.Status, actorUID string) (*domorder.Order, error) {
	from := current.Status
	if err := domorder.ValidateTransition(from, to); err != nil {
		return nil, err
	}

	updated, err := t.orders.UpdateStatus(ctx, current.ID, from, to)
	if err != nil {
		return nil, err
	}
	t.transitions.Add(1, observability.L("from", string(from)), observability.L("to", string(to)))
	run.Annotate(
		observability.F("order_id", updated.ID),
		observability.F("from", string(from)),
		observability.F("to", string(to)),
	)
	run.Span().SetAttributes(
		attribute.String("order.id", updated.ID),
		attribute.String("order.status.from", string(from)),
		attribute.String("order.status.to", string(to)),
	)

	// The CAS above lets exactly one caller into this branch per order.
	var restoreErr error
	if domorder.RestoresStock(to) {
		lines := make([]reservation, 0, len(updated.Lines))
		for _, l := range updated.Lines {
			lines = append(lines, reservation{ProductID: l.ProductID, Quantity: l.Quantity})
		}
		if restoreErr = t.ledger.release(ctx, lines); restoreErr != nil {
			run.Fail("STOCK_RESTORE_FAILED")
			restoreErr = fmt.Errorf("order: %s cancelled, stock restore incomplete: %w", updated.ID, restoreErr)
		}
	}

	run.Publish(ctx, t.publisher, domorder.NewOrderStatusChangedEvent(updated, from, actorUID))
	if to == domorder.StatusCancelled {
		run.Publish(ctx, t.publisher, domorder.NewOrderCancelledEvent(updated))
	}
	return updated, restoreErr
}

type TransitionCommand struct {
	OrderID string
	To      string
}

// TransitionUseCase is the admin path to drive fulfillment status along any table edge.
type TransitionUseCase struct {
	guard *access.Guard
	t     *transitioner
	inst  *application.Instrument
}

var _ application.UseCase[TransitionCommand, *domorder.Order] = (*TransitionUseCase)(nil)

func NewTransitionUseCase(d Deps, guard *access.Guard) *TransitionUseCase {
	inst := d.instrument()
	return &TransitionUseCase{guard: guard, t: newTransitioner(d, inst), inst: inst}
}

func (uc *TransitionUseCase) Execute(ctx context.Context, cmd TransitionCommand) (_ *domorder.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseTransition, "TransitionOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	caller, err := uc.guard.Require(ctx, access.Admin...)
	if err != nil {
		return nil, err
	}
	if cmd.OrderID == "" {
		return nil, domain.Validation("order id is required")
	}
	to, err := domorder.ParseStatus(cmd.To)
	if err != nil {
		return nil, err
	}

	current, err := uc.t.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	return uc.t.apply(ctx, run, current, to, caller.UID)
}

type CancelCommand struct {
	OrderID string
}

// CancelUseCase lets an owner (or an admin) cancel while the order is still cancellable.
// The status write runs elevated since customers never hold status authority themselves.
type CancelUseCase struct {
	guard *access.Guard
	t     *transitioner
	inst  *application.Instrument
}

var _ application.UseCase[CancelCommand, *domorder.Order] = (*CancelUseCase)(nil)

func NewCancelUseCase(d Deps, guard *access.Guard) *CancelUseCase {
	inst := d.instrument()
	return &CancelUseCase{guard: guard, t: newTransitioner(d, inst), inst: inst}
}

func (uc *CancelUseCase) Execute(ctx context.Context, cmd CancelCommand) (_ *domorder.Order, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseCancel, "CancelOrder",
		attribute.String("order.id", cmd.OrderID),
	)
	defer func() { run.End(err) }()

	caller, err := uc.guard.Require(ctx, access.Customer...)
	if err != nil {
		return nil, err
	}
	if cmd.OrderID == "" {
		return nil, domain.Validation("order id is required")
	}

	current, err := uc.t.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !current.IsOwnedBy(caller.UID) {
		return nil, identity.ErrForbidden
	}
	if !current.Status.Cancellable() {
		return nil, fmt.Errorf("%w: %s -> %s", domorder.ErrInvalidTransition, current.Status, domorder.StatusCancelled)
	}

	updated, err := uc.t.apply(access.Elevate(ctx), run, current, domorder.StatusCancelled, caller.UID)
	if errors.Is(err, domorder.ErrConflict) {
		// Lost the CAS; report against the status that won.
		if latest, getErr := uc.t.orders.Get(ctx, cmd.OrderID); getErr == nil && !latest.Status.Cancellable() {
			return nil, fmt.Errorf("%w: %s -> %s", domorder.ErrInvalidTransition, latest.Status, domorder.StatusCancelled)
		}
	}
	return updated, err
}
