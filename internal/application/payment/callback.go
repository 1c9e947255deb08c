package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application"
	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	domorder "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentService        = "payment-service"
	useCaseRecordPayment  = "payment.record"
	recordPaymentSpanName = "RecordPayment"
)

// RecordPaymentCommand is what a provider callback reports for one order.
type RecordPaymentCommand struct {
	OrderID string
	Status  string
	// Reference is the provider's transaction id, logged only.
	Reference string
}

type RecordPaymentResult struct {
	Order    *domorder.Order
	Replayed bool
}

// RecordPaymentUseCase applies a provider callback. The caller authenticates the provider;
// this use case runs elevated and never touches fulfillment status or stock.
type RecordPaymentUseCase struct {
	orders    domorder.Repository
	publisher domoutbox.Publisher
	inst      *application.Instrument
}

var _ application.UseCase[RecordPaymentCommand, *RecordPaymentResult] = (*RecordPaymentUseCase)(nil)

func NewRecordPaymentUseCase(orders domorder.Repository, publisher domoutbox.Publisher, tel observability.Observability) *RecordPaymentUseCase {
	return &RecordPaymentUseCase{
		orders:    orders,
		publisher: publisher,
		inst:      application.NewInstrument(paymentService, tel),
	}
}

func (uc *RecordPaymentUseCase) Execute(ctx context.Context, cmd RecordPaymentCommand) (_ *RecordPaymentResult, err error) {
	ctx, run := uc.inst.Start(ctx, useCaseRecordPayment, recordPaymentSpanName,
		attribute.String("order.id", cmd.OrderID),
		attribute.String("payment.status", cmd.Status),
	)
	defer func() { run.End(err) }()
	if cmd.Reference != "" {
		run.Annotate(observability.F("payment_reference", cmd.Reference))
	}

	if cmd.OrderID == "" {
		return nil, domain.Validation("order id is required")
	}
	next, err := dompay.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	ctx = access.Elevate(ctx)
	current, err := uc.orders.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	// Providers redeliver callbacks; a repeat of the applied status is acknowledged as is.
	if current.PaymentStatus == next {
		run.SetStatus("IDEMPOTENT_REPLAY")
		return &RecordPaymentResult{Order: current, Replayed: true}, nil
	}
	from := current.PaymentStatus
	if err := dompay.ValidateTransition(from, next); err != nil {
		return nil, err
	}

	updated, err := uc.orders.UpdatePaymentStatus(ctx, current.ID, from, next)
	if err != nil {
		if errors.Is(err, domorder.ErrConflict) {
			run.Fail("PAYMENT_STATUS_CONFLICT")
		}
		return nil, fmt.Errorf("payment: update order %s: %w", current.ID, err)
	}

	run.Annotate(
		observability.F("order_id", updated.ID),
		observability.F("from", string(from)),
		observability.F("to", string(next)),
	)
	run.Publish(ctx, uc.publisher, domorder.NewPaymentStatusChangedEvent(updated, from))
	return &RecordPaymentResult{Order: updated}, nil
}
