package application

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/identity"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}

// UseCaseFunc adapts a plain function to UseCase.
type UseCaseFunc[C any, R any] func(ctx context.Context, cmd C) (R, error)

func (f UseCaseFunc[C, R]) Execute(ctx context.Context, cmd C) (R, error) { return f(ctx, cmd) }

const (
	spanPrefix     = "UC."
	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Instrument carries the RED instruments shared by every use case of one service.
type Instrument struct {
	tracer   observability.Tracer
	log      observability.Logger
	requests observability.Counter   // usecase_requests_total{use_case,outcome}
	duration observability.Histogram // usecase_duration_seconds{use_case}
	metrics  observability.Metrics

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

func NewInstrument(service string, tel observability.Observability) *Instrument {
	if tel == nil {
		tel = observability.Nop()
	}
	m := tel.Metrics()
	return &Instrument{
		tracer:   tel.Tracer(),
		log:      tel.Logger().With(observability.F("service", service)),
		requests: m.Counter(observability.MUsecaseRequests),
		duration: m.Histogram(observability.MUsecaseDuration),
		metrics:  m,

		extCounter:   m.Counter(observability.MExternalRequests),
		extHistogram: m.Histogram(observability.MExternalRequestDuration),
	}
}

func (in *Instrument) Logger() observability.Logger   { return in.log }
func (in *Instrument) Metrics() observability.Metrics { return in.metrics }

// Run tracks a single use case execution from Start to End.
type Run struct {
	in      *Instrument
	ctx     context.Context
	span    trace.Span
	useCase string
	start   time.Time
	outcome string
	status  string
	logger  observability.Logger
	fields  []observability.Field
}

// Start opens the UC.<name> span and returns a context carrying it.
func (in *Instrument) Start(ctx context.Context, useCase, name string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := in.tracer.Start(ctx, spanPrefix+name, attrs...)
	logger := logctx.FromOr(ctx, in.log).With(observability.F("use_case", useCase))
	return ctx, &Run{
		in:      in,
		ctx:     ctx,
		span:    span,
		useCase: useCase,
		start:   time.Now(),
		outcome: OutcomeSuccess,
		status:  "OK",
		logger:  logger,
	}
}

func (r *Run) Span() trace.Span { return r.span }

func (r *Run) Logger() observability.Logger { return r.logger }

// SetStatus records a non-error status text such as IDEMPOTENT_REPLAY.
func (r *Run) SetStatus(status string) { r.status = status }

// Fail marks the run failed with an explicit status text.
func (r *Run) Fail(status string) {
	r.outcome, r.status = OutcomeError, status
}

// Annotate adds fields to the final use_case_done entry.
func (r *Run) Annotate(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// Publish hands e to pub after the mutation committed. Failures are recorded, never returned.
func (r *Run) Publish(ctx context.Context, pub outbox.Publisher, e outbox.Event) {
	if pub == nil || e == nil {
		return
	}
	// Detached: the mutation has already committed.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	start := time.Now()
	outcome := OutcomeSuccess
	err := pub.Publish(pubCtx, e)
	switch {
	case err != nil:
		outcome = OutcomeError
	case pubCtx.Err() != nil:
		outcome, err = "canceled", pubCtx.Err()
	}

	r.in.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
		observability.L("outcome", outcome),
	)
	r.in.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", e.EventName()),
	)

	if err != nil {
		if r.span != nil {
			r.span.RecordError(err)
		}
		r.Annotate(observability.F("event_publish_error", err.Error()))
		r.logger.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
		return
	}
	if r.span != nil {
		r.span.AddEvent(e.EventName())
	}
}

// End closes the span, records RED metrics and emits use_case_done.
func (r *Run) End(err error) {
	if err != nil && r.outcome == OutcomeSuccess {
		r.Fail(StatusOf(err))
	}
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.in.requests.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.in.duration.Observe(lat, observability.L("use_case", r.useCase))

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	fields = append(fields, observability.TraceFields(r.ctx)...)
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.logger.Info("use_case_done", fields...)
}

// StatusOf maps an error to the status text used in logs and span status.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return "OK"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	case errors.Is(err, identity.ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, identity.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, identity.ErrProfileIncomplete):
		return "PROFILE_INCOMPLETE"
	case errors.Is(err, domain.ErrValidation), errors.Is(err, catalog.ErrInvalidQuantity):
		return "VALIDATION_FAILED"
	case errors.Is(err, catalog.ErrInsufficientStock):
		return "INSUFFICIENT_STOCK"
	case errors.Is(err, catalog.ErrStockConflict):
		return "STOCK_CONFLICT"
	case errors.Is(err, order.ErrInvalidTransition), errors.Is(err, payment.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	case errors.Is(err, order.ErrConflict), errors.Is(err, catalog.ErrConflict):
		return "CONFLICT"
	case errors.Is(err, order.ErrNotFound), errors.Is(err, catalog.ErrNotFound), errors.Is(err, identity.ErrNotFound):
		return "NOT_FOUND"
	}
	return "INTERNAL"
}
