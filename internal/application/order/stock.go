package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application/access"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
)

// restoreTimeout bounds compensations, which outlive the request that triggered them.
const restoreTimeout = 5 * time.Second

type reservation struct {
	ProductID string
	Quantity  int
}

// stockLedger applies conditional stock changes and their compensations.
type stockLedger struct {
	products  catalog.StockAdjuster
	conflicts observability.Counter // stock_conflicts_total{product_id}
	log       observability.Logger
}

func newStockLedger(products catalog.StockAdjuster, m observability.Metrics, log observability.Logger) *stockLedger {
	return &stockLedger{
		products:  products,
		conflicts: m.Counter(observability.MStockConflicts),
		log:       log,
	}
}

// reserve decrements every line or none of them. A lost race is reported as
// InsufficientStockError wrapping ErrStockConflict.
func (l *stockLedger) reserve(ctx context.Context, lines []reservation) ([]reservation, error) {
	done := make([]reservation, 0, len(lines))
	for _, r := range lines {
		var (
			remaining int
			err       error
		)
		if err = ctx.Err(); err == nil {
			remaining, err = l.products.AdjustStock(ctx, r.ProductID, -r.Quantity, r.Quantity)
		}
		if err == nil {
			done = append(done, r)
			continue
		}
		if errors.Is(err, catalog.ErrStockConflict) {
			l.conflicts.Add(1, observability.L("product_id", r.ProductID))
			err = &catalog.InsufficientStockError{
				ProductID: r.ProductID,
				Requested: r.Quantity,
				Available: remaining,
				Cause:     catalog.ErrStockConflict,
			}
		} else {
			err = fmt.Errorf("order: reserve stock for %s: %w", r.ProductID, err)
		}
		if rbErr := l.release(ctx, done); rbErr != nil {
			return nil, errors.Join(err, rbErr)
		}
		return nil, err
	}
	return done, nil
}

// release gives reserved quantities back under an elevated context that ignores the
// caller's cancellation. Products deleted in the meantime are skipped with a warning.
func (l *stockLedger) release(ctx context.Context, lines []reservation) error {
	if len(lines) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()
	ctx = access.Elevate(ctx)
	logger := logctx.FromOr(ctx, l.log)

	var errs []error
	for _, r := range lines {
		if _, err := l.products.AdjustStock(ctx, r.ProductID, r.Quantity, 0); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				logger.Warn("stock_restore_skipped",
					observability.F("product_id", r.ProductID),
					observability.F("quantity", r.Quantity),
					observability.F("reason", "product deleted"),
				)
				continue
			}
			errs = append(errs, fmt.Errorf("order: restore stock for %s: %w", r.ProductID, err))
		}
	}
	return errors.Join(errs...)
}
