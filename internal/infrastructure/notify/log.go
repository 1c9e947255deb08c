package notify

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/internal/application/notification"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
)

// LogNotifier records notifications instead of delivering them.
type LogNotifier struct {
	log observability.Logger
}

var _ notification.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger observability.Logger) *LogNotifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogNotifier{log: logger.With(observability.F("component", "notifier"))}
}

func (n *LogNotifier) Notify(ctx context.Context, m notification.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logctx.FromOr(ctx, n.log).Info("notification_sent",
		observability.F("kind", m.Kind),
		observability.F("to", m.To),
		observability.F("subject", m.Subject),
		observability.F("order_id", m.OrderID),
	)
	return nil
}
