package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var ErrInvalidTransition = errors.New("payment: invalid status transition")

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusFailed  Status = "failed"
)

var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusFailed},
	StatusFailed:  {StatusPaid},
	StatusPaid:    {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", domain.Validation("unknown payment status %q", s)
	}
	return st, nil
}

func ValidateTransition(from, to Status) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Gateway is the outbound port to a payment provider. The storefront core never charges
// directly; provider results arrive through the payment callback.
type Gateway interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal) (Status, error)
}
