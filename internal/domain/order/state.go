package order

import (
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// transitions is the complete edge set of the fulfillment lifecycle.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// Statuses lists every state in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := transitions[st]; !ok {
		return "", domain.Validation("unknown order status %q", s)
	}
	return st, nil
}

func (s Status) String() string { return string(s) }

func (s Status) IsTerminal() bool { return len(transitions[s]) == 0 }

// Cancellable reports whether an order in s may still be cancelled.
func (s Status) Cancellable() bool { return s.CanTransitionTo(StatusCancelled) }

func (s Status) CanTransitionTo(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidateTransition(from, to Status) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// RestoresStock reports whether entering to must give reserved stock back.
func RestoresStock(to Status) bool { return to == StatusCancelled }
