package order

import (
	"context"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
)

type ListFilter struct {
	OwnerUID string
	Status   Status
}

type Repository interface {
	// Insert writes the order once. ErrConflict on a duplicate id or (owner, idempotency key).
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByIdempotency(ctx context.Context, ownerUID, key string) (*Order, error)
	// UpdateStatus sets next only while the stored status equals expected, else ErrConflict.
	UpdateStatus(ctx context.Context, id string, expected, next Status) (*Order, error)
	UpdatePaymentStatus(ctx context.Context, id string, expected, next payment.Status) (*Order, error)
	// List returns matching orders, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
}
