package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/order"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/payment"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	// idempotency maps owner + key to an order id.
	idempotency map[idemKey]string
}

type idemKey struct{ owner, key string }

var _ domain.Repository = (*OrderRepository)(nil)

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders:      make(map[string]*domain.Order),
		idempotency: make(map[idemKey]string),
	}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order) error {
	_ = ctx
	if order == nil || order.ID == "" {
		return fmt.Errorf("order repository: id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return domain.ErrConflict
	}
	k := idemKey{order.OwnerUID, order.IdempotencyKey}
	if order.IdempotencyKey != "" {
		if _, exists := r.idempotency[k]; exists {
			return domain.ErrConflict
		}
		r.idempotency[k] = order.ID
	}
	r.orders[order.ID] = order.Clone()
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) FindByIdempotency(ctx context.Context, ownerUID, key string) (*domain.Order, error) {
	_ = ctx
	if key == "" {
		return nil, domain.ErrNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.idempotency[idemKey{ownerUID, key}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return order.Clone(), nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.Status) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if order.Status != expected {
		return nil, fmt.Errorf("%w: status is %s, expected %s", domain.ErrConflict, order.Status, expected)
	}
	updated := order.Clone()
	if err := updated.Transition(next); err != nil {
		return nil, err
	}
	r.orders[id] = updated
	return updated.Clone(), nil
}

func (r *OrderRepository) UpdatePaymentStatus(ctx context.Context, id string, expected, next payment.Status) (*domain.Order, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if order.PaymentStatus != expected {
		return nil, fmt.Errorf("%w: payment status is %s, expected %s", domain.ErrConflict, order.PaymentStatus, expected)
	}
	updated := order.Clone()
	if err := updated.SetPaymentStatus(next); err != nil {
		return nil, err
	}
	r.orders[id] = updated
	return updated.Clone(), nil
}

func (r *OrderRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Order, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range r.orders {
		if f.OwnerUID != "" && o.OwnerUID != f.OwnerUID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}
