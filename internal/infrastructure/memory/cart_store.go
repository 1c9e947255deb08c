package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
)

// CartStore is the session-scoped cart holder. Carts never leave process memory.
type CartStore struct {
	mu    sync.Mutex
	carts map[string]*domain.Cart
}

var _ domain.Store = (*CartStore)(nil)

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]*domain.Cart)}
}

func (s *CartStore) Load(ctx context.Context, ownerUID string) (*domain.Cart, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.carts[ownerUID]; ok {
		return c.Clone(), nil
	}
	return domain.New(ownerUID), nil
}

// Save replaces the owner's cart; last write wins.
func (s *CartStore) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[c.OwnerUID] = c.Clone()
	return nil
}

func (s *CartStore) Delete(ctx context.Context, ownerUID string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, ownerUID)
	return nil
}
