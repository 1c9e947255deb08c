package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	domain "github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
)

// ProductRepository keeps products in a map. Stock adjustments are check-and-set under the write lock.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

var _ domain.Repository = (*ProductRepository)(nil)

func NewProductRepository(seed ...*domain.Product) *ProductRepository {
	r := &ProductRepository{products: make(map[string]*domain.Product, len(seed))}
	for _, p := range seed {
		if p != nil {
			r.products[p.ID] = p.Clone()
		}
	}
	return r
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *ProductRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Product, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, p := range r.products {
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.InStockOnly && p.Stock <= 0 {
			continue
		}
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta, expectedMinimum int) (int, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	next, err := domain.ApplyAdjustment(p.Stock, delta, expectedMinimum)
	if err != nil {
		return p.Stock, err
	}
	p.Stock = next
	p.Touch()
	return next, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	_ = ctx
	if err := p.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return domain.ErrConflict
	}
	r.products[p.ID] = p.Clone()
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	next := p.Clone()
	next.Stock = cur.Stock
	next.CreatedAt = cur.CreatedAt
	if err := next.Validate(); err != nil {
		return err
	}
	next.Touch()
	r.products[p.ID] = next
	return nil
}

func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	_ = ctx
	if stock < 0 {
		return domain.ErrInvalidQuantity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Stock = stock
	p.Touch()
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.products, id)
	return nil
}
