package catalog

import "context"

type ListFilter struct {
	Category    string
	InStockOnly bool
}

type Reader interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]*Product, error)
}

// StockAdjuster applies a conditional stock change: the store adds delta only while the
// current stock is at least expectedMinimum and the result is non-negative, in one atomic step.
// It returns the new stock, ErrStockConflict when the condition fails, or ErrNotFound.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, id string, delta, expectedMinimum int) (int, error)
}

type Writer interface {
	Create(ctx context.Context, p *Product) error
	// Update persists every field except Stock.
	Update(ctx context.Context, p *Product) error
	SetStock(ctx context.Context, id string, stock int) error
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Reader
	StockAdjuster
	Writer
}
