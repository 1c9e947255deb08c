package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("catalog: product not found")
	ErrConflict          = errors.New("catalog: product already exists")
	ErrInvalidQuantity   = errors.New("catalog: quantity must be greater than zero")
	ErrInsufficientStock = errors.New("catalog: insufficient stock")
	ErrStockConflict     = errors.New("catalog: stock changed concurrently")
)

// LowStockThreshold is the stock level at or below which admin views flag a product.
const LowStockThreshold = 5

type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Description string
	ImageURL    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(id, name string, price decimal.Decimal, stock int) (*Product, error) {
	now := time.Now().UTC()
	p := &Product{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Price:     price,
		Stock:     stock,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the record-level invariants an admin edit must satisfy.
func (p *Product) Validate() error {
	switch {
	case p.ID == "":
		return domain.Validation("product id is required")
	case strings.TrimSpace(p.Name) == "":
		return domain.Validation("product name is required")
	case p.Price.IsNegative():
		return domain.Validation("product price must be zero or greater")
	case p.Stock < 0:
		return domain.Validation("product stock must be zero or greater")
	}
	return nil
}

func (p *Product) LowStock() bool { return p.Stock <= LowStockThreshold }

// CanFulfil reports whether quantity units are available right now.
func (p *Product) CanFulfil(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > p.Stock {
		return &InsufficientStockError{ProductID: p.ID, Requested: quantity, Available: p.Stock}
	}
	return nil
}

func (p *Product) Touch() { p.UpdatedAt = time.Now().UTC() }

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// ApplyAdjustment computes the stock after adding delta, provided the current stock is at
// least expectedMinimum and the result stays non-negative. Otherwise ErrStockConflict.
func ApplyAdjustment(current, delta, expectedMinimum int) (int, error) {
	if current < expectedMinimum || current+delta < 0 {
		return current, ErrStockConflict
	}
	return current + delta, nil
}

// InsufficientStockError reports the product that could not cover a requested quantity.
// It matches ErrInsufficientStock and unwraps to Cause (ErrStockConflict when a race was lost).
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
	Cause     error
}

func (e *InsufficientStockError) Error() string {
	msg := fmt.Sprintf("catalog: insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

func (e *InsufficientStockError) Unwrap() error { return e.Cause }
