package cart

import (
	"context"
	"errors"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

var ErrLineNotFound = errors.New("cart: product not in cart")

// Item is one cart line. Name, UnitPrice and Available are display snapshots taken the last
// time the line was touched; checkout re-reads the catalog and never trusts them.
type Item struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Available int
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the advisory, single-owner basket held in session state.
type Cart struct {
	OwnerUID  string
	UpdatedAt time.Time

	items []Item
}

func New(ownerUID string) *Cart {
	return &Cart{OwnerUID: ownerUID, UpdatedAt: time.Now().UTC()}
}

// Restore rebuilds a cart held by an external session store. Lines are taken as is.
func Restore(ownerUID string, updatedAt time.Time, items []Item) *Cart {
	return &Cart{OwnerUID: ownerUID, UpdatedAt: updatedAt, items: append([]Item(nil), items...)}
}

// Add inserts p or increments its line, clamping the resulting quantity to p's stock.
func (c *Cart) Add(p *catalog.Product, quantity int) (Item, error) {
	if p == nil {
		return Item{}, catalog.ErrNotFound
	}
	if quantity < 1 {
		return Item{}, domain.Validation("quantity must be at least 1")
	}
	if p.Stock <= 0 {
		return Item{}, &catalog.InsufficientStockError{ProductID: p.ID, Requested: quantity, Available: p.Stock}
	}

	idx := c.index(p.ID)
	if idx < 0 {
		c.items = append(c.items, Item{ProductID: p.ID})
		idx = len(c.items) - 1
	}
	line := &c.items[idx]
	line.Quantity = clamp(line.Quantity+min(quantity, p.Stock), 1, p.Stock)
	snapshot(line, p)
	c.touch()
	return *line, nil
}

// SetQuantity sets a line's quantity clamped to [1, Available].
func (c *Cart) SetQuantity(productID string, quantity int) (Item, error) {
	idx := c.index(productID)
	if idx < 0 {
		return Item{}, ErrLineNotFound
	}
	line := &c.items[idx]
	line.Quantity = clamp(quantity, 1, line.Available)
	c.touch()
	return *line, nil
}

// Refresh updates a line's display snapshot from p without changing its quantity.
// It reports whether the snapshot changed.
func (c *Cart) Refresh(p *catalog.Product) bool {
	idx := c.index(p.ID)
	if idx < 0 {
		return false
	}
	before := c.items[idx]
	snapshot(&c.items[idx], p)
	after := c.items[idx]
	return before.Name != after.Name || !before.UnitPrice.Equal(after.UnitPrice) || before.Available != after.Available
}

func (c *Cart) Remove(productID string) bool {
	idx := c.index(productID)
	if idx < 0 {
		return false
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.touch()
	return true
}

func (c *Cart) Clear() {
	c.items = nil
	c.touch()
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Item(productID string) (Item, bool) {
	idx := c.index(productID)
	if idx < 0 {
		return Item{}, false
	}
	return c.items[idx], true
}

func (c *Cart) Len() int { return len(c.items) }

func (c *Cart) IsEmpty() bool { return len(c.items) == 0 }

// Total is recomputed from the line snapshots on every call.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	out := *c
	out.items = c.Items()
	return &out
}

func (c *Cart) index(productID string) int {
	for i := range c.items {
		if c.items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() { c.UpdatedAt = time.Now().UTC() }

func snapshot(line *Item, p *catalog.Product) {
	line.Name = p.Name
	line.UnitPrice = p.Price
	line.Available = p.Stock
}

// clamp prefers the lower bound when hi < lo so a line never drops below one unit.
func clamp(v, lo, hi int) int {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

// Store holds carts in ephemeral session state keyed by owner.
type Store interface {
	// Load returns the owner's cart, or a new empty cart when none is held.
	Load(ctx context.Context, ownerUID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, ownerUID string) error
}
