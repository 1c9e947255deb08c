package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	cartPrefix     = "storefront:cart:"
	defaultCartTTL = 7 * 24 * time.Hour
)

// CartStore keeps session carts in Redis with a sliding TTL. Last write wins.
type CartStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ cart.Store = (*CartStore)(nil)

func NewCartStore(rdb redis.Cmdable, ttl time.Duration) *CartStore {
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &CartStore{rdb: rdb, ttl: ttl}
}

type cartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Available int             `json:"available"`
}

type cartRecord struct {
	OwnerUID  string     `json:"owner_uid"`
	UpdatedAt time.Time  `json:"updated_at"`
	Lines     []cartLine `json:"lines"`
}

func (s *CartStore) Load(ctx context.Context, ownerUID string) (*cart.Cart, error) {
	raw, err := s.rdb.Get(ctx, cartPrefix+ownerUID).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart.New(ownerUID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart store: get: %w", err)
	}
	var rec cartRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("cart store: decode: %w", err)
	}
	items := make([]cart.Item, 0, len(rec.Lines))
	for _, l := range rec.Lines {
		items = append(items, cart.Item{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Available: l.Available,
		})
	}
	return cart.Restore(ownerUID, rec.UpdatedAt, items), nil
}

func (s *CartStore) Save(ctx context.Context, c *cart.Cart) error {
	rec := cartRecord{OwnerUID: c.OwnerUID, UpdatedAt: c.UpdatedAt}
	for _, it := range c.Items() {
		rec.Lines = append(rec.Lines, cartLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Available: it.Available,
		})
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("cart store: encode: %w", err)
	}
	if err := s.rdb.Set(ctx, cartPrefix+c.OwnerUID, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("cart store: set: %w", err)
	}
	return nil
}

func (s *CartStore) Delete(ctx context.Context, ownerUID string) error {
	if err := s.rdb.Del(ctx, cartPrefix+ownerUID).Err(); err != nil {
		return fmt.Errorf("cart store: delete: %w", err)
	}
	return nil
}
