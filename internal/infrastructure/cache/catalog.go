package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/Zhima-Mochi/minishop-storefront/internal/observability/logctx"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	keyPrefix     = "storefront:catalog:"
	generationKey = keyPrefix + "gen"
	defaultTTL    = 30 * time.Second
)

// Catalog is a cache-aside read path for browsing and cart display. Writes pass through
// and invalidate. Checkout must use Authoritative().
type Catalog struct {
	inner catalog.Repository
	rdb   redis.Cmdable
	ttl   time.Duration
	group singleflight.Group
	log   observability.Logger
}

var _ catalog.Repository = (*Catalog)(nil)

func NewCatalog(inner catalog.Repository, rdb redis.Cmdable, ttl time.Duration, logger observability.Logger) *Catalog {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Catalog{
		inner: inner,
		rdb:   rdb,
		ttl:   ttl,
		log:   logger.With(observability.F("component", "catalog_cache")),
	}
}

func productKey(id string) string { return keyPrefix + "product:" + id }

func listKey(gen int64, f catalog.ListFilter) string {
	return fmt.Sprintf("%slist:%d:%s:%t", keyPrefix, gen, strings.ToLower(f.Category), f.InStockOnly)
}

func (c *Catalog) Get(ctx context.Context, id string) (*catalog.Product, error) {
	key := productKey(id)
	var rec record
	if c.load(ctx, key, &rec) {
		return rec.product(), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		p, err := c.inner.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, toRecord(p))
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*catalog.Product).Clone(), nil
}

func (c *Catalog) List(ctx context.Context, f catalog.ListFilter) ([]*catalog.Product, error) {
	gen, err := c.rdb.Get(ctx, generationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.warn(ctx, "cache_generation_failed", err)
		return c.inner.List(ctx, f)
	}
	key := listKey(gen, f)

	var recs []record
	if c.load(ctx, key, &recs) {
		return fromRecords(recs), nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		ps, err := c.inner.List(ctx, f)
		if err != nil {
			return nil, err
		}
		recs := make([]record, 0, len(ps))
		for _, p := range ps {
			recs = append(recs, toRecord(p))
		}
		c.store(ctx, key, recs)
		return recs, nil
	})
	if err != nil {
		return nil, err
	}
	return fromRecords(v.([]record)), nil
}

func (c *Catalog) AdjustStock(ctx context.Context, id string, delta, expectedMinimum int) (int, error) {
	n, err := c.inner.AdjustStock(ctx, id, delta, expectedMinimum)
	if err == nil {
		c.invalidate(ctx, id)
	}
	return n, err
}

func (c *Catalog) Create(ctx context.Context, p *catalog.Product) error {
	if err := c.inner.Create(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *Catalog) Update(ctx context.Context, p *catalog.Product) error {
	if err := c.inner.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

func (c *Catalog) SetStock(ctx context.Context, id string, stock int) error {
	if err := c.inner.SetStock(ctx, id, stock); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *Catalog) Delete(ctx context.Context, id string) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

// Authoritative returns a view that reads the underlying store directly while still
// invalidating the cache on writes.
func (c *Catalog) Authoritative() catalog.Repository {
	return authoritative{c}
}

type authoritative struct{ *Catalog }

func (a authoritative) Get(ctx context.Context, id string) (*catalog.Product, error) {
	return a.inner.Get(ctx, id)
}

func (a authoritative) List(ctx context.Context, f catalog.ListFilter) ([]*catalog.Product, error) {
	return a.inner.List(ctx, f)
}

// invalidate drops the product entry and bumps the list generation.
func (c *Catalog) invalidate(ctx context.Context, id string) {
	pipe := c.rdb.TxPipeline()
	pipe.Del(ctx, productKey(id))
	pipe.Incr(ctx, generationKey)
	if _, err := pipe.Exec(ctx); err != nil {
		c.warn(ctx, "cache_invalidate_failed", err, observability.F("product_id", id))
	}
}

func (c *Catalog) load(ctx context.Context, key string, dest any) bool {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.warn(ctx, "cache_get_failed", err, observability.F("key", key))
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		c.warn(ctx, "cache_decode_failed", err, observability.F("key", key))
		return false
	}
	return true
}

func (c *Catalog) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.warn(ctx, "cache_encode_failed", err, observability.F("key", key))
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.warn(ctx, "cache_set_failed", err, observability.F("key", key))
	}
}

func (c *Catalog) warn(ctx context.Context, msg string, err error, fields ...observability.Field) {
	fields = append(fields, observability.F("error", err.Error()))
	logctx.FromOr(ctx, c.log).Warn(msg, fields...)
}

// record is the cached JSON shape of a product.
type record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toRecord(p *catalog.Product) record {
	return record{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price.String(),
		Stock:       p.Stock,
		Category:    p.Category,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (r record) product() *catalog.Product {
	p := &catalog.Product{
		ID:          r.ID,
		Name:        r.Name,
		Stock:       r.Stock,
		Category:    r.Category,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if price, err := decimal.NewFromString(r.Price); err == nil {
		p.Price = price
	}
	return p
}

func fromRecords(recs []record) []*catalog.Product {
	out := make([]*catalog.Product, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.product())
	}
	return out
}
