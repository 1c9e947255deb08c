package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-storefront/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/cache"
	"github.com/Zhima-Mochi/minishop-storefront/internal/infrastructure/memory"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mug(t *testing.T, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.New("mug", "Mug", decimal.RequireFromString("9.99"), stock)
	require.NoError(t, err)
	p.Category = "kitchen"
	return p
}

// liveRedis connects to STOREFRONT_TEST_REDIS_ADDR on a scratch DB, or skips.
func liveRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("STOREFRONT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("STOREFRONT_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestCatalog_DegradesWhenRedisIsDown(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	inner := memory.NewProductRepository(mug(t, 4))
	c := cache.NewCatalog(inner, rdb, time.Minute, nil)
	ctx := context.Background()

	p, err := c.Get(ctx, "mug")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock)

	ps, err := c.List(ctx, catalog.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, ps, 1)

	n, err := c.AdjustStock(ctx, "mug", -1, 1)
	require.NoError(t, err, "writes succeed even when invalidation fails")
	assert.Equal(t, 3, n)

	_, err = c.Get(ctx, "missing")
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCatalog_ServesFromCacheUntilInvalidated(t *testing.T) {
	rdb := liveRedis(t)
	inner := memory.NewProductRepository(mug(t, 4))
	c := cache.NewCatalog(inner, rdb, time.Minute, nil)
	ctx := context.Background()

	first, err := c.Get(ctx, "mug")
	require.NoError(t, err)
	_, err = c.List(ctx, catalog.ListFilter{Category: "kitchen"})
	require.NoError(t, err)

	// A write that bypasses the cache is invisible to browsing until invalidation.
	require.NoError(t, inner.SetStock(ctx, "mug", 1))
	cached, err := c.Get(ctx, "mug")
	require.NoError(t, err)
	assert.Equal(t, first.Stock, cached.Stock)
	assert.True(t, cached.Price.Equal(first.Price))

	fresh, err := c.Authoritative().Get(ctx, "mug")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Stock)

	require.NoError(t, c.SetStock(ctx, "mug", 7))
	after, err := c.Get(ctx, "mug")
	require.NoError(t, err)
	assert.Equal(t, 7, after.Stock)

	list, err := c.List(ctx, catalog.ListFilter{Category: "kitchen"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 7, list[0].Stock)
}

func TestCartStore_RoundTrip(t *testing.T) {
	rdb := liveRedis(t)
	store := cache.NewCartStore(rdb, time.Minute)
	ctx := context.Background()
	owner := "u-" + uuid.NewString()

	empty, err := store.Load(ctx, owner)
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	c := cart.New(owner)
	_, err = c.Add(mug(t, 5), 3)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, c))

	loaded, err := store.Load(ctx, owner)
	require.NoError(t, err)
	item, ok := loaded.Item("mug")
	require.True(t, ok)
	assert.Equal(t, 3, item.Quantity)
	assert.Equal(t, 5, item.Available)
	assert.True(t, item.UnitPrice.Equal(decimal.RequireFromString("9.99")))

	ttl, err := rdb.TTL(ctx, "storefront:cart:"+owner).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, store.Delete(ctx, owner))
	gone, err := store.Load(ctx, owner)
	require.NoError(t, err)
	assert.True(t, gone.IsEmpty())
}
