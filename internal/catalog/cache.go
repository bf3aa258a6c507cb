package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

const (
	keyAttributeTypes = "attribute_types"
	keyFeatureTypes   = "feature_types"
	keyPriceGroups    = "price_groups"
	keyWarehouses     = "warehouses"
)

// DefaultCacheTTL is used when NewCachedProvider gets a non-positive TTL.
const DefaultCacheTTL = 5 * time.Minute

// CachedProvider keeps JSON snapshots of the active schema collections in
// Redis. Find* resolve against the cached lists. Existence checks always go
// to the wrapped provider: rows committed by earlier batches must be seen.
//
// Redis failures are logged and the wrapped provider is used instead.
type CachedProvider struct {
	inner  core.CatalogSchemaProvider
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewCachedProvider wraps inner with a Redis cache.
func NewCachedProvider(inner core.CatalogSchemaProvider, rdb redis.UniversalClient, prefix string, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if prefix == "" {
		prefix = "catalog"
	}
	return &CachedProvider{inner: inner, rdb: rdb, prefix: prefix, ttl: ttl}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

func (c *CachedProvider) key(name string) string {
	return c.prefix + ":" + name
}

// Invalidate drops every cached snapshot, after schema changes.
func (c *CachedProvider) Invalidate(ctx context.Context) error {
	keys := []string{
		c.key(keyAttributeTypes),
		c.key(keyFeatureTypes),
		c.key(keyPriceGroups),
		c.key(keyWarehouses),
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

// cached returns the snapshot under name, loading and storing it on a miss.
func cached[T any](ctx context.Context, c *CachedProvider, name string, load func(context.Context) ([]T, error)) ([]T, error) {
	key := c.key(name)

	data, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var items []T
		if jerr := json.Unmarshal(data, &items); jerr == nil {
			return items, nil
		}
		slog.Warn("catalog cache entry corrupt, reloading", "key", key)
	case !errors.Is(err, redis.Nil):
		slog.Warn("catalog cache unavailable", "key", key, "error", err)
		return load(ctx)
	}

	items, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(items); err == nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			slog.Warn("catalog cache write failed", "key", key, "error", err)
		}
	}
	return items, nil
}

func (c *CachedProvider) ListActiveAttributeTypes(ctx context.Context) ([]core.AttributeType, error) {
	return cached(ctx, c, keyAttributeTypes, c.inner.ListActiveAttributeTypes)
}

func (c *CachedProvider) ListActiveFeatureTypes(ctx context.Context) ([]core.FeatureType, error) {
	return cached(ctx, c, keyFeatureTypes, c.inner.ListActiveFeatureTypes)
}

func (c *CachedProvider) ListActivePriceGroups(ctx context.Context) ([]core.PriceGroup, error) {
	return cached(ctx, c, keyPriceGroups, c.inner.ListActivePriceGroups)
}

func (c *CachedProvider) ListActiveWarehouses(ctx context.Context) ([]core.Warehouse, error) {
	return cached(ctx, c, keyWarehouses, c.inner.ListActiveWarehouses)
}

func (c *CachedProvider) FindAttributeType(ctx context.Context, key string) (*core.AttributeType, error) {
	items, err := c.ListActiveAttributeTypes(ctx)
	if err != nil {
		return nil, err
	}
	return findAttribute(items, key), nil
}

func (c *CachedProvider) FindFeatureType(ctx context.Context, key string) (*core.FeatureType, error) {
	items, err := c.ListActiveFeatureTypes(ctx)
	if err != nil {
		return nil, err
	}
	return findFeature(items, key), nil
}

func (c *CachedProvider) FindPriceGroup(ctx context.Context, key string) (*core.PriceGroup, error) {
	items, err := c.ListActivePriceGroups(ctx)
	if err != nil {
		return nil, err
	}
	return findPriceGroup(items, key), nil
}

func (c *CachedProvider) FindWarehouse(ctx context.Context, key string) (*core.Warehouse, error) {
	items, err := c.ListActiveWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	return findWarehouse(items, key), nil
}

func (c *CachedProvider) ProductExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return c.inner.ProductExistsBySKU(ctx, sku)
}

func (c *CachedProvider) VariantExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return c.inner.VariantExistsBySKU(ctx, sku)
}

func (c *CachedProvider) VehicleExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return c.inner.VehicleExistsBySKU(ctx, sku)
}
