package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

func loadTestSeed(t *testing.T) *Memory {
	t.Helper()
	seed, err := LoadSeed("testdata/seed.yaml")
	require.NoError(t, err)
	return NewMemory(seed)
}

func variantRow(sku, parent string, extra ...core.FieldValue) core.TypedRow {
	return core.TypedRow{
		Number: 2,
		Fields: append([]core.FieldValue{
			{Field: core.Static(core.FieldSKU), Value: sku},
			{Field: core.Static(core.FieldParentSKU), Value: parent},
		}, extra...),
	}
}

// =============================================================================
// Seed and lookups
// =============================================================================

func TestLoadSeed(t *testing.T) {
	m := loadTestSeed(t)
	ctx := context.Background()

	attrs, err := m.ListActiveAttributeTypes(ctx)
	require.NoError(t, err)
	require.Len(t, attrs, 2, "inactive attribute types are not listed")
	assert.Equal(t, "size", attrs[0].Code)
	assert.Equal(t, []string{"S", "M", "L"}, attrs[0].Examples)

	features, _ := m.ListActiveFeatureTypes(ctx)
	require.Len(t, features, 4)
	assert.Equal(t, core.ValueSelect, features[2].ValueType)

	ok, _ := m.ProductExistsBySKU(ctx, "KASK-01")
	assert.True(t, ok)
	ok, _ = m.VariantExistsBySKU(ctx, "KASK-01-S")
	assert.True(t, ok)
	ok, _ = m.VehicleExistsBySKU(ctx, "HONDA-CRF-250")
	assert.True(t, ok)
}

func TestLoadSeed_Missing(t *testing.T) {
	_, err := LoadSeed("testdata/nope.yaml")
	assert.Error(t, err)
}

func TestFind(t *testing.T) {
	m := loadTestSeed(t)
	ctx := context.Background()

	tests := []struct {
		key  string
		want string // "" = not found
	}{
		{"size", "size"},
		{"rozmiar", "size"},
		{"Rozmiar", "size"},
		{"kolor", "color"},
		{"legacy", ""},
		{"stary_atrybut", ""},
		{"missing", ""},
	}
	for _, tt := range tests {
		got, err := m.FindAttributeType(ctx, tt.key)
		require.NoError(t, err)
		if tt.want == "" {
			assert.Nil(t, got, tt.key)
			continue
		}
		require.NotNil(t, got, tt.key)
		assert.Equal(t, tt.want, got.Code, tt.key)
	}

	wh, _ := m.FindWarehouse(ctx, "glowny")
	require.NotNil(t, wh)
	assert.Equal(t, "main", wh.Code)

	pg, _ := m.FindPriceGroup(ctx, "hurtowa")
	require.NotNil(t, pg)
	assert.Equal(t, "wholesale", pg.Code)
}

// =============================================================================
// Transactions
// =============================================================================

func TestWithTransaction_Commit(t *testing.T) {
	m := loadTestSeed(t)
	ctx := context.Background()

	price := core.FieldValue{Field: core.Dynamic(core.CategoryPrice, "detaliczna"), Value: 149.0, Ref: &core.EntityRef{ID: 1, Code: "retail"}}
	err := m.WithTransaction(ctx, func(ctx context.Context, tx core.Tx) error {
		return tx.ApplyVariantRow(ctx, variantRow("KASK-01-M", "KASK-01", price))
	})
	require.NoError(t, err)

	v, ok := m.Variant("KASK-01-M")
	require.True(t, ok)
	assert.Equal(t, 149.0, v.Prices["retail"])
	assert.True(t, v.Active)
	assert.Equal(t, "KASK-01-M", v.Name)
}

func TestWithTransaction_RollbackLeavesNothing(t *testing.T) {
	m := loadTestSeed(t)
	ctx := context.Background()

	err := m.WithTransaction(ctx, func(ctx context.Context, tx core.Tx) error {
		if err := tx.ApplyVariantRow(ctx, variantRow("KASK-01-M", "KASK-01")); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	_, ok := m.Variant("KASK-01-M")
	assert.False(t, ok)
}

func TestWithTransaction_FailCommit(t *testing.T) {
	m := loadTestSeed(t)
	m.FailCommit = func(tx int) error {
		if tx == 0 {
			return errors.New("disk full")
		}
		return nil
	}
	ctx := context.Background()
	apply := func(ctx context.Context, tx core.Tx) error {
		return tx.ApplyVariantRow(ctx, variantRow("KASK-01-M", "KASK-01"))
	}

	err := m.WithTransaction(ctx, apply)
	assert.ErrorIs(t, err, errCommitFailed)
	assert.Equal(t, []string{"KASK-01-S"}, m.Variants())

	require.NoError(t, m.WithTransaction(ctx, apply))
	assert.Equal(t, []string{"KASK-01-M", "KASK-01-S"}, m.Variants())
}

func TestApplyRows(t *testing.T) {
	m := loadTestSeed(t)
	ctx := context.Background()

	err := m.WithTransaction(ctx, func(ctx context.Context, tx core.Tx) error {
		assert.ErrorContains(t, tx.ApplyVariantRow(ctx, variantRow("KASK-01-S", "KASK-01")), "already exists")
		assert.ErrorContains(t, tx.ApplyVariantRow(ctx, variantRow("X", "NOPE")), "does not exist")

		feature := core.TypedRow{Number: 2, Fields: []core.FieldValue{
			{Field: core.Static(core.FieldSKU), Value: "LED-100"},
			{Field: core.Dynamic(core.CategoryFeature, "moc"), Value: 12.5, Ref: &core.EntityRef{ID: 1, Code: "power"}},
			{Field: core.Dynamic(core.CategoryFeature, "wodoodporny"), Value: false, Ref: &core.EntityRef{ID: 2, Code: "waterproof"}},
		}}
		assert.NoError(t, tx.ApplyFeatureRow(ctx, feature))

		compat := core.TypedRow{Number: 3, Fields: []core.FieldValue{
			{Field: core.Static(core.FieldSKU), Value: "PROD-001"},
			{Field: core.Static(core.FieldVehicleSKU), Value: "HONDA-CRF-250"},
		}}
		assert.NoError(t, tx.ApplyCompatibilityRow(ctx, compat))
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"power": "12.5", "waterproof": "0"}, m.FeatureValues("LED-100"))
	c, ok := m.Compatibility("PROD-001", "HONDA-CRF-250")
	require.True(t, ok)
	assert.Equal(t, "original", c.Type)
}

func TestFeatureString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{true, "1"},
		{false, "0"},
		{12.0, "12"},
		{0.125, "0.125"},
		{"Stal", "Stal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, featureString(tt.in), "%v", tt.in)
	}
}

// =============================================================================
// Redis cache
// =============================================================================

func TestCachedProvider_FallsBackWhenRedisDown(t *testing.T) {
	m := loadTestSeed(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })

	c := NewCachedProvider(m, rdb, "", 0)
	ctx := context.Background()

	ft, err := c.FindFeatureType(ctx, "moc")
	require.NoError(t, err)
	require.NotNil(t, ft)
	assert.Equal(t, "power", ft.Code)

	ok, err := c.VariantExistsBySKU(ctx, "KASK-01-S")
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Error(t, c.Invalidate(ctx))
}

func TestNewCachedProvider_Defaults(t *testing.T) {
	c := NewCachedProvider(nil, nil, "", -1)
	assert.Equal(t, DefaultCacheTTL, c.ttl)
	assert.Equal(t, "catalog:warehouses", c.key(keyWarehouses))

	_, err := NewRedisClient("not a url")
	assert.Error(t, err)
}
