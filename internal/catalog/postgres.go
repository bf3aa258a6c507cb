package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// OpenPool parses the configuration, connects and pings.
func OpenPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Postgres is the production catalog provider and store.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Ping checks database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// EnsureSchema creates the catalog tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (p *Postgres) ListActiveAttributeTypes(ctx context.Context) ([]core.AttributeType, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, code, name, position, is_active, examples
		FROM attribute_types WHERE is_active ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query attribute types: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.AttributeType, error) {
		var a core.AttributeType
		err := r.Scan(&a.ID, &a.Code, &a.Name, &a.Position, &a.Active, &a.Examples)
		return a, err
	})
}

func (p *Postgres) ListActiveFeatureTypes(ctx context.Context) ([]core.FeatureType, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, code, name, unit, value_type, options, position, is_active
		FROM feature_types WHERE is_active ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query feature types: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.FeatureType, error) {
		var f core.FeatureType
		var vt string
		err := r.Scan(&f.ID, &f.Code, &f.Name, &f.Unit, &vt, &f.Options, &f.Position, &f.Active)
		f.ValueType = core.ValueType(vt)
		return f, err
	})
}

func (p *Postgres) ListActivePriceGroups(ctx context.Context) ([]core.PriceGroup, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, code, name, position, is_active
		FROM price_groups WHERE is_active ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query price groups: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.PriceGroup, error) {
		var g core.PriceGroup
		err := r.Scan(&g.ID, &g.Code, &g.Name, &g.Position, &g.Active)
		return g, err
	})
}

func (p *Postgres) ListActiveWarehouses(ctx context.Context) ([]core.Warehouse, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, code, name, position, is_active
		FROM warehouses WHERE is_active ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query warehouses: %w", err)
	}
	return pgx.CollectRows(rows, func(r pgx.CollectableRow) (core.Warehouse, error) {
		var w core.Warehouse
		err := r.Scan(&w.ID, &w.Code, &w.Name, &w.Position, &w.Active)
		return w, err
	})
}

// Find* load the active collection and match in Go: slug comparison needs
// the same diacritic folding the header mapper uses.

func (p *Postgres) FindAttributeType(ctx context.Context, key string) (*core.AttributeType, error) {
	items, err := p.ListActiveAttributeTypes(ctx)
	if err != nil {
		return nil, err
	}
	return findAttribute(items, key), nil
}

func (p *Postgres) FindFeatureType(ctx context.Context, key string) (*core.FeatureType, error) {
	items, err := p.ListActiveFeatureTypes(ctx)
	if err != nil {
		return nil, err
	}
	return findFeature(items, key), nil
}

func (p *Postgres) FindPriceGroup(ctx context.Context, key string) (*core.PriceGroup, error) {
	items, err := p.ListActivePriceGroups(ctx)
	if err != nil {
		return nil, err
	}
	return findPriceGroup(items, key), nil
}

func (p *Postgres) FindWarehouse(ctx context.Context, key string) (*core.Warehouse, error) {
	items, err := p.ListActiveWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	return findWarehouse(items, key), nil
}

func (p *Postgres) exists(ctx context.Context, query, sku string) (bool, error) {
	var ok bool
	if err := p.pool.QueryRow(ctx, query, sku).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (p *Postgres) ProductExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return p.exists(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`, sku)
}

func (p *Postgres) VariantExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return p.exists(ctx, `SELECT EXISTS (SELECT 1 FROM product_variants WHERE sku = $1)`, sku)
}

func (p *Postgres) VehicleExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return p.exists(ctx, `SELECT EXISTS (SELECT 1 FROM vehicle_models WHERE sku = $1)`, sku)
}

// WithTransaction runs fn in one database transaction. The deferred
// rollback is a no-op after a successful commit.
func (p *Postgres) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// pgTx applies each row inside its own savepoint, so a failing statement
// rolls back only that row and the transaction stays usable.
type pgTx struct {
	tx  pgx.Tx
	seq int
}

func (t *pgTx) savepoint(ctx context.Context, fn func() error) error {
	t.seq++
	name := fmt.Sprintf("sp_row_%d", t.seq)

	if _, err := t.tx.Exec(ctx, fmt.Sprintf("SAVEPOINT %s", name)); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if err := fn(); err != nil {
		_, _ = t.tx.Exec(ctx, fmt.Sprintf("ROLLBACK TO SAVEPOINT %s", name))
		return err
	}
	_, err := t.tx.Exec(ctx, fmt.Sprintf("RELEASE SAVEPOINT %s", name))
	return err
}

func (t *pgTx) ApplyVariantRow(ctx context.Context, row core.TypedRow) error {
	return t.savepoint(ctx, func() error {
		sku := row.String(core.FieldSKU)
		parent := row.String(core.FieldParentSKU)

		name := row.String(core.FieldName)
		if name == "" {
			name = sku
		}
		active, ok := row.Bool(core.FieldIsActive)
		if !ok {
			active = true
		}
		isDefault, _ := row.Bool(core.FieldIsDefault)
		position, _ := row.Int(core.FieldPosition)

		var variantID int64
		err := t.tx.QueryRow(ctx, `
			INSERT INTO product_variants (product_id, sku, name, is_active, is_default, position, cover_image)
			SELECT id, $2, $3, $4, $5, $6, NULLIF($7, '') FROM products WHERE sku = $1
			RETURNING id`,
			parent, sku, name, active, isDefault, position, row.String(core.FieldCoverImage),
		).Scan(&variantID)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("parent product %q does not exist", parent)
		}
		if err != nil {
			return fmt.Errorf("insert variant %q: %w", sku, err)
		}

		for _, fv := range row.Fields {
			if fv.Ref == nil || fv.Value == nil {
				continue
			}
			switch fv.Field.Category {
			case core.CategoryAttribute:
				_, err = t.tx.Exec(ctx, `
					INSERT INTO variant_attributes (variant_id, attribute_type_id, value)
					VALUES ($1, $2, $3)`, variantID, fv.Ref.ID, fmt.Sprint(fv.Value))
			case core.CategoryPrice:
				f, _ := fv.Value.(float64)
				price := decimal.NewFromFloat(f).Round(2)
				_, err = t.tx.Exec(ctx, `
					INSERT INTO variant_prices (variant_id, price_group_id, price)
					VALUES ($1, $2, $3::numeric)`, variantID, fv.Ref.ID, price.StringFixed(2))
			case core.CategoryStock:
				_, err = t.tx.Exec(ctx, `
					INSERT INTO variant_stock (variant_id, warehouse_id, quantity)
					VALUES ($1, $2, $3)`, variantID, fv.Ref.ID, fv.Value)
			}
			if err != nil {
				return fmt.Errorf("%s %q: %w", fv.Field.Category, fv.Ref.Code, err)
			}
		}
		return nil
	})
}

func (t *pgTx) ApplyFeatureRow(ctx context.Context, row core.TypedRow) error {
	return t.savepoint(ctx, func() error {
		sku := row.String(core.FieldSKU)
		for _, fv := range row.Dynamic(core.CategoryFeature) {
			if fv.Ref == nil || fv.Value == nil {
				continue
			}
			_, err := t.tx.Exec(ctx, `
				INSERT INTO feature_values (sku, feature_type_id, value)
				VALUES ($1, $2, $3)
				ON CONFLICT (sku, feature_type_id)
				DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
				sku, fv.Ref.ID, featureString(fv.Value))
			if err != nil {
				return fmt.Errorf("feature %q: %w", fv.Ref.Code, err)
			}
		}
		return nil
	})
}

func (t *pgTx) ApplyCompatibilityRow(ctx context.Context, row core.TypedRow) error {
	return t.savepoint(ctx, func() error {
		sku := row.String(core.FieldSKU)
		vehicle := row.String(core.FieldVehicleSKU)

		var yearFrom, yearTo *int
		if y, ok := row.Int(core.FieldYearFrom); ok {
			yearFrom = &y
		}
		if y, ok := row.Int(core.FieldYearTo); ok {
			yearTo = &y
		}
		verified, _ := row.Bool(core.FieldIsVerified)

		tag, err := t.tx.Exec(ctx, `
			INSERT INTO vehicle_compatibility
				(sku, vehicle_model_id, year_from, year_to, compatibility_type, is_verified, source, notes)
			SELECT $1, id, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, '') FROM vehicle_models WHERE sku = $2
			ON CONFLICT (sku, vehicle_model_id) DO UPDATE SET
				year_from = EXCLUDED.year_from,
				year_to = EXCLUDED.year_to,
				compatibility_type = EXCLUDED.compatibility_type,
				is_verified = EXCLUDED.is_verified,
				source = EXCLUDED.source,
				notes = EXCLUDED.notes,
				updated_at = now()`,
			sku, vehicle, yearFrom, yearTo, compatibilityType(row), verified,
			row.String(core.FieldSource), row.String(core.FieldNotes))
		if err != nil {
			return fmt.Errorf("upsert compatibility %q/%q: %w", sku, vehicle, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("vehicle model %q does not exist", vehicle)
		}
		return nil
	})
}
