// Package catalog implements the catalog schema provider and the import
// store: Postgres for production, an in-memory catalog for the CLI's offline
// mode and tests, and a Redis snapshot cache in front of either.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core/imports"
)

// Variant is a stored product variant.
type Variant struct {
	SKU        string             `yaml:"sku" json:"sku"`
	ParentSKU  string             `yaml:"parent_sku" json:"parent_sku"`
	Name       string             `yaml:"name" json:"name"`
	Active     bool               `yaml:"active" json:"active"`
	Default    bool               `yaml:"default" json:"default"`
	Position   int                `yaml:"position" json:"position"`
	CoverImage string             `yaml:"cover_image,omitempty" json:"cover_image,omitempty"`
	Attributes map[string]string  `yaml:"attributes,omitempty" json:"attributes,omitempty"`
	Prices     map[string]float64 `yaml:"prices,omitempty" json:"prices,omitempty"`
	Stock      map[string]int     `yaml:"stock,omitempty" json:"stock,omitempty"`
}

// Compatibility links a product or variant to a vehicle model.
type Compatibility struct {
	SKU        string `yaml:"sku" json:"sku"`
	VehicleSKU string `yaml:"vehicle_sku" json:"vehicle_sku"`
	Brand      string `yaml:"brand,omitempty" json:"brand,omitempty"`
	Model      string `yaml:"model,omitempty" json:"model,omitempty"`
	YearFrom   *int   `yaml:"year_from,omitempty" json:"year_from,omitempty"`
	YearTo     *int   `yaml:"year_to,omitempty" json:"year_to,omitempty"`
	Type       string `yaml:"type" json:"type"`
	Verified   bool   `yaml:"verified" json:"verified"`
	Source     string `yaml:"source,omitempty" json:"source,omitempty"`
	Notes      string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Seed is the YAML document a Memory catalog is loaded from.
type Seed struct {
	AttributeTypes []core.AttributeType `yaml:"attribute_types"`
	FeatureTypes   []core.FeatureType   `yaml:"feature_types"`
	PriceGroups    []core.PriceGroup    `yaml:"price_groups"`
	Warehouses     []core.Warehouse     `yaml:"warehouses"`
	Products       []string             `yaml:"products"`
	Vehicles       []string             `yaml:"vehicles"`
	Variants       []Variant            `yaml:"variants"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed: %w", err)
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return s, nil
}

// state is the mutable part of a Memory catalog.
type state struct {
	products      map[string]bool
	vehicles      map[string]bool
	variants      map[string]Variant
	features      map[string]map[string]string // sku -> feature code -> value
	compatibility map[string]Compatibility     // sku|vehicle_sku
}

func (s *state) clone() *state {
	features := make(map[string]map[string]string, len(s.features))
	for sku, vals := range s.features {
		features[sku] = maps.Clone(vals)
	}
	return &state{
		products:      maps.Clone(s.products),
		vehicles:      maps.Clone(s.vehicles),
		variants:      maps.Clone(s.variants),
		features:      features,
		compatibility: maps.Clone(s.compatibility),
	}
}

// Memory is an in-memory catalog schema provider and store. Transactions
// work on a copy of the data that replaces the committed state on commit, so
// a failed transaction leaves nothing behind. Transactions are serialized.
type Memory struct {
	schema Seed

	mu   sync.RWMutex
	data *state
	txMu sync.Mutex

	// Test hooks. FailApply is consulted before each row is applied;
	// FailCommit before each commit, with the 0-based transaction number.
	FailApply  func(row core.TypedRow) error
	FailCommit func(tx int) error
	txCount    int
}

// NewMemory creates a catalog from a seed.
func NewMemory(seed Seed) *Memory {
	m := &Memory{
		schema: seed,
		data: &state{
			products:      make(map[string]bool),
			vehicles:      make(map[string]bool),
			variants:      make(map[string]Variant),
			features:      make(map[string]map[string]string),
			compatibility: make(map[string]Compatibility),
		},
	}
	for _, sku := range seed.Products {
		m.data.products[sku] = true
	}
	for _, sku := range seed.Vehicles {
		m.data.vehicles[sku] = true
	}
	for _, v := range seed.Variants {
		m.data.variants[v.SKU] = v
	}
	return m
}

// Variant returns a committed variant.
func (m *Memory) Variant(sku string) (Variant, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data.variants[sku]
	return v, ok
}

// Variants returns all committed variant SKUs, sorted.
func (m *Memory) Variants() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.data.variants))
}

// FeatureValues returns committed feature values of a product or variant.
func (m *Memory) FeatureValues(sku string) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data.features[sku])
}

// Compatibility returns a committed compatibility link.
func (m *Memory) Compatibility(sku, vehicleSKU string) (Compatibility, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.data.compatibility[sku+"|"+vehicleSKU]
	return c, ok
}

func (m *Memory) FindAttributeType(_ context.Context, key string) (*core.AttributeType, error) {
	return findAttribute(m.schema.AttributeTypes, key), nil
}

func (m *Memory) ListActiveAttributeTypes(context.Context) ([]core.AttributeType, error) {
	return activeSorted(m.schema.AttributeTypes,
		func(a core.AttributeType) bool { return a.Active },
		func(a core.AttributeType) int { return a.Position }), nil
}

func (m *Memory) FindFeatureType(_ context.Context, key string) (*core.FeatureType, error) {
	return findFeature(m.schema.FeatureTypes, key), nil
}

func (m *Memory) ListActiveFeatureTypes(context.Context) ([]core.FeatureType, error) {
	return activeSorted(m.schema.FeatureTypes,
		func(f core.FeatureType) bool { return f.Active },
		func(f core.FeatureType) int { return f.Position }), nil
}

func (m *Memory) FindPriceGroup(_ context.Context, key string) (*core.PriceGroup, error) {
	return findPriceGroup(m.schema.PriceGroups, key), nil
}

func (m *Memory) ListActivePriceGroups(context.Context) ([]core.PriceGroup, error) {
	return activeSorted(m.schema.PriceGroups,
		func(p core.PriceGroup) bool { return p.Active },
		func(p core.PriceGroup) int { return p.Position }), nil
}

func (m *Memory) FindWarehouse(_ context.Context, key string) (*core.Warehouse, error) {
	return findWarehouse(m.schema.Warehouses, key), nil
}

func (m *Memory) ListActiveWarehouses(context.Context) ([]core.Warehouse, error) {
	return activeSorted(m.schema.Warehouses,
		func(w core.Warehouse) bool { return w.Active },
		func(w core.Warehouse) int { return w.Position }), nil
}

func (m *Memory) ProductExistsBySKU(_ context.Context, sku string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.products[sku], nil
}

func (m *Memory) VariantExistsBySKU(_ context.Context, sku string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data.variants[sku]
	return ok, nil
}

func (m *Memory) VehicleExistsBySKU(_ context.Context, sku string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.data.vehicles[sku], nil
}

// errCommitFailed is returned when the FailCommit hook rejects a commit.
var errCommitFailed = errors.New("commit failed")

// WithTransaction runs fn against a private copy of the data and publishes
// it when fn returns nil.
func (m *Memory) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	work := m.data.clone()
	m.mu.RUnlock()

	n := m.txCount
	m.txCount++

	if err := fn(ctx, &memTx{m: m, data: work}); err != nil {
		return err
	}
	if m.FailCommit != nil {
		if err := m.FailCommit(n); err != nil {
			return fmt.Errorf("%w: %w", errCommitFailed, err)
		}
	}

	m.mu.Lock()
	m.data = work
	m.mu.Unlock()
	return nil
}

// memTx applies rows to a transaction's working copy.
type memTx struct {
	m    *Memory
	data *state
}

func (t *memTx) check(row core.TypedRow) error {
	if t.m.FailApply != nil {
		return t.m.FailApply(row)
	}
	return nil
}

func (t *memTx) ApplyVariantRow(_ context.Context, row core.TypedRow) error {
	if err := t.check(row); err != nil {
		return err
	}

	sku := row.String(core.FieldSKU)
	parent := row.String(core.FieldParentSKU)
	if _, exists := t.data.variants[sku]; exists {
		return fmt.Errorf("variant with SKU %q already exists", sku)
	}
	if !t.data.products[parent] {
		return fmt.Errorf("parent product %q does not exist", parent)
	}

	v := Variant{
		SKU:        sku,
		ParentSKU:  parent,
		Name:       row.String(core.FieldName),
		Active:     true,
		CoverImage: row.String(core.FieldCoverImage),
		Attributes: make(map[string]string),
		Prices:     make(map[string]float64),
		Stock:      make(map[string]int),
	}
	if v.Name == "" {
		v.Name = sku
	}
	if b, ok := row.Bool(core.FieldIsActive); ok {
		v.Active = b
	}
	if b, ok := row.Bool(core.FieldIsDefault); ok {
		v.Default = b
	}
	if p, ok := row.Int(core.FieldPosition); ok {
		v.Position = p
	}

	for _, fv := range row.Fields {
		if fv.Ref == nil || fv.Value == nil {
			continue
		}
		switch fv.Field.Category {
		case core.CategoryAttribute:
			v.Attributes[fv.Ref.Code] = fmt.Sprint(fv.Value)
		case core.CategoryPrice:
			f, _ := fv.Value.(float64)
			v.Prices[fv.Ref.Code] = f
		case core.CategoryStock:
			i, _ := fv.Value.(int)
			v.Stock[fv.Ref.Code] = i
		}
	}

	t.data.variants[sku] = v
	return nil
}

func (t *memTx) ApplyFeatureRow(_ context.Context, row core.TypedRow) error {
	if err := t.check(row); err != nil {
		return err
	}

	sku := row.String(core.FieldSKU)
	if _, isVariant := t.data.variants[sku]; !isVariant && !t.data.products[sku] {
		return fmt.Errorf("product or variant %q does not exist", sku)
	}

	vals := t.data.features[sku]
	if vals == nil {
		vals = make(map[string]string)
		t.data.features[sku] = vals
	}
	for _, fv := range row.Dynamic(core.CategoryFeature) {
		if fv.Ref == nil || fv.Value == nil {
			continue
		}
		vals[fv.Ref.Code] = featureString(fv.Value)
	}
	return nil
}

func (t *memTx) ApplyCompatibilityRow(_ context.Context, row core.TypedRow) error {
	if err := t.check(row); err != nil {
		return err
	}

	sku := row.String(core.FieldSKU)
	vehicle := row.String(core.FieldVehicleSKU)
	if !t.data.vehicles[vehicle] {
		return fmt.Errorf("vehicle model %q does not exist", vehicle)
	}

	c := Compatibility{
		SKU:        sku,
		VehicleSKU: vehicle,
		Brand:      row.String(core.FieldVehicleBrand),
		Model:      row.String(core.FieldVehicleModel),
		Type:       compatibilityType(row),
		Source:     row.String(core.FieldSource),
		Notes:      row.String(core.FieldNotes),
	}
	if y, ok := row.Int(core.FieldYearFrom); ok {
		c.YearFrom = &y
	}
	if y, ok := row.Int(core.FieldYearTo); ok {
		c.YearTo = &y
	}
	if b, ok := row.Bool(core.FieldIsVerified); ok {
		c.Verified = b
	}

	t.data.compatibility[sku+"|"+vehicle] = c
	return nil
}

// compatibilityType returns the canonical type, "original" when unset.
func compatibilityType(row core.TypedRow) string {
	if t := imports.CanonicalCompatibilityType(row.String(core.FieldCompatibilityType)); t != "" {
		return t
	}
	return "original"
}

// featureString renders a coerced feature value for storage.
func featureString(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "1"
		}
		return "0"
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", x), "0"), ".")
	}
	return fmt.Sprint(v)
}
