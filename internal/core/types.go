package core

import (
	"context"
	"fmt"
	"strings"
)

// ImportType identifies which kind of rows an import carries.
type ImportType string

const (
	ImportVariants      ImportType = "variants"
	ImportFeatures      ImportType = "features"
	ImportCompatibility ImportType = "compatibility"
)

// ParseImportType converts a user-supplied string to an ImportType.
func ParseImportType(s string) (ImportType, error) {
	switch t := ImportType(strings.ToLower(strings.TrimSpace(s))); t {
	case ImportVariants, ImportFeatures, ImportCompatibility:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownImportType, s)
}

// FieldID enumerates the static semantic fields.
type FieldID int

const (
	FieldSKU FieldID = iota + 1
	FieldParentSKU
	FieldName
	FieldIsActive
	FieldIsDefault
	FieldIsVerified
	FieldPosition
	FieldVehicleBrand
	FieldVehicleModel
	FieldVehicleSKU
	FieldYearFrom
	FieldYearTo
	FieldCompatibilityType
	FieldSource
	FieldNotes
	FieldCoverImage
)

var fieldNames = map[FieldID]string{
	FieldSKU:               "sku",
	FieldParentSKU:         "parent_sku",
	FieldName:              "name",
	FieldIsActive:          "is_active",
	FieldIsDefault:         "is_default",
	FieldIsVerified:        "is_verified",
	FieldPosition:          "position",
	FieldVehicleBrand:      "vehicle_brand",
	FieldVehicleModel:      "vehicle_model",
	FieldVehicleSKU:        "vehicle_sku",
	FieldYearFrom:          "year_from",
	FieldYearTo:            "year_to",
	FieldCompatibilityType: "compatibility_type",
	FieldSource:            "source",
	FieldNotes:             "notes",
	FieldCoverImage:        "cover_image",
}

func (f FieldID) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Category is the kind of catalog entity a dynamic column refers to.
type Category string

const (
	CategoryAttribute Category = "attribute"
	CategoryFeature   Category = "feature"
	CategoryPrice     Category = "price"
	CategoryStock     Category = "stock"
)

// SemanticField is the meaning of a column: either a static field or a
// dynamic (category, slug) pair. Exactly one of Static or Category is set.
// The zero value is not a valid field.
type SemanticField struct {
	Static   FieldID
	Category Category
	Slug     string
}

// Static returns the SemanticField for a static field.
func Static(id FieldID) SemanticField {
	return SemanticField{Static: id}
}

// Dynamic returns the SemanticField for a dynamic catalog column.
func Dynamic(c Category, slug string) SemanticField {
	return SemanticField{Category: c, Slug: slug}
}

// IsDynamic reports whether the field references a catalog entity.
func (f SemanticField) IsDynamic() bool {
	return f.Category != ""
}

// Key renders the field as "sku" or "attribute:rozmiar".
func (f SemanticField) Key() string {
	if f.IsDynamic() {
		return string(f.Category) + ":" + f.Slug
	}
	return f.Static.String()
}

func (f SemanticField) String() string { return f.Key() }

// Kind is the native value type a field coerces to.
type Kind int

const (
	KindText Kind = iota
	KindBool
	KindInt
	KindDecimal
)

// Kind returns the value kind for the field. Feature values stay text until
// the validator knows the feature's declared type.
func (f SemanticField) Kind() Kind {
	switch f.Category {
	case CategoryPrice:
		return KindDecimal
	case CategoryStock:
		return KindInt
	case CategoryAttribute, CategoryFeature:
		return KindText
	}
	switch f.Static {
	case FieldIsActive, FieldIsDefault, FieldIsVerified:
		return KindBool
	case FieldPosition, FieldYearFrom, FieldYearTo:
		return KindInt
	}
	return KindText
}

// HeaderRow is the ordered raw header of an uploaded sheet.
type HeaderRow []string

// EntityRef points at the catalog entity a dynamic field resolved to.
type EntityRef struct {
	ID   int64
	Code string
}

// FieldValue is one typed cell of a row.
type FieldValue struct {
	Field  SemanticField
	Column string // raw header text
	Raw    string
	Value  any // bool, int, float64, string or nil
	Ref    *EntityRef
}

// TypedRow is a row after value transformation. Number is the 1-based line
// number in the source sheet and is kept for error correlation.
type TypedRow struct {
	Number int
	Fields []FieldValue
}

// Get returns the value for a field and whether the field is present.
func (r TypedRow) Get(f SemanticField) (FieldValue, bool) {
	for _, fv := range r.Fields {
		if fv.Field == f {
			return fv, true
		}
	}
	return FieldValue{}, false
}

// String returns a static field's value as a string, or "" if unset.
func (r TypedRow) String(id FieldID) string {
	fv, ok := r.Get(Static(id))
	if !ok || fv.Value == nil {
		return ""
	}
	if s, ok := fv.Value.(string); ok {
		return s
	}
	return fmt.Sprint(fv.Value)
}

// Int returns a static integer field and whether it was set.
func (r TypedRow) Int(id FieldID) (int, bool) {
	fv, ok := r.Get(Static(id))
	if !ok {
		return 0, false
	}
	i, ok := fv.Value.(int)
	return i, ok
}

// Bool returns a static boolean field and whether it was set.
func (r TypedRow) Bool(id FieldID) (bool, bool) {
	fv, ok := r.Get(Static(id))
	if !ok {
		return false, false
	}
	b, ok := fv.Value.(bool)
	return b, ok
}

// Dynamic returns every dynamic field of the given category, in column order.
func (r TypedRow) Dynamic(c Category) []FieldValue {
	var out []FieldValue
	for _, fv := range r.Fields {
		if fv.Field.Category == c {
			out = append(out, fv)
		}
	}
	return out
}

// set replaces the stored value of a field in place.
func (r *TypedRow) set(f SemanticField, value any, ref *EntityRef) {
	for i := range r.Fields {
		if r.Fields[i].Field == f {
			r.Fields[i].Value = value
			if ref != nil {
				r.Fields[i].Ref = ref
			}
			return
		}
	}
}

// clone returns a deep copy of the row's field slice.
func (r TypedRow) clone() TypedRow {
	fields := make([]FieldValue, len(r.Fields))
	copy(fields, r.Fields)
	return TypedRow{Number: r.Number, Fields: fields}
}

// ValueType is the declared type of a feature's values.
type ValueType string

const (
	ValueNumber ValueType = "number"
	ValueBool   ValueType = "bool"
	ValueSelect ValueType = "select"
	ValueText   ValueType = "text"
)

// AttributeType is a variant-defining attribute (size, colour).
type AttributeType struct {
	ID       int64    `json:"id" yaml:"id"`
	Code     string   `json:"code" yaml:"code"`
	Name     string   `json:"name" yaml:"name"`
	Position int      `json:"position" yaml:"position"`
	Active   bool     `json:"active" yaml:"active"`
	Examples []string `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// FeatureType is a descriptive product feature (power, voltage).
type FeatureType struct {
	ID        int64     `json:"id" yaml:"id"`
	Code      string    `json:"code" yaml:"code"`
	Name      string    `json:"name" yaml:"name"`
	Unit      string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	ValueType ValueType `json:"value_type" yaml:"value_type"`
	Options   []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Position  int       `json:"position" yaml:"position"`
	Active    bool      `json:"active" yaml:"active"`
}

// PriceGroup is a named price list (retail, wholesale).
type PriceGroup struct {
	ID       int64  `json:"id" yaml:"id"`
	Code     string `json:"code" yaml:"code"`
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"position" yaml:"position"`
	Active   bool   `json:"active" yaml:"active"`
}

// Warehouse holds stock levels.
type Warehouse struct {
	ID       int64  `json:"id" yaml:"id"`
	Code     string `json:"code" yaml:"code"`
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"position" yaml:"position"`
	Active   bool   `json:"active" yaml:"active"`
}

// CatalogSchemaProvider exposes the live catalog schema. The pipeline only
// reads from it. Find* methods match the code exactly first, then the
// slugified name, and return (nil, nil) when nothing matches.
type CatalogSchemaProvider interface {
	FindAttributeType(ctx context.Context, codeOrSlug string) (*AttributeType, error)
	ListActiveAttributeTypes(ctx context.Context) ([]AttributeType, error)
	FindFeatureType(ctx context.Context, codeOrSlug string) (*FeatureType, error)
	ListActiveFeatureTypes(ctx context.Context) ([]FeatureType, error)
	FindPriceGroup(ctx context.Context, codeOrSlug string) (*PriceGroup, error)
	ListActivePriceGroups(ctx context.Context) ([]PriceGroup, error)
	FindWarehouse(ctx context.Context, codeOrSlug string) (*Warehouse, error)
	ListActiveWarehouses(ctx context.Context) ([]Warehouse, error)

	ProductExistsBySKU(ctx context.Context, sku string) (bool, error)
	VariantExistsBySKU(ctx context.Context, sku string) (bool, error)
	VehicleExistsBySKU(ctx context.Context, sku string) (bool, error)
}

// Tx applies single rows inside the current unit of work.
type Tx interface {
	ApplyVariantRow(ctx context.Context, row TypedRow) error
	ApplyFeatureRow(ctx context.Context, row TypedRow) error
	ApplyCompatibilityRow(ctx context.Context, row TypedRow) error
}

// Store opens units of work. WithTransaction commits when fn returns nil and
// rolls back and returns the error otherwise.
type Store interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
