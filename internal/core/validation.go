package core

// validation.go validates typed rows in two phases.
//
//  1. Structural: per-import-type field rules (validator tags), coercion
//     failures, boolean tokens and cross-field checks. Every violation is
//     collected so users see all problems of a row at once.
//  2. Catalog: only when the structural phase passes. SKU-first existence
//     checks, vehicle lookup, dynamic column resolution and value checks
//     against the resolved entity.
//
// The Validator caches dynamic column resolutions for its lifetime. SKU
// existence is never cached: later batches must see rows committed by
// earlier ones.

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorType classifies validation and apply errors.
type ErrorType string

const (
	ErrValidation ErrorType = "validation"
	ErrExistence  ErrorType = "existence"
	ErrFormat     ErrorType = "format"
	ErrStructural ErrorType = "structural"
)

// ErrorTypes lists all error types in report order.
var ErrorTypes = []ErrorType{ErrValidation, ErrExistence, ErrFormat, ErrStructural}

// ValidationError is one problem found in a row. Column is the raw header
// text, or "" for row-level problems.
type ValidationError struct {
	Row     int       `json:"row"`
	Column  string    `json:"column,omitempty"`
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, %s: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ValidationOutcome is the result of validating one row.
type ValidationOutcome struct {
	Row    TypedRow
	Errors []ValidationError
}

// Valid reports whether the row passed both phases.
func (o ValidationOutcome) Valid() bool { return len(o.Errors) == 0 }

// ValidatorOptions tunes validation behaviour.
type ValidatorOptions struct {
	// StrictBooleans reports a format error for boolean cells that are
	// neither a yes- nor a no-token, instead of silently reading false.
	StrictBooleans bool
}

// Validator validates rows against an import definition and the catalog.
type Validator struct {
	catalog CatalogSchemaProvider
	opts    ValidatorOptions
	tags    *validator.Validate

	resolved map[string]*resolution
	seenSKUs map[string]int
}

type resolution struct {
	ref     *EntityRef
	feature *FeatureType
}

// NewValidator creates a validator bound to a catalog provider.
func NewValidator(catalog CatalogSchemaProvider, opts ValidatorOptions) *Validator {
	return &Validator{
		catalog:  catalog,
		opts:     opts,
		tags:     validator.New(),
		resolved: make(map[string]*resolution),
		seenSKUs: make(map[string]int),
	}
}

// ValidateAll validates rows in order and partitions them. Row numbers are
// preserved in both partitions.
func (v *Validator) ValidateAll(ctx context.Context, rows []TypedRow, importType ImportType, mapping ColumnMapping) (valid []TypedRow, invalid []ValidationOutcome, err error) {
	for _, row := range rows {
		out, err := v.ValidateRow(ctx, row, importType, mapping)
		if err != nil {
			return nil, nil, err
		}
		if out.Valid() {
			valid = append(valid, out.Row)
		} else {
			invalid = append(invalid, out)
		}
	}
	return valid, invalid, nil
}

// ValidateRow validates one row. The returned error is reserved for catalog
// failures (lost connection); row problems are reported in the outcome.
func (v *Validator) ValidateRow(ctx context.Context, row TypedRow, importType ImportType, mapping ColumnMapping) (ValidationOutcome, error) {
	def, err := Lookup(importType)
	if err != nil {
		return ValidationOutcome{}, err
	}

	out := ValidationOutcome{Row: row.clone()}
	out.Errors = v.structural(out.Row, def, mapping)
	if len(out.Errors) > 0 {
		return out, nil
	}

	catalogErrs, err := v.catalogPhase(ctx, &out.Row, importType, mapping)
	if err != nil {
		return ValidationOutcome{}, err
	}
	out.Errors = catalogErrs
	return out, nil
}

// structural runs the declarative rules and coercion checks.
func (v *Validator) structural(row TypedRow, def ImportDefinition, mapping ColumnMapping) []ValidationError {
	var errs []ValidationError
	add := func(column string, t ErrorType, msg string) {
		errs = append(errs, ValidationError{Row: row.Number, Column: column, Type: t, Message: msg})
	}

	formatFailed := make(map[SemanticField]bool)
	for _, fv := range row.Fields {
		raw := strings.TrimSpace(fv.Raw)
		if raw == "" {
			continue
		}
		switch fv.Field.Kind() {
		case KindInt:
			if fv.Value == nil {
				formatFailed[fv.Field] = true
				add(fv.Column, ErrFormat, fmt.Sprintf("cannot read %q as a whole number", raw))
			}
		case KindDecimal:
			if fv.Value == nil {
				formatFailed[fv.Field] = true
				add(fv.Column, ErrFormat, fmt.Sprintf("cannot read %q as a number", raw))
			}
		case KindBool:
			if v.opts.StrictBooleans && !IsBoolToken(raw) {
				formatFailed[fv.Field] = true
				add(fv.Column, ErrFormat, fmt.Sprintf("%q is not a yes/no value (use TAK/NIE, YES/NO, 1/0)", raw))
			}
		}
	}

	for _, rule := range def.Rules {
		f := Static(rule.Field)
		if formatFailed[f] {
			continue
		}
		column := mapping.ColumnFor(f)
		if column == "" {
			column = displayName(rule.Field)
		}

		// omitempty only means "may be blank": validator would also skip a
		// present zero ("0" as a year), so it is dropped for present values.
		var value any = ""
		tag := rule.Tag
		if fv, ok := row.Get(f); ok && fv.Value != nil {
			value = fv.Value
			tag = strings.TrimPrefix(tag, "omitempty,")
		}
		if err := v.tags.Var(value, tag); err != nil {
			msg := rule.Message
			if msg == "" {
				msg = ruleMessage(err)
			}
			add(column, ErrValidation, msg)
		}
	}

	for _, check := range def.Checks {
		errs = append(errs, check(row, mapping)...)
	}

	return errs
}

// ruleMessage renders the first failed validator tag as a sentence.
func ruleMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "max":
		return fmt.Sprintf("value must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("value must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("value must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("value must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("value must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return "value must be a valid URL"
	}
	return fmt.Sprintf("value fails %q", fe.Tag())
}

// catalogPhase runs existence checks and resolves dynamic fields in place.
func (v *Validator) catalogPhase(ctx context.Context, row *TypedRow, importType ImportType, mapping ColumnMapping) ([]ValidationError, error) {
	var errs []ValidationError
	add := func(column string, t ErrorType, msg string) {
		errs = append(errs, ValidationError{Row: row.Number, Column: column, Type: t, Message: msg})
	}
	col := func(id FieldID) string { return mapping.ColumnFor(Static(id)) }

	sku := row.String(FieldSKU)
	switch importType {
	case ImportVariants:
		exists, err := v.catalog.VariantExistsBySKU(ctx, sku)
		if err != nil {
			return nil, fmt.Errorf("check variant %q: %w", sku, err)
		}
		if exists {
			add(col(FieldSKU), ErrExistence, fmt.Sprintf("variant with SKU %q already exists", sku))
		} else if first, dup := v.seenSKUs[sku]; dup {
			add(col(FieldSKU), ErrExistence, fmt.Sprintf("SKU %q repeats row %d of this file", sku, first))
		}

		parent := row.String(FieldParentSKU)
		exists, err = v.catalog.ProductExistsBySKU(ctx, parent)
		if err != nil {
			return nil, fmt.Errorf("check product %q: %w", parent, err)
		}
		if !exists {
			add(col(FieldParentSKU), ErrExistence, fmt.Sprintf("parent product with SKU %q does not exist", parent))
		}

	case ImportFeatures, ImportCompatibility:
		product, err := v.catalog.ProductExistsBySKU(ctx, sku)
		if err != nil {
			return nil, fmt.Errorf("check product %q: %w", sku, err)
		}
		if !product {
			variant, err := v.catalog.VariantExistsBySKU(ctx, sku)
			if err != nil {
				return nil, fmt.Errorf("check variant %q: %w", sku, err)
			}
			if !variant {
				add(col(FieldSKU), ErrExistence, fmt.Sprintf("no product or variant with SKU %q", sku))
			}
		}
	}

	if vehicle := row.String(FieldVehicleSKU); vehicle != "" {
		exists, err := v.catalog.VehicleExistsBySKU(ctx, vehicle)
		if err != nil {
			return nil, fmt.Errorf("check vehicle %q: %w", vehicle, err)
		}
		if !exists {
			add(col(FieldVehicleSKU), ErrExistence, fmt.Sprintf("vehicle model with SKU %q does not exist", vehicle))
		}
	}

	for _, fv := range row.Fields {
		if !fv.Field.IsDynamic() {
			continue
		}
		res, err := v.resolveColumn(ctx, fv)
		if err != nil {
			return nil, err
		}
		if res == nil {
			add(fv.Column, ErrExistence, fmt.Sprintf("unknown %s %q", fv.Field.Category, fv.Field.Slug))
			continue
		}
		if fv.Value == nil {
			row.set(fv.Field, nil, res.ref)
			continue
		}

		value, msg := checkDynamicValue(fv, res, v.opts.StrictBooleans)
		if msg != "" {
			add(fv.Column, ErrValidation, msg)
			continue
		}
		row.set(fv.Field, value, res.ref)
	}

	// Only a row that will be applied claims its SKU for the rest of the file.
	if importType == ImportVariants && len(errs) == 0 {
		v.seenSKUs[sku] = row.Number
	}
	return errs, nil
}

// checkDynamicValue enforces per-category value constraints and returns the
// coerced value, or a message describing the violation.
func checkDynamicValue(fv FieldValue, res *resolution, strictBool bool) (any, string) {
	switch fv.Field.Category {
	case CategoryPrice:
		f, _ := fv.Value.(float64)
		if f < 0 {
			return nil, "price must not be negative"
		}
		return f, ""

	case CategoryStock:
		i, _ := fv.Value.(int)
		if i < 0 {
			return nil, "stock must be a non-negative whole number"
		}
		return i, ""

	case CategoryFeature:
		raw := strings.TrimSpace(fv.Raw)
		switch res.feature.ValueType {
		case ValueNumber:
			f, ok := ToDecimal(raw)
			if !ok || !looksNumeric(raw) {
				return nil, fmt.Sprintf("feature %q requires a numeric value, got %q", res.feature.Name, raw)
			}
			return f, ""
		case ValueBool:
			if strictBool && !IsBoolToken(raw) {
				return nil, fmt.Sprintf("feature %q requires a yes/no value, got %q", res.feature.Name, raw)
			}
			return ToBool(raw), ""
		case ValueSelect:
			if len(res.feature.Options) > 0 {
				for _, opt := range res.feature.Options {
					if strings.EqualFold(opt, raw) {
						return opt, ""
					}
				}
				return nil, fmt.Sprintf("feature %q must be one of: %s", res.feature.Name, strings.Join(res.feature.Options, ", "))
			}
			return raw, ""
		default:
			return raw, ""
		}
	}

	return fv.Value, ""
}

// looksNumeric rejects values where the decimal transform would discard
// letters ("12abc" is not a number even though digits remain).
func looksNumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == ',' || r == '.' || r == '-' || r == '+' || r == ' ' || r == '\u00a0' || r == '\u202f':
		default:
			return false
		}
	}
	return true
}

// resolveColumn resolves the dynamic field of one cell. A feature header
// ending in "(...)" is first tried with that suffix as part of the name, so
// "Cecha: Napięcie (nominalne)" finds a feature named exactly that before
// falling back to "Napięcie" with unit "nominalne".
func (v *Validator) resolveColumn(ctx context.Context, fv FieldValue) (*resolution, error) {
	if fv.Field.Category == CategoryFeature {
		if full := featureSlugWithSuffix(fv.Column); full != "" && full != fv.Field.Slug {
			res, err := v.resolve(ctx, Dynamic(CategoryFeature, full))
			if res != nil || err != nil {
				return res, err
			}
		}
	}
	return v.resolve(ctx, fv.Field)
}

// resolve looks a dynamic field up in the catalog, memoizing the result.
// A nil resolution with nil error means the entity does not exist.
func (v *Validator) resolve(ctx context.Context, f SemanticField) (*resolution, error) {
	key := f.Key()
	if res, ok := v.resolved[key]; ok {
		return res, nil
	}

	var res *resolution
	switch f.Category {
	case CategoryAttribute:
		at, err := v.catalog.FindAttributeType(ctx, f.Slug)
		if err != nil {
			return nil, fmt.Errorf("find attribute %q: %w", f.Slug, err)
		}
		if at != nil {
			res = &resolution{ref: &EntityRef{ID: at.ID, Code: at.Code}}
		}
	case CategoryFeature:
		ft, err := v.catalog.FindFeatureType(ctx, f.Slug)
		if err != nil {
			return nil, fmt.Errorf("find feature %q: %w", f.Slug, err)
		}
		if ft != nil {
			res = &resolution{ref: &EntityRef{ID: ft.ID, Code: ft.Code}, feature: ft}
		}
	case CategoryPrice:
		pg, err := v.catalog.FindPriceGroup(ctx, f.Slug)
		if err != nil {
			return nil, fmt.Errorf("find price group %q: %w", f.Slug, err)
		}
		if pg != nil {
			res = &resolution{ref: &EntityRef{ID: pg.ID, Code: pg.Code}}
		}
	case CategoryStock:
		wh, err := v.catalog.FindWarehouse(ctx, f.Slug)
		if err != nil {
			return nil, fmt.Errorf("find warehouse %q: %w", f.Slug, err)
		}
		if wh != nil {
			res = &resolution{ref: &EntityRef{ID: wh.ID, Code: wh.Code}}
		}
	}

	v.resolved[key] = res
	return res, nil
}
