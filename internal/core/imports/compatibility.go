package imports

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

// CompatibilityTypes maps accepted spellings (normalized) to the stored type.
var CompatibilityTypes = map[string]string{
	"original":    "original",
	"oryginal":    "original",
	"oryginalny":  "original",
	"oe":          "original",
	"replacement": "replacement",
	"zamiennik":   "replacement",
	"zamienny":    "replacement",
	"universal":   "universal",
	"uniwersalny": "universal",
}

// CanonicalCompatibilityType returns the stored form of a compatibility type,
// or "" if the value is not recognized.
func CanonicalCompatibilityType(s string) string {
	return CompatibilityTypes[core.NormalizeName(s)]
}

func init() {
	registerCompatibility()
}

func registerCompatibility() {
	core.Register(core.ImportDefinition{
		Type:     core.ImportCompatibility,
		Label:    "Dopasowania",
		Required: []core.FieldID{core.FieldSKU, core.FieldVehicleSKU},
		TemplateFields: []core.FieldID{
			core.FieldSKU,
			core.FieldVehicleSKU,
			core.FieldVehicleBrand,
			core.FieldVehicleModel,
			core.FieldYearFrom,
			core.FieldYearTo,
			core.FieldCompatibilityType,
			core.FieldIsVerified,
			core.FieldSource,
			core.FieldNotes,
		},
		Rules: []core.FieldRule{
			{Field: core.FieldSKU, Tag: "required,max=100", Message: "SKU is required (max 100 characters)"},
			{Field: core.FieldVehicleSKU, Tag: "required,max=100", Message: "vehicle SKU is required (max 100 characters)"},
			{Field: core.FieldVehicleBrand, Tag: "omitempty,max=100"},
			{Field: core.FieldVehicleModel, Tag: "omitempty,max=100"},
			{Field: core.FieldYearFrom, Tag: "omitempty,gte=1900,lte=2100"},
			{Field: core.FieldYearTo, Tag: "omitempty,gte=1900,lte=2100"},
			{Field: core.FieldSource, Tag: "omitempty,max=50"},
			{Field: core.FieldNotes, Tag: "omitempty,max=1000"},
		},
		Checks: []core.RowCheck{yearRange, compatibilityType},
		Apply: func(ctx context.Context, tx core.Tx, row core.TypedRow) error {
			return tx.ApplyCompatibilityRow(ctx, row)
		},
	})
}

// yearRange requires year_to >= year_from when both are set.
func yearRange(row core.TypedRow, m core.ColumnMapping) []core.ValidationError {
	from, okFrom := row.Int(core.FieldYearFrom)
	to, okTo := row.Int(core.FieldYearTo)
	if !okFrom || !okTo || to >= from {
		return nil
	}
	return []core.ValidationError{{
		Row:     row.Number,
		Column:  m.ColumnFor(core.Static(core.FieldYearTo)),
		Type:    core.ErrStructural,
		Message: fmt.Sprintf("year to (%d) must not be earlier than year from (%d)", to, from),
	}}
}

// compatibilityType accepts the Polish and English spellings.
func compatibilityType(row core.TypedRow, m core.ColumnMapping) []core.ValidationError {
	raw := row.String(core.FieldCompatibilityType)
	if raw == "" || CanonicalCompatibilityType(raw) != "" {
		return nil
	}

	seen := make(map[string]bool)
	var allowed []string
	for _, v := range CompatibilityTypes {
		if !seen[v] {
			seen[v] = true
			allowed = append(allowed, v)
		}
	}
	sort.Strings(allowed)

	return []core.ValidationError{{
		Row:     row.Number,
		Column:  m.ColumnFor(core.Static(core.FieldCompatibilityType)),
		Type:    core.ErrValidation,
		Message: fmt.Sprintf("compatibility type must be one of: %s", strings.Join(allowed, ", ")),
	}}
}
