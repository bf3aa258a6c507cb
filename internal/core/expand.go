package core

import (
	"strings"
)

// multiValueSeparators split one attribute cell into several values.
const multiValueSeparators = "|;"

// SplitValues splits a multi-valued cell ("S|M|L") into trimmed, non-empty
// values. A cell without separators yields one value.
func SplitValues(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(multiValueSeparators, r)
	})
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExpandCombinations replaces every variant row that carries at least one
// multi-valued attribute cell with one row per combination of its attribute
// values (the Cartesian product, first attribute column varying slowest).
//
// Each derived row gets the SKU "{parent_sku}-{slug(v1)}-{slug(v2)}..." over
// all attribute columns in mapping order, and keeps the source row number.
// Rows without multi-valued attributes, or without a parent SKU to derive
// from, pass through unchanged.
func ExpandCombinations(rows []TypedRow) []TypedRow {
	out := make([]TypedRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, expandRow(row)...)
	}
	return out
}

func expandRow(row TypedRow) []TypedRow {
	parent := row.String(FieldParentSKU)
	attrs := row.Dynamic(CategoryAttribute)

	var axes [][]string
	multi := false
	for _, fv := range attrs {
		s, _ := fv.Value.(string)
		values := SplitValues(s)
		if len(values) == 0 {
			continue
		}
		if len(values) > 1 {
			multi = true
		}
		axes = append(axes, values)
	}
	if !multi || parent == "" {
		return []TypedRow{row}
	}

	// Attribute fields that carried values, aligned with axes.
	var fields []SemanticField
	for _, fv := range attrs {
		if s, _ := fv.Value.(string); len(SplitValues(s)) > 0 {
			fields = append(fields, fv.Field)
		}
	}

	combos := cartesian(axes)
	out := make([]TypedRow, 0, len(combos))
	baseName := row.String(FieldName)

	for _, combo := range combos {
		derived := row.clone()

		parts := make([]string, 0, len(combo)+1)
		parts = append(parts, parent)
		for i, v := range combo {
			parts = append(parts, Slug(v))
			setValue(&derived, fields[i], v)
		}

		sku := strings.Join(parts, "-")
		if !setValue(&derived, Static(FieldSKU), sku) {
			derived.Fields = append(derived.Fields, FieldValue{Field: Static(FieldSKU), Raw: sku, Value: sku})
		}
		if baseName != "" {
			setValue(&derived, Static(FieldName), baseName+" "+strings.Join(combo, " "))
		}

		out = append(out, derived)
	}
	return out
}

// setValue overwrites both the raw and typed value of a field. Reports
// whether the field was present.
func setValue(row *TypedRow, f SemanticField, v string) bool {
	for i := range row.Fields {
		if row.Fields[i].Field == f {
			row.Fields[i].Raw = v
			row.Fields[i].Value = v
			return true
		}
	}
	return false
}

// cartesian returns every combination picking one value per axis. The last
// axis varies fastest.
func cartesian(axes [][]string) [][]string {
	result := [][]string{{}}
	for _, axis := range axes {
		next := make([][]string, 0, len(result)*len(axis))
		for _, prefix := range result {
			for _, v := range axis {
				combo := make([]string, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, v))
			}
		}
		result = next
	}
	return result
}
