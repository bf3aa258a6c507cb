package core

// convert.go coerces raw cell strings into typed values.
//
// The rules follow what spreadsheet users actually type into Polish catalog
// sheets:
//   - yes/no tokens in Polish and English (TAK, NIE, YES, 1, Y, T ...)
//   - thousands separated with spaces and a decimal comma ("1 234,56")
//   - integers with stray characters ("12 szt.")
//
// Transform never fails. A non-empty cell that cannot be coerced comes back
// as nil, and the validator reports it as a format error.

import (
	"strconv"
	"strings"
)

var (
	yesTokens = map[string]bool{"TAK": true, "YES": true, "TRUE": true, "1": true, "Y": true, "T": true}
	noTokens  = map[string]bool{"NIE": true, "NO": true, "FALSE": true, "0": true, "N": true, "F": true}
)

// Transform converts a raw cell to the native type for field.
// Empty cells are nil for every field type.
func Transform(raw string, field SemanticField) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	switch field.Kind() {
	case KindBool:
		return ToBool(s)
	case KindInt:
		if i, ok := ToInt(s); ok {
			return i
		}
		return nil
	case KindDecimal:
		if f, ok := ToDecimal(s); ok {
			return f
		}
		return nil
	default:
		return s
	}
}

// ToBool reports whether s is one of the accepted "yes" tokens.
// Unrecognized tokens are false; see IsBoolToken for strict checking.
func ToBool(s string) bool {
	return yesTokens[strings.ToUpper(strings.TrimSpace(s))]
}

// IsBoolToken reports whether s is a recognized yes or no token.
func IsBoolToken(s string) bool {
	u := strings.ToUpper(strings.TrimSpace(s))
	return yesTokens[u] || noTokens[u]
}

// ToInt keeps digits and a leading minus, then parses.
// Returns false when nothing parseable remains or when the value has a
// fractional part ("3.5", "3,5"): dropping the separator would read it as 35.
func ToInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if hasDecimalSeparator(s) {
		return 0, false
	}
	var b strings.Builder
	for i, r := range s {
		if r == '-' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	clean := b.String()
	if clean == "" || clean == "-" {
		return 0, false
	}
	i, err := strconv.Atoi(clean)
	if err != nil {
		return 0, false
	}
	return i, true
}

// hasDecimalSeparator reports whether a "." or "," is followed by a digit.
func hasDecimalSeparator(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if (s[i] == '.' || s[i] == ',') && s[i+1] >= '0' && s[i+1] <= '9' {
			return true
		}
	}
	return false
}

// ToDecimal parses Polish and English decimal notations: spaces (including
// non-breaking ones) are thousands separators and "," is the decimal point.
func ToDecimal(s string) (float64, bool) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t':
			return -1
		case ',':
			return '.'
		}
		return r
	}, s)

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	clean := b.String()
	if clean == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// TransformRow builds a TypedRow from raw cells using the mapping. Columns
// beyond the end of a short row are omitted; empty cells are kept as nil.
func TransformRow(number int, cells []string, mapping ColumnMapping) TypedRow {
	row := TypedRow{Number: number, Fields: make([]FieldValue, 0, mapping.Len())}
	for _, col := range mapping.Columns {
		if col.Index >= len(cells) {
			continue
		}
		raw := cells[col.Index]
		row.Fields = append(row.Fields, FieldValue{
			Field:  col.Field,
			Column: col.Column,
			Raw:    raw,
			Value:  Transform(raw, col.Field),
		})
	}
	return row
}
