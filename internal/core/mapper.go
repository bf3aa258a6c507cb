package core

// mapper.go turns a raw header row into a ColumnMapping.
//
// Matching order for each column:
//  1. exact match of the normalized header against the static table
//  2. explicit category prefix ("Atrybut: Rozmiar", "Cecha: Moc (W) [liczba]")
//  3. "contains" match against the static table, first field wins
//
// Prefixed headers are tried before "contains" so that "Atrybut: Model" is an
// attribute column, not a partial hit on the vehicle model field.
//
// A trailing "(...)" on a feature header is taken as its unit. Feature names
// that themselves end in parentheses are resolved by the validator, which
// also tries the slug with the suffix kept (see featureSlugWithSuffix).
//
// The mapper never touches the catalog; dynamic columns are resolved by the
// validator.

import (
	"regexp"
	"strings"
)

// staticPattern lists accepted display names for one static field.
// The first name is the one used in generated templates.
type staticPattern struct {
	field FieldID
	names []string
}

// staticPatterns is ordered: fields whose names contain another field's
// name (parent_sku, vehicle_sku contain "sku") come first.
var staticPatterns = []staticPattern{
	{FieldParentSKU, []string{"Rodzic SKU", "SKU rodzica", "Parent SKU", "Produkt nadrzędny", "Parent product"}},
	{FieldVehicleSKU, []string{"SKU pojazdu", "Pojazd SKU", "Vehicle SKU"}},
	{FieldSKU, []string{"SKU", "Kod produktu", "Product code", "Symbol"}},
	{FieldName, []string{"Nazwa wariantu", "Nazwa", "Variant name", "Name"}},
	{FieldIsActive, []string{"Aktywny", "Active", "Is active"}},
	{FieldIsDefault, []string{"Domyślny", "Default", "Is default"}},
	{FieldIsVerified, []string{"Zweryfikowany", "Verified", "Is verified"}},
	{FieldPosition, []string{"Pozycja", "Kolejność", "Position", "Sort order"}},
	{FieldVehicleBrand, []string{"Marka pojazdu", "Vehicle brand", "Marka", "Brand"}},
	{FieldVehicleModel, []string{"Model pojazdu", "Vehicle model", "Model"}},
	{FieldYearFrom, []string{"Rok od", "Od roku", "Year from"}},
	{FieldYearTo, []string{"Rok do", "Do roku", "Year to"}},
	{FieldCompatibilityType, []string{"Typ dopasowania", "Rodzaj dopasowania", "Compatibility type"}},
	{FieldSource, []string{"Źródło", "Source"}},
	{FieldNotes, []string{"Uwagi", "Notatki", "Notes"}},
	{FieldCoverImage, []string{"Zdjęcie główne", "Okładka", "Cover image", "Main image"}},
}

// categoryPrefixes maps normalized prefix keywords to categories. The first
// keyword per category is the one used in generated templates.
var categoryPrefixes = []struct {
	category Category
	keywords []string
}{
	{CategoryAttribute, []string{"Atrybut", "Attribute"}},
	{CategoryFeature, []string{"Cecha", "Feature"}},
	{CategoryPrice, []string{"Cena", "Price"}},
	{CategoryStock, []string{"Stan", "Stock", "Magazyn"}},
}

var (
	featureHintSuffix = regexp.MustCompile(`\s*\[[^\]]*\]\s*$`)
	featureUnitSuffix = regexp.MustCompile(`\s*\([^()]*\)\s*$`)
)

// normalizedStatic caches normalized candidate names, built once.
var normalizedStatic = func() [][]string {
	out := make([][]string, len(staticPatterns))
	for i, p := range staticPatterns {
		for _, n := range p.names {
			out[i] = append(out[i], NormalizeName(n))
		}
	}
	return out
}()

// MappedColumn is one recognized column of the header.
type MappedColumn struct {
	Column string        `json:"column"`
	Index  int           `json:"index"`
	Field  SemanticField `json:"-"`
	Key    string        `json:"field"`
}

// ColumnMapping maps raw column names to semantic fields. It is built once
// per import and is read-only afterwards.
type ColumnMapping struct {
	Columns  []MappedColumn `json:"columns"`
	Unmapped []string       `json:"unmapped,omitempty"`
	byName   map[string]int
}

// Len returns the number of mapped columns.
func (m ColumnMapping) Len() int { return len(m.Columns) }

// Field returns the semantic field for a raw column name.
func (m ColumnMapping) Field(column string) (SemanticField, bool) {
	i, ok := m.byName[column]
	if !ok {
		return SemanticField{}, false
	}
	return m.Columns[i].Field, true
}

// Has reports whether any column maps to f.
func (m ColumnMapping) Has(f SemanticField) bool {
	for _, c := range m.Columns {
		if c.Field == f {
			return true
		}
	}
	return false
}

// HasCategory reports whether any dynamic column of category c is mapped.
func (m ColumnMapping) HasCategory(c Category) bool {
	for _, col := range m.Columns {
		if col.Field.Category == c {
			return true
		}
	}
	return false
}

// ColumnFor returns the raw column name mapped to f, or "".
func (m ColumnMapping) ColumnFor(f SemanticField) string {
	for _, c := range m.Columns {
		if c.Field == f {
			return c.Column
		}
	}
	return ""
}

// DetectColumns builds the mapping for a header row. Duplicate raw names:
// the last occurrence wins.
func DetectColumns(header HeaderRow) ColumnMapping {
	m := ColumnMapping{byName: make(map[string]int)}

	for idx, raw := range header {
		field, ok := detectField(raw)
		if !ok {
			if strings.TrimSpace(raw) != "" {
				m.Unmapped = append(m.Unmapped, raw)
			}
			continue
		}

		col := MappedColumn{Column: raw, Index: idx, Field: field, Key: field.Key()}
		if prev, dup := m.byName[raw]; dup {
			m.Columns[prev] = col
			continue
		}
		m.byName[raw] = len(m.Columns)
		m.Columns = append(m.Columns, col)
	}

	return m
}

// detectField resolves one raw column name.
func detectField(raw string) (SemanticField, bool) {
	norm := NormalizeName(raw)
	if norm == "" {
		return SemanticField{}, false
	}

	for i, p := range staticPatterns {
		for _, cand := range normalizedStatic[i] {
			if norm == cand {
				return Static(p.field), true
			}
		}
	}

	if f, ok := detectDynamic(raw); ok {
		return f, true
	}

	for i, p := range staticPatterns {
		for _, cand := range normalizedStatic[i] {
			if strings.Contains(norm, cand) {
				return Static(p.field), true
			}
		}
	}

	return SemanticField{}, false
}

// detectDynamic parses "Prefix: Name" headers.
func detectDynamic(raw string) (SemanticField, bool) {
	prefix, name, found := strings.Cut(raw, ":")
	if !found {
		return SemanticField{}, false
	}

	normPrefix := NormalizeName(prefix)
	for _, cp := range categoryPrefixes {
		for _, kw := range cp.keywords {
			if normPrefix != NormalizeName(kw) {
				continue
			}
			s := NormalizeName(name)
			if cp.category == CategoryFeature {
				s = featureSlug(name)
			}
			if s == "" {
				return SemanticField{}, false
			}
			return Dynamic(cp.category, s), true
		}
	}
	return SemanticField{}, false
}

// featureSlug strips the "[hint]" and "(unit)" suffixes of a feature header
// name and normalizes the rest.
func featureSlug(name string) string {
	name = featureHintSuffix.ReplaceAllString(name, "")
	return NormalizeName(featureUnitSuffix.ReplaceAllString(name, ""))
}

// featureSlugWithSuffix returns the slug of a "Cecha: ..." header with only
// the "[hint]" removed, or "" when the header has no category prefix.
// "Cecha: Napięcie (nominalne)" gives "napiecie_nominalne".
func featureSlugWithSuffix(column string) string {
	_, name, found := strings.Cut(column, ":")
	if !found {
		return ""
	}
	return NormalizeName(featureHintSuffix.ReplaceAllString(name, ""))
}

// displayName returns the template header name for a static field.
func displayName(id FieldID) string {
	for _, p := range staticPatterns {
		if p.field == id {
			return p.names[0]
		}
	}
	return id.String()
}

// categoryPrefix returns the template prefix keyword for a category.
func categoryPrefix(c Category) string {
	for _, cp := range categoryPrefixes {
		if cp.category == c {
			return cp.keywords[0]
		}
	}
	return string(c)
}
