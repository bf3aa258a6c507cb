package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// FieldRule is a structural constraint on one static field, written as a
// go-playground/validator tag ("required,max=100").
type FieldRule struct {
	Field   FieldID
	Tag     string
	Message string // optional, overrides the generated message
}

// ApplyFunc writes one validated row through the current transaction.
type ApplyFunc func(ctx context.Context, tx Tx, row TypedRow) error

// RowCheck is a cross-field structural check.
type RowCheck func(row TypedRow, mapping ColumnMapping) []ValidationError

// ImportDefinition contains everything needed to process one import type.
type ImportDefinition struct {
	Type  ImportType
	Label string

	// Columns that must be present in the header.
	Required []FieldID

	// At least one dynamic column of this category must be present ("" = none).
	RequireCategory Category

	// Static fields listed in generated templates, in order.
	TemplateFields []FieldID

	// Dynamic categories listed in generated templates, in order.
	TemplateCategories []Category

	Rules  []FieldRule
	Checks []RowCheck
	Apply  ApplyFunc
}

var (
	registry   = make(map[ImportType]ImportDefinition)
	registryMu sync.RWMutex
)

// Register adds an import definition to the registry.
// Panics if the type is already registered.
func Register(def ImportDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("import type already registered: %s", def.Type))
	}
	registry[def.Type] = def
}

// Lookup returns the definition for an import type.
func Lookup(t ImportType) (ImportDefinition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[t]
	if !ok {
		return ImportDefinition{}, fmt.Errorf("%w: %s", ErrUnknownImportType, t)
	}
	return def, nil
}

// ImportTypes returns all registered definitions sorted by type.
func ImportTypes() []ImportDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]ImportDefinition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Type < result[j].Type
	})
	return result
}

// Clear removes all registered definitions.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[ImportType]ImportDefinition)
}

// RequiredColumns returns the template names of the columns CheckHeader
// looks for. A required category is shown as "Prefix: …".
func (d ImportDefinition) RequiredColumns() []string {
	cols := make([]string, 0, len(d.Required)+1)
	for _, id := range d.Required {
		cols = append(cols, displayName(id))
	}
	if d.RequireCategory != "" {
		cols = append(cols, categoryPrefix(d.RequireCategory)+": …")
	}
	return cols
}

// CheckHeader verifies that the mapping carries every column the import type
// needs. Returns an error wrapping ErrMissingColumns listing what is missing.
func (d ImportDefinition) CheckHeader(m ColumnMapping) error {
	var missing []string
	for _, id := range d.Required {
		if !m.Has(Static(id)) {
			missing = append(missing, displayName(id))
		}
	}
	if d.RequireCategory != "" && !m.HasCategory(d.RequireCategory) {
		missing = append(missing, categoryPrefix(d.RequireCategory)+": …")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingColumns, missing)
	}
	return nil
}
