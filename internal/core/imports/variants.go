package imports

import (
	"context"
	"fmt"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

func init() {
	registerVariants()
}

func registerVariants() {
	core.Register(core.ImportDefinition{
		Type:     core.ImportVariants,
		Label:    "Warianty",
		Required: []core.FieldID{core.FieldSKU, core.FieldParentSKU},
		TemplateFields: []core.FieldID{
			core.FieldSKU,
			core.FieldParentSKU,
			core.FieldName,
			core.FieldIsActive,
			core.FieldIsDefault,
			core.FieldPosition,
			core.FieldCoverImage,
		},
		TemplateCategories: []core.Category{
			core.CategoryAttribute,
			core.CategoryPrice,
			core.CategoryStock,
		},
		Rules: []core.FieldRule{
			{Field: core.FieldSKU, Tag: "required,max=100", Message: "SKU is required (max 100 characters)"},
			{Field: core.FieldParentSKU, Tag: "required,max=100", Message: "parent SKU is required (max 100 characters)"},
			{Field: core.FieldName, Tag: "omitempty,max=255"},
			{Field: core.FieldPosition, Tag: "omitempty,gte=0"},
			{Field: core.FieldCoverImage, Tag: "omitempty,max=500"},
		},
		Checks: []core.RowCheck{skuDiffersFromParent},
		Apply: func(ctx context.Context, tx core.Tx, row core.TypedRow) error {
			return tx.ApplyVariantRow(ctx, row)
		},
	})
}

// skuDiffersFromParent rejects variants that point at themselves.
func skuDiffersFromParent(row core.TypedRow, m core.ColumnMapping) []core.ValidationError {
	sku, parent := row.String(core.FieldSKU), row.String(core.FieldParentSKU)
	if sku == "" || sku != parent {
		return nil
	}
	return []core.ValidationError{{
		Row:     row.Number,
		Column:  m.ColumnFor(core.Static(core.FieldSKU)),
		Type:    core.ErrStructural,
		Message: fmt.Sprintf("variant SKU %q must differ from the parent SKU", sku),
	}}
}
