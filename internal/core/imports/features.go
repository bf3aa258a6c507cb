package imports

import (
	"context"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

func init() {
	registerFeatures()
}

func registerFeatures() {
	core.Register(core.ImportDefinition{
		Type:               core.ImportFeatures,
		Label:              "Cechy",
		Required:           []core.FieldID{core.FieldSKU},
		RequireCategory:    core.CategoryFeature,
		TemplateFields:     []core.FieldID{core.FieldSKU},
		TemplateCategories: []core.Category{core.CategoryFeature},
		Rules: []core.FieldRule{
			{Field: core.FieldSKU, Tag: "required,max=100", Message: "SKU is required (max 100 characters)"},
		},
		Apply: func(ctx context.Context, tx core.Tx, row core.TypedRow) error {
			return tx.ApplyFeatureRow(ctx, row)
		},
	})
}
