package core

// templates.go generates import templates from the live catalog schema.
//
// Dynamic headers follow "{Prefix}: {Name}[ ({unit})][ [{hint}]]" so a
// generated header always maps back to the same semantic field. Example
// rows are synthesized from fixed tables and never touch the store.

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// valueTypeHints are appended to feature headers as "[hint]".
var valueTypeHints = map[ValueType]string{
	ValueNumber: "liczba",
	ValueBool:   "tak/nie",
	ValueSelect: "wybór",
}

// Placeholder tables for example rows, cycled by row index.
var (
	exampleAttributeValues = [][]string{
		{"S", "M", "L", "XL"},
		{"Czerwony", "Niebieski", "Czarny", "Biały"},
		{"Stal", "Aluminium", "Tworzywo"},
	}
	exampleVehicles = []struct{ brand, model string }{
		{"Honda", "CRF 250"},
		{"Yamaha", "YZ 125"},
		{"KTM", "EXC 300"},
	}
	exampleCompatibility = []string{"original", "replacement"}
	basePrice            = decimal.RequireFromString("99.99")
)

// TemplateColumn describes one generated column.
type TemplateColumn struct {
	Header   string
	Field    SemanticField
	Required bool

	attrIndex int
	examples  []string
	feature   *FeatureType
}

// TemplateGenerator builds headers and example rows for an import type.
type TemplateGenerator struct {
	catalog CatalogSchemaProvider
}

// NewTemplateGenerator creates a generator reading the given catalog.
func NewTemplateGenerator(catalog CatalogSchemaProvider) *TemplateGenerator {
	return &TemplateGenerator{catalog: catalog}
}

// Columns returns the template columns for an import type, static fields
// first, then each dynamic category in display order.
func (g *TemplateGenerator) Columns(ctx context.Context, importType ImportType) ([]TemplateColumn, error) {
	def, err := Lookup(importType)
	if err != nil {
		return nil, err
	}

	required := make(map[FieldID]bool, len(def.Required))
	for _, id := range def.Required {
		required[id] = true
	}

	var cols []TemplateColumn
	for _, id := range def.TemplateFields {
		cols = append(cols, TemplateColumn{
			Header:   displayName(id),
			Field:    Static(id),
			Required: required[id],
		})
	}

	for _, c := range def.TemplateCategories {
		dyn, err := g.dynamicColumns(ctx, c)
		if err != nil {
			return nil, err
		}
		cols = append(cols, dyn...)
	}
	return cols, nil
}

func (g *TemplateGenerator) dynamicColumns(ctx context.Context, c Category) ([]TemplateColumn, error) {
	prefix := categoryPrefix(c)
	var cols []TemplateColumn

	switch c {
	case CategoryAttribute:
		items, err := g.catalog.ListActiveAttributeTypes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list attribute types: %w", err)
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
		for i, at := range items {
			cols = append(cols, TemplateColumn{
				Header:    prefix + ": " + at.Name,
				Field:     Dynamic(c, NormalizeName(at.Name)),
				attrIndex: i,
				examples:  at.Examples,
			})
		}

	case CategoryFeature:
		items, err := g.catalog.ListActiveFeatureTypes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list feature types: %w", err)
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
		for i := range items {
			ft := items[i]
			name := ft.Name
			if ft.Unit != "" {
				name += " (" + ft.Unit + ")"
			}
			if hint, ok := valueTypeHints[ft.ValueType]; ok {
				name += " [" + hint + "]"
			}
			cols = append(cols, TemplateColumn{
				Header:  prefix + ": " + name,
				Field:   Dynamic(c, featureSlug(name)),
				feature: &ft,
			})
		}

	case CategoryPrice:
		items, err := g.catalog.ListActivePriceGroups(ctx)
		if err != nil {
			return nil, fmt.Errorf("list price groups: %w", err)
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
		for _, pg := range items {
			cols = append(cols, TemplateColumn{Header: prefix + ": " + pg.Name, Field: Dynamic(c, NormalizeName(pg.Name))})
		}

	case CategoryStock:
		items, err := g.catalog.ListActiveWarehouses(ctx)
		if err != nil {
			return nil, fmt.Errorf("list warehouses: %w", err)
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].Position < items[j].Position })
		for _, wh := range items {
			cols = append(cols, TemplateColumn{Header: prefix + ": " + wh.Name, Field: Dynamic(c, NormalizeName(wh.Name))})
		}
	}

	return cols, nil
}

// GenerateTemplate returns the header row for an import type.
func (g *TemplateGenerator) GenerateTemplate(ctx context.Context, importType ImportType) (HeaderRow, error) {
	cols, err := g.Columns(ctx, importType)
	if err != nil {
		return nil, err
	}
	header := make(HeaderRow, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	return header, nil
}

// GenerateTemplateWithExamples returns the header followed by exampleCount
// deterministic example rows.
func (g *TemplateGenerator) GenerateTemplateWithExamples(ctx context.Context, importType ImportType, exampleCount int) ([][]string, error) {
	cols, err := g.Columns(ctx, importType)
	if err != nil {
		return nil, err
	}
	return renderRows(cols, exampleCount), nil
}

// renderRows builds the header and example rows. A negative count is zero.
func renderRows(cols []TemplateColumn, exampleCount int) [][]string {
	exampleCount = max(exampleCount, 0)
	rows := make([][]string, 0, exampleCount+1)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Header
	}
	rows = append(rows, header)

	for n := 0; n < exampleCount; n++ {
		row := make([]string, len(cols))
		for i, c := range cols {
			row[i] = exampleValue(c, n)
		}
		rows = append(rows, row)
	}
	return rows
}

// exampleValue returns the placeholder for column c in example row n (0-based).
func exampleValue(c TemplateColumn, n int) string {
	num := n + 1
	if c.Field.IsDynamic() {
		switch c.Field.Category {
		case CategoryAttribute:
			values := exampleAttributeValues[c.attrIndex%len(exampleAttributeValues)]
			if len(c.examples) > 0 {
				values = c.examples
			}
			return values[n%len(values)]
		case CategoryFeature:
			switch c.feature.ValueType {
			case ValueNumber:
				return strconv.Itoa(num * 10)
			case ValueBool:
				if n%2 == 0 {
					return "TAK"
				}
				return "NIE"
			case ValueSelect:
				if len(c.feature.Options) > 0 {
					return c.feature.Options[n%len(c.feature.Options)]
				}
			}
			return fmt.Sprintf("przykład %d", num)
		case CategoryPrice:
			p := basePrice.Add(decimal.NewFromInt(int64(10 * n)))
			return decimalComma(p)
		case CategoryStock:
			return strconv.Itoa(10 * num)
		}
		return ""
	}

	vehicle := exampleVehicles[n%len(exampleVehicles)]
	switch c.Field.Static {
	case FieldSKU:
		return fmt.Sprintf("PROD-%03d-V%d", 1, num)
	case FieldParentSKU:
		return "PROD-001"
	case FieldName:
		return fmt.Sprintf("Wariant przykładowy %d", num)
	case FieldIsActive:
		return "TAK"
	case FieldIsDefault, FieldIsVerified:
		if n == 0 {
			return "TAK"
		}
		return "NIE"
	case FieldPosition:
		return strconv.Itoa(num)
	case FieldVehicleSKU:
		return fmt.Sprintf("VEH-%03d", num)
	case FieldVehicleBrand:
		return vehicle.brand
	case FieldVehicleModel:
		return vehicle.model
	case FieldYearFrom:
		return strconv.Itoa(2015 + n)
	case FieldYearTo:
		return strconv.Itoa(2020 + n)
	case FieldCompatibilityType:
		return exampleCompatibility[n%len(exampleCompatibility)]
	case FieldSource:
		return "manual"
	case FieldCoverImage:
		return fmt.Sprintf("https://example.com/img/prod-001-%d.jpg", num)
	}
	return ""
}

// decimalComma formats a price with two places and a decimal comma.
func decimalComma(d decimal.Decimal) string {
	s := d.StringFixed(2)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[:i] + "," + s[i+1:]
		}
	}
	return s
}

// WriteCSV writes rows as semicolon-separated UTF-8 with a BOM so Excel
// opens Polish characters correctly.
func WriteCSV(w io.Writer, rows [][]string) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with the template sheet (named after the import
// type) and an instruction sheet. Required columns get a distinct style.
func (g *TemplateGenerator) WriteXLSX(ctx context.Context, w io.Writer, importType ImportType, exampleCount int) error {
	cols, err := g.Columns(ctx, importType)
	if err != nil {
		return err
	}
	rows := renderRows(cols, exampleCount)

	f := excelize.NewFile()
	defer f.Close()

	sheet := string(importType)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
	})

	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}
	for c, col := range cols {
		cell, _ := excelize.CoordinatesToCellName(c+1, 1)
		style := headerStyle
		if col.Required {
			style = requiredStyle
		}
		_ = f.SetCellStyle(sheet, cell, cell, style)
		name, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(sheet, name, name, 22)
	}

	const help = "Instrukcja"
	if _, err := f.NewSheet(help); err != nil {
		return fmt.Errorf("create instruction sheet: %w", err)
	}
	_ = f.SetCellStr(help, "A1", "Kolumna")
	_ = f.SetCellStr(help, "B1", "Pole")
	_ = f.SetCellStr(help, "C1", "Wymagana")
	for i, col := range cols {
		r := strconv.Itoa(i + 2)
		_ = f.SetCellStr(help, "A"+r, col.Header)
		_ = f.SetCellStr(help, "B"+r, col.Field.Key())
		if col.Required {
			_ = f.SetCellStr(help, "C"+r, "TAK")
		} else {
			_ = f.SetCellStr(help, "C"+r, "NIE")
		}
	}
	_ = f.SetColWidth(help, "A", "A", 40)
	_ = f.SetColWidth(help, "B", "B", 30)

	if idx, err := f.GetSheetIndex(sheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
