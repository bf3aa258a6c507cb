package core_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/catalog"
	"github.com/Wilendar/PPM-CC-Laravel-sub027/internal/core"
)

func TestGenerateTemplate_Variants(t *testing.T) {
	gen := core.NewTemplateGenerator(newCatalog(t))

	header, err := gen.GenerateTemplate(context.Background(), core.ImportVariants)
	require.NoError(t, err)

	assert.Equal(t, core.HeaderRow{
		"SKU", "Rodzic SKU", "Nazwa wariantu", "Aktywny", "Domyślny", "Pozycja", "Zdjęcie główne",
		"Atrybut: Rozmiar", "Atrybut: Kolor",
		"Cena: Detaliczna", "Cena: Hurtowa",
		"Stan: Główny",
	}, header)
}

func TestGenerateTemplate_FeatureHeaders(t *testing.T) {
	gen := core.NewTemplateGenerator(newCatalog(t))

	header, err := gen.GenerateTemplate(context.Background(), core.ImportFeatures)
	require.NoError(t, err)

	assert.Contains(t, header, "Cecha: Moc (W) [liczba]")
	assert.Contains(t, header, "Cecha: Wodoodporny [tak/nie]")
	assert.Contains(t, header, "Cecha: Materiał [wybór]")
	assert.Contains(t, header, "Cecha: Opis techniczny")
}

// A generated header must map back onto the fields it was generated from.
func TestGenerateTemplate_RoundTrip(t *testing.T) {
	gen := core.NewTemplateGenerator(newCatalog(t))
	ctx := context.Background()

	for _, def := range core.ImportTypes() {
		t.Run(string(def.Type), func(t *testing.T) {
			cols, err := gen.Columns(ctx, def.Type)
			require.NoError(t, err)
			header, err := gen.GenerateTemplate(ctx, def.Type)
			require.NoError(t, err)

			mapping := core.DetectColumns(header)
			assert.Empty(t, mapping.Unmapped)
			assert.Equal(t, len(cols), mapping.Len())
			for _, c := range cols {
				f, ok := mapping.Field(c.Header)
				if assert.True(t, ok, c.Header) {
					assert.Equal(t, c.Field, f, c.Header)
				}
			}
			assert.NoError(t, def.CheckHeader(mapping))
		})
	}
}

// Feature names ending in parentheses look like "Name (unit)" once printed.
func TestGenerateTemplate_RoundTrip_ParenthesizedFeatureNames(t *testing.T) {
	seed, err := catalog.LoadSeed(seedPath)
	require.NoError(t, err)
	seed.FeatureTypes = append(seed.FeatureTypes,
		core.FeatureType{ID: 5, Code: "voltage", Name: "Napięcie (nominalne)", ValueType: core.ValueNumber, Position: 5, Active: true},
		core.FeatureType{ID: 6, Code: "rating", Name: "Klasa (IP)", ValueType: core.ValueText, Position: 6, Active: true},
	)
	mem := catalog.NewMemory(seed)
	gen := core.NewTemplateGenerator(mem)
	ctx := context.Background()

	cols, err := gen.Columns(ctx, core.ImportFeatures)
	require.NoError(t, err)
	header, err := gen.GenerateTemplate(ctx, core.ImportFeatures)
	require.NoError(t, err)
	assert.Contains(t, header, "Cecha: Napięcie (nominalne) [liczba]")
	assert.Contains(t, header, "Cecha: Klasa (IP)")

	mapping := core.DetectColumns(header)
	for _, c := range cols {
		f, ok := mapping.Field(c.Header)
		if assert.True(t, ok, c.Header) {
			assert.Equal(t, c.Field, f, c.Header)
		}
	}

	cells := make([]string, len(header))
	for i, h := range header {
		switch h {
		case "SKU":
			cells[i] = "LED-100"
		case "Cecha: Napięcie (nominalne) [liczba]":
			cells[i] = "230"
		case "Cecha: Klasa (IP)":
			cells[i] = "IP65"
		case "Cecha: Moc (W) [liczba]":
			cells[i] = "12"
		}
	}
	res, err := core.NewImporter(mem, mem).Run(ctx, core.ImportFeatures, table(header, cells), core.RunOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Report.Errors())
	assert.Equal(t, 1, res.Summary.Succeeded)
	assert.Equal(t, map[string]string{
		"power":   "12",
		"voltage": "230",
		"rating":  "IP65",
	}, mem.FeatureValues("LED-100"))
}

func TestGenerateTemplateWithExamples(t *testing.T) {
	gen := core.NewTemplateGenerator(newCatalog(t))
	ctx := context.Background()

	rows, err := gen.GenerateTemplateWithExamples(ctx, core.ImportVariants, 2)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	again, err := gen.GenerateTemplateWithExamples(ctx, core.ImportVariants, 2)
	require.NoError(t, err)
	assert.Equal(t, rows, again, "examples must be deterministic")

	col := func(name string) int {
		for i, h := range rows[0] {
			if h == name {
				return i
			}
		}
		t.Fatalf("column %q not in template", name)
		return -1
	}

	assert.Equal(t, "PROD-001", rows[1][col("Rodzic SKU")])
	assert.Equal(t, "S", rows[1][col("Atrybut: Rozmiar")], "seeded examples are used")
	assert.Equal(t, "M", rows[2][col("Atrybut: Rozmiar")])
	assert.Equal(t, "99,99", rows[1][col("Cena: Detaliczna")])
	assert.Equal(t, "109,99", rows[2][col("Cena: Detaliczna")])

	price, ok := core.ToDecimal(rows[2][col("Cena: Detaliczna")])
	require.True(t, ok)
	assert.InDelta(t, 109.99, price, 1e-9)
}

func TestGenerateTemplateWithExamples_SelectFeature(t *testing.T) {
	gen := core.NewTemplateGenerator(newCatalog(t))

	rows, err := gen.GenerateTemplateWithExamples(context.Background(), core.ImportFeatures, 2)
	require.NoError(t, err)

	for i, h := range rows[0] {
		switch h {
		case "Cecha: Materiał [wybór]":
			assert.Equal(t, "Stal", rows[1][i])
			assert.Equal(t, "Aluminium", rows[2][i])
		case "Cecha: Wodoodporny [tak/nie]":
			assert.Equal(t, "TAK", rows[1][i])
			assert.Equal(t, "NIE", rows[2][i])
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	gen := core.NewTemplateGenerator(newCatalog(t))
	ctx := context.Background()

	var buf bytes.Buffer
	require.NoError(t, gen.WriteXLSX(ctx, &buf, core.ImportCompatibility, 1))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"compatibility", "Instrukcja"}, f.GetSheetList())

	rows, err := f.GetRows("compatibility")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header, err := gen.GenerateTemplate(ctx, core.ImportCompatibility)
	require.NoError(t, err)
	assert.Equal(t, []string(header), rows[0])
}

func TestGenerateTemplateWithExamples_NegativeCount(t *testing.T) {
	gen := core.NewTemplateGenerator(newCatalog(t))
	ctx := context.Background()

	rows, err := gen.GenerateTemplateWithExamples(ctx, core.ImportVariants, -2)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")

	var buf bytes.Buffer
	require.NoError(t, gen.WriteXLSX(ctx, &buf, core.ImportVariants, -5))
}

func TestGenerateTemplate_UnknownType(t *testing.T) {
	gen := core.NewTemplateGenerator(newCatalog(t))

	_, err := gen.GenerateTemplate(context.Background(), "orders")
	assert.ErrorIs(t, err, core.ErrUnknownImportType)
}
