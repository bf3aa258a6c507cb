package core

import (
	"reflect"
	"testing"
)

func TestSplitValues(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"S", []string{"S"}},
		{"S|M|L", []string{"S", "M", "L"}},
		{" S ; M ", []string{"S", "M"}},
		{"S||M|", []string{"S", "M"}},
		{"", []string{}},
	}

	for _, tt := range tests {
		got := SplitValues(tt.in)
		if len(got) == 0 && len(tt.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SplitValues(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func variantRow(number int, cells ...string) TypedRow {
	header := HeaderRow{"SKU", "Rodzic SKU", "Nazwa", "Atrybut: Rozmiar", "Atrybut: Kolor"}
	return TransformRow(number, cells, DetectColumns(header))
}

func TestExpandCombinations(t *testing.T) {
	rows := []TypedRow{
		variantRow(2, "", "KASK-01", "Kask", "S|M", "Czerwony|Niebieski"),
	}

	got := ExpandCombinations(rows)

	wantSKUs := []string{
		"KASK-01-s-czerwony",
		"KASK-01-s-niebieski",
		"KASK-01-m-czerwony",
		"KASK-01-m-niebieski",
	}
	if len(got) != len(wantSKUs) {
		t.Fatalf("len = %d, want %d", len(got), len(wantSKUs))
	}
	for i, row := range got {
		if sku := row.String(FieldSKU); sku != wantSKUs[i] {
			t.Errorf("row %d SKU = %q, want %q", i, sku, wantSKUs[i])
		}
		if row.Number != 2 {
			t.Errorf("row %d Number = %d, want 2", i, row.Number)
		}
	}

	first := got[0]
	if v, _ := first.Get(Dynamic(CategoryAttribute, "rozmiar")); v.Value != "S" {
		t.Errorf("rozmiar = %v, want S", v.Value)
	}
	if name := first.String(FieldName); name != "Kask S Czerwony" {
		t.Errorf("name = %q, want %q", name, "Kask S Czerwony")
	}
}

func TestExpandCombinations_PassThrough(t *testing.T) {
	tests := []struct {
		name string
		row  TypedRow
	}{
		{"single values", variantRow(2, "KASK-01-S", "KASK-01", "Kask S", "S", "Czarny")},
		{"no parent", variantRow(3, "X", "", "Kask", "S|M", "")},
		{"no attributes", variantRow(4, "X", "KASK-01", "Kask", "", "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExpandCombinations([]TypedRow{tt.row})
			if len(got) != 1 || !reflect.DeepEqual(got[0], tt.row) {
				t.Errorf("ExpandCombinations() = %+v, want row unchanged", got)
			}
		})
	}
}

func TestExpandCombinations_DoesNotAliasSource(t *testing.T) {
	src := variantRow(2, "", "KASK-01", "", "S|M", "")
	before := src.clone()

	_ = ExpandCombinations([]TypedRow{src})

	if !reflect.DeepEqual(src, before) {
		t.Error("source row was modified by expansion")
	}
}

func TestCartesian(t *testing.T) {
	got := cartesian([][]string{{"a", "b"}, {"1"}, {"x", "y"}})
	want := [][]string{{"a", "1", "x"}, {"a", "1", "y"}, {"b", "1", "x"}, {"b", "1", "y"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("cartesian() = %v, want %v", got, want)
	}
}
