package core

import (
	"bytes"
	"encoding/csv"
	"strings"
	"sync"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sampleReporter() *ErrorReporter {
	r := NewErrorReporter()
	r.Add(5, "Cecha: Moc", ErrFormat, "value is not a number")
	r.Add(3, "Rodzic SKU", ErrExistence, `parent product with SKU "NOPE" does not exist`)
	r.Add(5, "", ErrStructural, "database rejected the row")
	return r
}

func TestErrorReporter_Stats(t *testing.T) {
	r := sampleReporter()

	stats := r.Stats(10)
	if stats.TotalRows != 10 || stats.ErrorRows != 2 || stats.ValidRows != 8 {
		t.Errorf("Stats = %+v, want total 10, error 2, valid 8", stats)
	}
	if stats.ByType[ErrFormat] != 1 || stats.ByType[ErrValidation] != 0 {
		t.Errorf("ByType = %v", stats.ByType)
	}
	if len(stats.ByType) != len(ErrorTypes) {
		t.Errorf("ByType has %d keys, want every error type", len(stats.ByType))
	}
}

func TestErrorReporter_ErrorsOrderedByRow(t *testing.T) {
	errs := sampleReporter().Errors()
	if len(errs) != 3 {
		t.Fatalf("len = %d, want 3", len(errs))
	}
	if errs[0].Row != 3 || errs[1].Column != "Cecha: Moc" || errs[2].Column != "" {
		t.Errorf("Errors() order = %+v", errs)
	}
}

func TestErrorReporter_ExportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReporter().ExportCSV(&buf); err != nil {
		t.Fatalf("ExportCSV() error = %v", err)
	}

	data := buf.Bytes()
	if !bytes.HasPrefix(data, utf8BOM) {
		t.Fatal("missing UTF-8 BOM")
	}

	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.Comma = ';'
	records, err := cr.ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	// header + one line per error
	if len(records) != 4 {
		t.Fatalf("got %d lines, want 4", len(records))
	}
	if strings.Join(records[0], ";") != "Row;Column;Error type;Message" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][3] != `parent product with SKU "NOPE" does not exist` {
		t.Errorf("message = %q", records[1][3])
	}
	if records[3][1] != WholeRowLabel {
		t.Errorf("row-level column = %q, want %q", records[3][1], WholeRowLabel)
	}
}

func TestErrorReporter_ExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := sampleReporter().ExportXLSX(&buf); err != nil {
		t.Fatalf("ExportXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Errors")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[1][0] != "3" || rows[1][2] != string(ErrExistence) {
		t.Errorf("first error row = %v", rows[1])
	}
}

func TestErrorReporter_ConcurrentAdd(t *testing.T) {
	r := NewErrorReporter()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(row int) {
			defer wg.Done()
			r.Add(row, "SKU", ErrValidation, "required")
		}(i + 2)
	}
	wg.Wait()

	if r.Len() != 50 {
		t.Errorf("Len() = %d, want 50", r.Len())
	}
	if s := r.Stats(50); s.ValidRows != 0 {
		t.Errorf("ValidRows = %d, want 0", s.ValidRows)
	}
}
