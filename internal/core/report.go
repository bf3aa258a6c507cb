package core

// report.go accumulates row- and column-scoped errors for one import run.
//
// Stats count distinct rows. A row with three errors is one error row but
// three report lines. Rows that fail only while being applied are counted
// here only when the caller adds them (the Importer does); ImportRunSummary
// is the ledger that keeps validation and apply failures apart.

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/xuri/excelize/v2"
)

// WholeRowLabel is printed in the column field for row-level errors.
const WholeRowLabel = "(whole row)"

var reportHeader = []string{"Row", "Column", "Error type", "Message"}

// ReportStats summarizes an error report.
type ReportStats struct {
	TotalRows int               `json:"total_rows"`
	ValidRows int               `json:"valid_rows"`
	ErrorRows int               `json:"error_rows"`
	ByType    map[ErrorType]int `json:"by_type"`
}

// ErrorReporter collects errors. It is safe for concurrent use.
type ErrorReporter struct {
	mu     sync.Mutex
	errors []ValidationError
}

// NewErrorReporter returns an empty reporter.
func NewErrorReporter() *ErrorReporter {
	return &ErrorReporter{}
}

// Add records one error. An empty column marks a row-level error.
func (r *ErrorReporter) Add(row int, column string, t ErrorType, message string) {
	r.AddError(ValidationError{Row: row, Column: column, Type: t, Message: message})
}

// AddError records a ValidationError as-is.
func (r *ErrorReporter) AddError(e ValidationError) {
	r.mu.Lock()
	r.errors = append(r.errors, e)
	r.mu.Unlock()
}

// Merge records every error of a validation outcome.
func (r *ErrorReporter) Merge(out ValidationOutcome) {
	r.mu.Lock()
	r.errors = append(r.errors, out.Errors...)
	r.mu.Unlock()
}

// Len returns the number of recorded errors.
func (r *ErrorReporter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errors)
}

// Errors returns a copy of all errors ordered by row number. Errors of the
// same row keep the order they were added in.
func (r *ErrorReporter) Errors() []ValidationError {
	r.mu.Lock()
	out := make([]ValidationError, len(r.errors))
	copy(out, r.errors)
	r.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Row < out[j].Row })
	return out
}

// Stats derives row counts for a run of totalRows rows.
// ValidRows is always TotalRows - ErrorRows.
func (r *ErrorReporter) Stats(totalRows int) ReportStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make(map[int]struct{})
	byType := make(map[ErrorType]int, len(ErrorTypes))
	for _, t := range ErrorTypes {
		byType[t] = 0
	}
	for _, e := range r.errors {
		rows[e.Row] = struct{}{}
		byType[e.Type]++
	}

	return ReportStats{
		TotalRows: totalRows,
		ValidRows: totalRows - len(rows),
		ErrorRows: len(rows),
		ByType:    byType,
	}
}

// records renders the report lines, header first.
func (r *ErrorReporter) records() [][]string {
	errs := r.Errors()
	out := make([][]string, 0, len(errs)+1)
	out = append(out, reportHeader)
	for _, e := range errs {
		column := e.Column
		if column == "" {
			column = WholeRowLabel
		}
		out = append(out, []string{strconv.Itoa(e.Row), column, string(e.Type), e.Message})
	}
	return out
}

// ExportCSV writes the report as semicolon-separated UTF-8 with a BOM, one
// line per error.
func (r *ErrorReporter) ExportCSV(w io.Writer) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.WriteAll(r.records()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ExportXLSX writes the report as a single-sheet workbook.
func (r *ErrorReporter) ExportXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Errors"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C00000"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	for i, rec := range r.records() {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		values := make([]any, len(rec))
		for j, v := range rec {
			values[j] = v
		}
		if i > 0 {
			values[0], _ = strconv.Atoi(rec[0])
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	_ = f.SetCellStyle(sheet, "A1", "D1", headerStyle)
	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 30)
	_ = f.SetColWidth(sheet, "C", "C", 14)
	_ = f.SetColWidth(sheet, "D", "D", 80)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
