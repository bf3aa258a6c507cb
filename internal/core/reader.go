package core

// reader.go loads an uploaded sheet into a Table.
//
// CSV files exported from Polish Excel installs are usually semicolon
// separated and either UTF-8 with a BOM or Windows-1250. Both are accepted:
// the delimiter is sniffed from the first non-empty line, and input that is
// not valid UTF-8 is decoded as Windows-1250.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SourceRow is one data row with its 1-based line number in the sheet.
type SourceRow struct {
	Number int
	Cells  []string
}

// Table is a parsed sheet: the header and every non-empty data row.
type Table struct {
	Header HeaderRow
	Rows   []SourceRow
	Sheet  string
}

// ReadTable parses a CSV or XLSX file. The format is chosen by the file
// extension. For XLSX files the sheet named preferSheet is used when present,
// otherwise the first sheet.
func ReadTable(r io.Reader, filename, preferSheet string) (Table, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		data, err := io.ReadAll(r)
		if err != nil {
			return Table{}, fmt.Errorf("read %s: %w", filename, err)
		}
		return ParseCSV(data)
	case ".xlsx", ".xlsm":
		return ParseXLSX(r, preferSheet)
	}
	return Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
}

// ParseCSV parses CSV bytes.
func ParseCSV(data []byte) (Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1250.NewDecoder().Bytes(data)
		if err != nil {
			return Table{}, fmt.Errorf("decode windows-1250: %w", err)
		}
		data = decoded
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = sniffDelimiter(data)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var records [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("parse CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}

	return buildTable(records, lines, "")
}

// ParseXLSX parses the first (or preferred) sheet of a workbook.
func ParseXLSX(r io.Reader, preferSheet string) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("%w: workbook has no sheets", ErrEmptyFile)
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if preferSheet != "" && strings.EqualFold(name, preferSheet) {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	lines := make([]int, len(rows))
	for i := range rows {
		lines[i] = i + 1
	}
	return buildTable(rows, lines, sheet)
}

// buildTable takes the first non-empty record as the header and keeps every
// later non-empty record as a data row.
func buildTable(records [][]string, lines []int, sheet string) (Table, error) {
	t := Table{Sheet: sheet}
	for i, rec := range records {
		if isEmptyRecord(rec) {
			continue
		}
		if t.Header == nil {
			t.Header = trimCells(rec)
			continue
		}
		t.Rows = append(t.Rows, SourceRow{Number: lines[i], Cells: rec})
	}

	if t.Header == nil {
		return Table{}, fmt.Errorf("%w: no header row", ErrEmptyFile)
	}
	if len(t.Rows) == 0 {
		return Table{}, fmt.Errorf("%w: no data rows after header", ErrEmptyFile)
	}
	return t, nil
}

// sniffDelimiter picks ';', ',' or tab by counting them on the first
// non-empty line. Semicolon wins ties.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		best, bestCount := ';', strings.Count(line, ";")
		for _, d := range []rune{',', '\t'} {
			if n := strings.Count(line, string(d)); n > bestCount {
				best, bestCount = d, n
			}
		}
		return best
	}
	return ';'
}

func trimCells(rec []string) HeaderRow {
	out := make(HeaderRow, len(rec))
	for i, c := range rec {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isEmptyRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
