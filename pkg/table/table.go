// Package table loads delimited text tables and spreadsheets and renders them
// for previews and assistant prompts.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned for files that are not CSV, TSV or
	// XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrEmptyTable is returned when a file has no header row.
	ErrEmptyTable = errors.New("table has no header row")
)

const xlsxExt = ".xlsx"

var delimiters = map[string]rune{
	".csv": ',',
	".tsv": '\t',
}

// SupportedExtensions lists the accepted file extensions.
func SupportedExtensions() []string {
	return []string{".csv", ".tsv", xlsxExt}
}

// IsSupported reports whether filename has an accepted extension.
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == xlsxExt {
		return true
	}
	_, ok := delimiters[ext]
	return ok
}

// Table is a header row plus data rows. Every row has len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Load reads the table at path, choosing the format by extension.
func Load(path string) (*Table, error) {
	if !IsSupported(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening table: %w", err)
	}
	return ParseBytes(path, data)
}

// ParseBytes parses data as a table in the format implied by filename.
func ParseBytes(filename string, data []byte) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == xlsxExt {
		return ParseXLSX(bytes.NewReader(data))
	}

	comma, ok := delimiters[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	return Parse(bytes.NewReader(data), comma)
}

// Parse reads a delimited table from r. Short rows are padded with empty
// cells and long rows are truncated to the header width. Invalid UTF-8 is
// replaced so the table can always be rendered.
func Parse(r io.Reader, comma rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyTable
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	t := newTable(header)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", len(t.Rows)+1, err)
		}
		t.addRow(rec)
	}

	return t, nil
}

// ParseXLSX reads the first worksheet of a workbook. The first row is the
// header and cells are read as their formatted display values, with the
// same padding rules as Parse.
func ParseXLSX(r io.Reader) (*Table, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyTable
	}

	rows, err := wb.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	defer rows.Close()

	var t *Table
	for rows.Next() {
		rec, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
		}
		if t == nil {
			if blank(rec) {
				continue
			}
			t = newTable(rec)
			continue
		}
		t.addRow(rec)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheets[0], err)
	}
	if t == nil {
		return nil, ErrEmptyTable
	}

	return t, nil
}

func newTable(header []string) *Table {
	t := &Table{Columns: make([]string, len(header))}
	for i, h := range header {
		h = clean(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}
		t.Columns[i] = h
	}
	return t
}

// addRow appends rec fitted to the header width. Blank records are skipped.
func (t *Table) addRow(rec []string) {
	if blank(rec) {
		return
	}

	row := make([]string, len(t.Columns))
	for i := range row {
		if i < len(rec) {
			row[i] = clean(rec[i])
		}
	}
	t.Rows = append(t.Rows, row)
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func clean(s string) string {
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	return strings.TrimSpace(s)
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// Preview returns up to n rows keyed by column name.
func (t *Table) Preview(n int) []map[string]string {
	n = min(n, len(t.Rows))
	out := make([]map[string]string, 0, n)
	for _, row := range t.Rows[:n] {
		rec := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			rec[col] = row[i]
		}
		out = append(out, rec)
	}
	return out
}

// HumanSize formats a byte count the way file listings show it ("1.5KB").
func HumanSize(n int64) string {
	if n <= 0 {
		return "0B"
	}

	units := []string{"B", "KB", "MB", "GB"}
	size := float64(n)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.1f%s", size, units[i])
}
