// Package rowsource reads the desired-state table (CSV or XLSX) into
// string-keyed rows.
package rowsource

import (
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
)

const (
	ColumnEmail        = "NTID email"
	ColumnManagerEmail = "Manager NTID email"
	ColumnWeeklyHours  = "Weekly Working Hours"
	ColumnCountryLabel = "Country (Label)"
)

var RequiredColumns = []string{ColumnEmail, ColumnManagerEmail, ColumnWeeklyHours}

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrEmptyInput    = errors.New("input has no header row")
)

// Row maps trimmed header names to raw cell values. Every header column is
// present; short records read as empty strings.
type Row map[string]string

func (r Row) Get(col string) (string, bool) {
	v, ok := r[col]
	return v, ok
}

// Table is the parsed input in file order.
type Table struct {
	Header []string
	Rows   []Row
}

func (t *Table) HasColumn(col string) bool {
	for _, h := range t.Header {
		if h == col {
			return true
		}
	}
	return false
}

// RequireColumns reports the first missing column.
func (t *Table) RequireColumns(cols ...string) error {
	for _, c := range cols {
		if !t.HasColumn(c) {
			return errors.Wrapf(ErrMissingColumn, "%q", c)
		}
	}
	return nil
}

// Load picks the reader by file extension.
func Load(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	default:
		return ReadCSVFile(path)
	}
}

func buildTable(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	t := &Table{Header: header, Rows: make([]Row, 0, len(records)-1)}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, h := range header {
			if h == "" {
				continue
			}
			// Spreadsheet readers drop trailing blank cells.
			if i >= len(rec) {
				row[h] = ""
				continue
			}
			row[h] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
