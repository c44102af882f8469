// Package models defines the core data types shared by the extraction and
// reconciliation layers.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the date format used in the first column of every charge row.
const DateLayout = "02/01/2006" // DD/MM/YYYY

// Table holds one extraction's column names and row values.
// Every row must have exactly as many fields as the header.
type Table struct {
	Header []string
	Rows   [][]string
}

// Validate checks the field-count invariant for all rows.
func (t Table) Validate() error {
	for i, row := range t.Rows {
		if len(row) != len(t.Header) {
			return fmt.Errorf("row %d has %d fields, header has %d", i, len(row), len(t.Header))
		}
	}
	return nil
}

// ColumnIndex returns the position of the named column in the header.
// Names are compared after trimming, since the site renders headers with
// stray whitespace.
func (t Table) ColumnIndex(name string) (int, bool) {
	return ColumnIndex(t.Header, name)
}

// ColumnIndex locates a column by trimmed name in an arbitrary header.
func ColumnIndex(header []string, name string) (int, bool) {
	want := strings.TrimSpace(name)
	for i, col := range header {
		if strings.TrimSpace(col) == want {
			return i, true
		}
	}
	return 0, false
}

// ParseRowDate parses a row's leading date field (DD/MM/YYYY).
func ParseRowDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(value))
}
