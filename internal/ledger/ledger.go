// Package ledger reconciles freshly extracted charge rows into the
// persistent master dataset: one row per authorization number, most recent
// extraction wins, sorted by charge date newest-first.
package ledger

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/models"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"
)

// Engine merges extraction results into the master file and emits the
// per-run snapshot artifact.
type Engine struct {
	// KeyColumn is the header name of the authorization-number column, the
	// business key rows are de-duplicated by.
	KeyColumn string
	Delimiter rune
	log       logging.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(keyColumn string, delimiter rune, log logging.Logger) *Engine {
	return &Engine{KeyColumn: keyColumn, Delimiter: delimiter, log: log}
}

// entry pairs a row with its parsed sort date.
type entry struct {
	key  string
	row  []string
	date time.Time
}

// Merge combines the extracted table with the master file at masterPath
// (missing file means first run) and returns the merged, date-descending
// table under the extracted header. The key column is resolved by name in
// both headers; a master file without it fails rather than merging rows
// under a misaligned positional index.
func (e *Engine) Merge(table models.Table, masterPath string) (models.Table, error) {
	if err := table.Validate(); err != nil {
		return models.Table{}, fmt.Errorf("extracted table is malformed: %w", err)
	}

	keyIdx, ok := table.ColumnIndex(e.KeyColumn)
	if !ok {
		return models.Table{}, &scrapeerror.MissingKeyError{Column: e.KeyColumn, Source: "extracted header"}
	}

	combined := make(map[string][]string)
	var order []string // first-insertion order, for a deterministic sort input

	if _, err := os.Stat(masterPath); err == nil {
		master, err := ReadCSVFile(masterPath, e.Delimiter, e.log)
		if err != nil {
			return models.Table{}, fmt.Errorf("error loading master file: %w", err)
		}
		masterKeyIdx, ok := master.ColumnIndex(e.KeyColumn)
		if !ok {
			return models.Table{}, &scrapeerror.MissingKeyError{Column: e.KeyColumn, Source: masterPath}
		}
		for _, row := range master.Rows {
			if len(row) <= masterKeyIdx {
				continue
			}
			key := row[masterKeyIdx]
			if _, seen := combined[key]; !seen {
				order = append(order, key)
			}
			combined[key] = row
		}
	}

	for _, row := range table.Rows {
		key := row[keyIdx]
		if _, seen := combined[key]; !seen {
			order = append(order, key)
		}
		combined[key] = row
	}

	entries := make([]entry, 0, len(order))
	for _, key := range order {
		row := combined[key]
		if len(row) == 0 {
			continue
		}
		date, err := models.ParseRowDate(row[0])
		if err != nil {
			return models.Table{}, &scrapeerror.DateParseError{Value: row[0], Key: key, Err: err}
		}
		entries = append(entries, entry{key: key, row: row, date: date})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].date.After(entries[j].date)
	})

	merged := models.Table{Header: table.Header, Rows: make([][]string, len(entries))}
	for i, en := range entries {
		merged.Rows[i] = en.row
	}

	e.log.Info("merged extraction into master dataset",
		logging.F(logging.FieldKey, e.KeyColumn),
		logging.F("new_rows", len(table.Rows)),
		logging.F("total_rows", len(merged.Rows)))
	return merged, nil
}

// Reconcile runs the full step: merge with the master, write the immutable
// per-run snapshot (exactly the extracted rows), then rewrite the master
// with the merged dataset. The merge happens before any write, so a
// reconciliation failure leaves both artifacts untouched.
func (e *Engine) Reconcile(table models.Table, masterPath, snapshotPath string) (models.Table, error) {
	merged, err := e.Merge(table, masterPath)
	if err != nil {
		return models.Table{}, err
	}

	if err := WriteCSVFile(snapshotPath, table, e.Delimiter, e.log); err != nil {
		return models.Table{}, fmt.Errorf("error writing run snapshot: %w", err)
	}
	if err := WriteCSVFile(masterPath, merged, e.Delimiter, e.log); err != nil {
		return models.Table{}, fmt.Errorf("error writing master file: %w", err)
	}

	return merged, nil
}

// SnapshotFileName returns the timestamped name of one run's snapshot.
func SnapshotFileName(now time.Time) string {
	return fmt.Sprintf("charges_report_%s.csv", now.Format("2006-01-02_15-04-05"))
}
