package ledger

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/models"
)

// utf8BOM is prepended to written artifacts so Hebrew headers open
// correctly in Excel; it is stripped on read.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadCSVFile reads an artifact back into a Table. Row widths are allowed
// to vary: a master file written under an older site schema may be narrower
// than the current header.
func ReadCSVFile(path string, delimiter rune, log logging.Logger) (models.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Table{}, fmt.Errorf("error reading CSV file: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return models.Table{}, fmt.Errorf("error parsing CSV file: %w", err)
	}
	if len(records) == 0 {
		return models.Table{}, fmt.Errorf("CSV file %s is empty", path)
	}

	table := models.Table{Header: records[0], Rows: records[1:]}
	log.Info("read CSV artifact",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldRows, len(table.Rows)))
	return table, nil
}

// WriteCSVFile writes a Table to path via a temp file and rename, so a
// failure mid-write never leaves a truncated artifact behind.
func WriteCSVFile(path string, table models.Table, delimiter rune, log logging.Logger) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("error creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-ops once the rename has succeeded.
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(utf8BOM); err != nil {
		return fmt.Errorf("error writing BOM: %w", err)
	}

	writer := csv.NewWriter(tmp)
	writer.Comma = delimiter
	if err := writer.Write(table.Header); err != nil {
		return fmt.Errorf("error writing CSV header: %w", err)
	}
	if err := writer.WriteAll(table.Rows); err != nil {
		return fmt.Errorf("error writing CSV rows: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("error flushing CSV writer: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("error closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("error replacing %s: %w", path, err)
	}

	log.Info("wrote CSV artifact",
		logging.F(logging.FieldFile, path),
		logging.F(logging.FieldRows, len(table.Rows)))
	return nil
}
