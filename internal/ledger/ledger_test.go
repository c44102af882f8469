package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/models"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keyColumn = "מספר הרשאה"

func testHeader() []string {
	return []string{"תאריך", "סכום", "פרטי בית העסק", keyColumn}
}

func newTestEngine() *Engine {
	return NewEngine(keyColumn, ',', logging.NewMockLogger())
}

func row(date, amount, details, auth string) []string {
	return []string{date, amount, details, auth}
}

func TestReconcileFirstRun(t *testing.T) {
	dir := t.TempDir()
	masterPath := filepath.Join(dir, "all_charges_report.csv")
	snapshotPath := filepath.Join(dir, SnapshotFileName(time.Now()))

	table := models.Table{
		Header: testHeader(),
		Rows: [][]string{
			row("01/01/2024", "100.00", "חוזה 123456789", "A100"),
			row("03/01/2024", "50.00", "חוזה 987654321", "B200"),
		},
	}

	merged, err := newTestEngine().Reconcile(table, masterPath, snapshotPath)
	require.NoError(t, err)
	require.Len(t, merged.Rows, 2)

	// Newest first.
	assert.Equal(t, "B200", merged.Rows[0][3])
	assert.Equal(t, "A100", merged.Rows[1][3])

	assert.FileExists(t, masterPath)
	assert.FileExists(t, snapshotPath)
}

func TestReconcileIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	masterPath := filepath.Join(dir, "master.csv")
	engine := newTestEngine()

	table := models.Table{
		Header: testHeader(),
		Rows: [][]string{
			row("01/01/2024", "100.00", "חוזה 123456789", "A100"),
			row("03/01/2024", "50.00", "חוזה 987654321", "B200"),
		},
	}

	first, err := engine.Reconcile(table, masterPath, filepath.Join(dir, "snap1.csv"))
	require.NoError(t, err)
	second, err := engine.Reconcile(table, masterPath, filepath.Join(dir, "snap2.csv"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestReconcileLastWriteWins(t *testing.T) {
	// Master holds A100 dated 01/01/2024; new run yields A100 at 05/02/2024
	// and B200 at 03/02/2024. Expected: A100@05/02 first, B200@03/02 second.
	dir := t.TempDir()
	masterPath := filepath.Join(dir, "master.csv")
	engine := newTestEngine()

	firstRun := models.Table{
		Header: testHeader(),
		Rows:   [][]string{row("01/01/2024", "100.00", "חוזה 123456789", "A100")},
	}
	_, err := engine.Reconcile(firstRun, masterPath, filepath.Join(dir, "snap1.csv"))
	require.NoError(t, err)

	secondRun := models.Table{
		Header: testHeader(),
		Rows: [][]string{
			row("05/02/2024", "120.00", "חוזה 123456789", "A100"),
			row("03/02/2024", "80.00", "חוזה 987654321", "B200"),
		},
	}
	merged, err := engine.Reconcile(secondRun, masterPath, filepath.Join(dir, "snap2.csv"))
	require.NoError(t, err)

	require.Len(t, merged.Rows, 2)
	assert.Equal(t, "A100", merged.Rows[0][3])
	assert.Equal(t, "05/02/2024", merged.Rows[0][0])
	assert.Equal(t, "120.00", merged.Rows[0][1])
	assert.Equal(t, "B200", merged.Rows[1][3])
}

func TestMergedDatasetSortedDescending(t *testing.T) {
	engine := newTestEngine()
	table := models.Table{
		Header: testHeader(),
		Rows: [][]string{
			row("15/03/2024", "1.00", "x", "K1"),
			row("01/01/2023", "2.00", "x", "K2"),
			row("28/02/2024", "3.00", "x", "K3"),
			row("31/12/2023", "4.00", "x", "K4"),
		},
	}

	merged, err := engine.Merge(table, filepath.Join(t.TempDir(), "absent.csv"))
	require.NoError(t, err)

	for i := 0; i < len(merged.Rows)-1; i++ {
		a, err := models.ParseRowDate(merged.Rows[i][0])
		require.NoError(t, err)
		b, err := models.ParseRowDate(merged.Rows[i+1][0])
		require.NoError(t, err)
		assert.False(t, a.Before(b), "rows %d and %d out of order", i, i+1)
	}
}

func TestReconcileMissingKeyColumnLeavesMasterUntouched(t *testing.T) {
	dir := t.TempDir()
	masterPath := filepath.Join(dir, "master.csv")
	engine := newTestEngine()

	seeded := models.Table{
		Header: testHeader(),
		Rows:   [][]string{row("01/01/2024", "100.00", "x", "A100")},
	}
	_, err := engine.Reconcile(seeded, masterPath, filepath.Join(dir, "snap1.csv"))
	require.NoError(t, err)
	before, err := os.ReadFile(masterPath)
	require.NoError(t, err)

	noKey := models.Table{
		Header: []string{"תאריך", "סכום"},
		Rows:   [][]string{{"02/01/2024", "10.00"}},
	}
	_, err = engine.Reconcile(noKey, masterPath, filepath.Join(dir, "snap2.csv"))
	require.Error(t, err)

	var missingKey *scrapeerror.MissingKeyError
	require.ErrorAs(t, err, &missingKey)
	assert.Equal(t, "extracted header", missingKey.Source)

	after, err := os.ReadFile(masterPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed reconciliation must not touch the master file")
}

func TestMergeMasterWithoutKeyColumnFails(t *testing.T) {
	dir := t.TempDir()
	masterPath := filepath.Join(dir, "master.csv")
	log := logging.NewMockLogger()

	// A master written under an older schema that lacks the key column.
	old := models.Table{
		Header: []string{"תאריך", "סכום"},
		Rows:   [][]string{{"01/01/2024", "100.00"}},
	}
	require.NoError(t, WriteCSVFile(masterPath, old, ',', log))

	table := models.Table{
		Header: testHeader(),
		Rows:   [][]string{row("02/01/2024", "10.00", "x", "A100")},
	}
	_, err := newTestEngine().Merge(table, masterPath)
	require.Error(t, err)

	var missingKey *scrapeerror.MissingKeyError
	require.ErrorAs(t, err, &missingKey)
	assert.Equal(t, masterPath, missingKey.Source)
}

func TestMergeBadDateIsFatal(t *testing.T) {
	table := models.Table{
		Header: testHeader(),
		Rows: [][]string{
			row("01/01/2024", "1.00", "x", "A100"),
			row("not-a-date", "2.00", "x", "B200"),
		},
	}

	_, err := newTestEngine().Merge(table, filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)

	var dateErr *scrapeerror.DateParseError
	require.ErrorAs(t, err, &dateErr)
	assert.Equal(t, "B200", dateErr.Key)
	assert.Equal(t, "not-a-date", dateErr.Value)
}

func TestMergeRowWiderThanHeaderFails(t *testing.T) {
	table := models.Table{
		Header: testHeader(),
		Rows:   [][]string{append(row("01/01/2024", "1.00", "x", "A100"), "extra")},
	}
	_, err := newTestEngine().Merge(table, filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestSnapshotContainsExactlyRunRows(t *testing.T) {
	dir := t.TempDir()
	masterPath := filepath.Join(dir, "master.csv")
	engine := newTestEngine()
	log := logging.NewMockLogger()

	firstRun := models.Table{
		Header: testHeader(),
		Rows:   [][]string{row("01/01/2024", "100.00", "x", "A100")},
	}
	_, err := engine.Reconcile(firstRun, masterPath, filepath.Join(dir, "snap1.csv"))
	require.NoError(t, err)

	secondRun := models.Table{
		Header: testHeader(),
		Rows:   [][]string{row("05/02/2024", "50.00", "x", "B200")},
	}
	snapshotPath := filepath.Join(dir, "snap2.csv")
	_, err = engine.Reconcile(secondRun, masterPath, snapshotPath)
	require.NoError(t, err)

	snapshot, err := ReadCSVFile(snapshotPath, ',', log)
	require.NoError(t, err)
	require.Len(t, snapshot.Rows, 1, "snapshot must hold only this run's rows")
	assert.Equal(t, "B200", snapshot.Rows[0][3])

	master, err := ReadCSVFile(masterPath, ',', log)
	require.NoError(t, err)
	assert.Len(t, master.Rows, 2)
}

func TestWriteCSVFileBOMRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	log := logging.NewMockLogger()

	table := models.Table{Header: []string{"תאריך", "מוסד"}, Rows: [][]string{{"01/01/2024", "בית ספר"}}}
	require.NoError(t, WriteCSVFile(path, table, ',', log))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, raw[:3], "artifact should start with a UTF-8 BOM")

	back, err := ReadCSVFile(path, ',', log)
	require.NoError(t, err)
	assert.Equal(t, table.Header, back.Header)
	assert.Equal(t, table.Rows, back.Rows)
}

func TestSnapshotFileName(t *testing.T) {
	now := time.Date(2024, 2, 5, 13, 45, 9, 0, time.UTC)
	assert.Equal(t, "charges_report_2024-02-05_13-45-09.csv", SnapshotFileName(now))
}
