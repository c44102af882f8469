// Package reconcile merges an existing snapshot CSV into the master
// dataset without opening a browser, for replaying a run whose
// reconciliation step failed.
package reconcile

import (
	"github.com/arieldaniely/AutoPagi/cmd/root"
	"github.com/arieldaniely/AutoPagi/internal/ledger"
	"github.com/arieldaniely/AutoPagi/internal/logging"

	"github.com/spf13/cobra"
)

// Cmd represents the reconcile command
var Cmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge a snapshot CSV into the master dataset offline",
	Long: `Reconcile reads a previously captured snapshot CSV and merges its rows
into the master dataset keyed by authorization number, without contacting
the site. No new snapshot is written.`,
	Run: reconcileFunc,
}

var snapshotFile string

func init() {
	Cmd.Flags().StringVarP(&snapshotFile, "snapshot", "s", "", "Snapshot CSV file to merge")
	_ = Cmd.MarkFlagRequired("snapshot")
}

func reconcileFunc(cmd *cobra.Command, args []string) {
	cfg := root.Cfg
	log := logging.NewLogrusAdapterFromLogger(root.Log)
	delimiter := []rune(cfg.Output.Delimiter)[0]

	table, err := ledger.ReadCSVFile(snapshotFile, delimiter, log)
	if err != nil {
		root.Log.Fatalf("Error reading snapshot: %v", err)
	}

	engine := ledger.NewEngine(cfg.Reconcile.KeyColumn, delimiter, log)
	masterPath := root.MasterPath()

	merged, err := engine.Merge(table, masterPath)
	if err != nil {
		root.Log.Fatalf("Error merging snapshot: %v", err)
	}
	if err := ledger.WriteCSVFile(masterPath, merged, delimiter, log); err != nil {
		root.Log.Fatalf("Error writing master file: %v", err)
	}

	log.Info("snapshot reconciled",
		logging.F(logging.FieldFile, masterPath),
		logging.F("snapshot_rows", len(table.Rows)),
		logging.F("master_rows", len(merged.Rows)))
}
