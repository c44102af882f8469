// Package root contains the root command for the application
package root

import (
	"path/filepath"

	"github.com/arieldaniely/AutoPagi/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// Cfg is the resolved configuration, available to subcommands after
	// PersistentPreRun.
	Cfg *config.Config

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "autopagi",
		Short: "Fetch Pagi charge reports and reconcile them into a master ledger.",
		Long: `autopagi drives a browser session against the Pagi banking portal,
captures the monthly charge-details report off the wire, enriches it with
institution names and reconciles it into a persistent master CSV.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to autopagi!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv()

			cfg, err := config.InitializeConfig()
			if err != nil {
				Log.Fatalf("Failed to load configuration: %v", err)
			}

			if OutputDir != "" {
				cfg.Output.Directory = OutputDir
			}
			if MasterFile != "" {
				cfg.Output.MasterFile = MasterFile
			}

			Cfg = cfg
			Log = config.ConfigureLogging(cfg)
		},
	}

	// Flags shared across subcommands.
	OutputDir  string
	MasterFile string
)

// Init initializes the root command and all flags
func Init() {
	Cmd.PersistentFlags().StringVarP(&OutputDir, "output-dir", "o", "", "Directory for run artifacts (overrides config)")
	Cmd.PersistentFlags().StringVar(&MasterFile, "master-file", "", "Master dataset file name (overrides config)")
}

// MasterPath resolves the master dataset location from the active config.
func MasterPath() string {
	return filepath.Join(Cfg.Output.Directory, Cfg.Output.MasterFile)
}
