// Package institutions refreshes the local institution-map cache from the
// Google Sheets collaborator.
package institutions

import (
	"context"
	"path/filepath"
	"time"

	"github.com/arieldaniely/AutoPagi/cmd/root"
	"github.com/arieldaniely/AutoPagi/internal/institution"
	"github.com/arieldaniely/AutoPagi/internal/logging"

	"github.com/spf13/cobra"
)

// Cmd represents the institutions command
var Cmd = &cobra.Command{
	Use:   "institutions",
	Short: "Refresh the local institution-map cache from Google Sheets",
	Run:   institutionsFunc,
}

func institutionsFunc(cmd *cobra.Command, args []string) {
	cfg := root.Cfg
	log := logging.NewLogrusAdapterFromLogger(root.Log)

	provider := institution.NewSheetsProvider(cfg.Institution.SpreadsheetID,
		cfg.Institution.ReadRange, cfg.Institution.CredentialsFile,
		cfg.Institution.APIKey, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mapping, err := provider.Fetch(ctx)
	if err != nil {
		root.Log.Fatalf("Error fetching institution map: %v", err)
	}

	cacheFile := filepath.Join(cfg.Output.Directory, cfg.Institution.CacheFile)
	if err := institution.SaveCache(cacheFile, mapping, log); err != nil {
		root.Log.Fatalf("Error saving institution cache: %v", err)
	}

	log.Info("institution cache refreshed",
		logging.F(logging.FieldFile, cacheFile),
		logging.F(logging.FieldCount, len(mapping)))
}
