// Package fetch drives a full scrape-and-reconcile run.
package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arieldaniely/AutoPagi/cmd/root"
	"github.com/arieldaniely/AutoPagi/internal/browser"
	"github.com/arieldaniely/AutoPagi/internal/config"
	"github.com/arieldaniely/AutoPagi/internal/extract"
	"github.com/arieldaniely/AutoPagi/internal/institution"
	"github.com/arieldaniely/AutoPagi/internal/ledger"
	"github.com/arieldaniely/AutoPagi/internal/logging"
	"github.com/arieldaniely/AutoPagi/internal/pagi"
	"github.com/arieldaniely/AutoPagi/internal/scrapeerror"
	"github.com/arieldaniely/AutoPagi/internal/sitemap"

	"github.com/spf13/cobra"
)

// Cmd represents the fetch command
var Cmd = &cobra.Command{
	Use:   "fetch",
	Short: "Log in to Pagi, capture the previous-month charge report and reconcile it",
	Long: `Fetch opens a browser session against the Pagi portal, logs in, opens the
previous-month charges tab, captures the charge-details payload off the wire
and merges the rows into the master dataset keyed by authorization number.`,
	Run: fetchFunc,
}

var (
	username        string
	password        string
	entryURL        string
	headless        bool
	profileFile     string
	skipInstitution bool
)

func init() {
	Cmd.Flags().StringVarP(&username, "username", "u", "", "Pagi account username")
	Cmd.Flags().StringVarP(&password, "password", "p", "", "Pagi account password")
	Cmd.Flags().StringVar(&entryURL, "url", "", "Entry URL (overrides config)")
	Cmd.Flags().BoolVar(&headless, "headless", true, "Run the browser headless")
	Cmd.Flags().StringVar(&profileFile, "selectors", "", "Selector profile YAML file")
	Cmd.Flags().BoolVar(&skipInstitution, "skip-institution-mapping", false, "Skip the institution name lookup")
	_ = Cmd.MarkFlagRequired("username")
	_ = Cmd.MarkFlagRequired("password")
}

func fetchFunc(cmd *cobra.Command, args []string) {
	if err := runFetch(); err != nil {
		root.Log.Fatalf("Fetch failed: %v", err)
	}
	root.Log.Info("Fetch completed successfully!")
}

// runFetch returns instead of exiting so the deferred browser release
// always runs.
func runFetch() error {
	cfg := root.Cfg
	log := logging.NewLogrusAdapterFromLogger(root.Log)

	if entryURL != "" {
		cfg.Pagi.EntryURL = entryURL
	}

	if err := os.MkdirAll(cfg.Output.Directory, 0750); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	closeRunLog := teeRunLog(cfg.Output.Directory, log)
	defer closeRunLog()

	logRunParameters(cfg, log)

	// The mapping is fetched before the browser starts: if the
	// collaborator is down and no cache exists, the run aborts with the
	// master file untouched.
	mapping := map[string]string{}
	if skipInstitution {
		log.Info("institution mapping skipped by flag")
	} else {
		m, err := fetchInstitutionMap(cfg, log)
		if err != nil {
			return fmt.Errorf("institution mapping unavailable: %w", err)
		}
		// An empty map means the collaborator is unavailable, never that
		// there are no institutions; the run halts unless opted out.
		if len(m) == 0 {
			return &scrapeerror.CollaboratorError{
				Collaborator: "institution map",
				Err:          fmt.Errorf("mapping is empty"),
			}
		}
		mapping = m
	}

	profile, err := sitemap.NewStore(profileFile, log).Load()
	if err != nil {
		return err
	}

	session, err := browser.Start(browser.Options{
		Headless:         headless,
		DefaultTimeoutMs: cfg.Timeouts.ElementMs,
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.WithError(err).Warn("browser session close reported errors")
		}
	}()

	flow := pagi.NewFlow(session, profile, flowConfig(cfg), log)
	frame, err := flow.Run(username, password)
	if err != nil {
		return err
	}

	extractor := extract.New(cfg.Pagi.ResponseMarker, cfg.Pagi.ResponseQuery,
		cfg.Pagi.DetailsTableID, cfg.Timeouts.ResponseMs, log)

	// The listener is armed before the click runs, so the response
	// triggered by the click is never missed.
	table, err := extractor.CaptureTable(session.Page(), func() error {
		return session.ClickRowByText(frame, browser.RowClick{
			TableSelector:   cfg.Pagi.TableSelector,
			RowText:         cfg.Pagi.RowText,
			TargetSelector:  cfg.Pagi.ClickTarget,
			FallbackAnchors: profile.FallbackAnchors,
			TimeoutMs:       cfg.Timeouts.ElementMs,
			ClickTimeoutMs:  cfg.Timeouts.ClickMs,
			SettleMs:        cfg.Timeouts.SettleMs,
		})
	})
	if err != nil {
		return err
	}

	extract.AppendInstitutionColumn(&table, mapping, cfg.Institution.ColumnName,
		cfg.Institution.NotFoundLabel, log)

	engine := ledger.NewEngine(cfg.Reconcile.KeyColumn, []rune(cfg.Output.Delimiter)[0], log)
	masterPath := root.MasterPath()
	snapshotPath := filepath.Join(cfg.Output.Directory, ledger.SnapshotFileName(time.Now()))

	merged, err := engine.Reconcile(table, masterPath, snapshotPath)
	if err != nil {
		return err
	}

	summary := ledger.Summarize(table, cfg.Reconcile.AmountColumn)
	log.Info("run summary",
		logging.F(logging.FieldRows, summary.Rows),
		logging.F("parsed_amounts", summary.Parsed),
		logging.F("total_amount", summary.Total.String()),
		logging.F("master_rows", len(merged.Rows)),
		logging.F(logging.FieldFile, masterPath))
	return nil
}

func flowConfig(cfg *config.Config) pagi.Config {
	return pagi.Config{
		EntryURL:          cfg.Pagi.EntryURL,
		SummaryURLPattern: cfg.Pagi.SummaryURLPattern,
		TransactionsURL:   cfg.Pagi.TransactionsURL,
		FrameSelector:     cfg.Pagi.FrameSelector,
		TabBarSelector:    cfg.Pagi.TabBarSelector,
		TableSelector:     cfg.Pagi.TableSelector,
		PreviousMonthTab:  cfg.Pagi.PreviousMonthTab,

		NavigationTimeoutMs: cfg.Timeouts.NavigationMs,
		ElementTimeoutMs:    cfg.Timeouts.ElementMs,
		TriggerTimeoutMs:    3000,
		FormTimeoutMs:       5000,
		ClickTimeoutMs:      cfg.Timeouts.ClickMs,
		EntrySettleMs:       cfg.Timeouts.EntrySettleMs,
		PageSettleMs:        cfg.Timeouts.PageSettleMs,

		LoginAttempts: cfg.Login.Attempts,
		LoginPauseMs:  cfg.Login.PauseMs,
	}
}

func fetchInstitutionMap(cfg *config.Config, log logging.Logger) (map[string]string, error) {
	primary := institution.NewSheetsProvider(cfg.Institution.SpreadsheetID,
		cfg.Institution.ReadRange, cfg.Institution.CredentialsFile,
		cfg.Institution.APIKey, log)
	cacheFile := filepath.Join(cfg.Output.Directory, cfg.Institution.CacheFile)
	provider := institution.NewCachedProvider(primary, cacheFile, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return provider.Fetch(ctx)
}

// teeRunLog mirrors log output into a per-run log file under the output
// directory. The returned func closes the file; logging falls back to
// stderr only if the file cannot be opened.
func teeRunLog(dir string, log logging.Logger) func() {
	path := filepath.Join(dir, "run.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		log.WithError(err).Warn("could not open run log file")
		return func() {}
	}
	root.Log.SetOutput(io.MultiWriter(os.Stderr, file))
	return func() {
		root.Log.SetOutput(os.Stderr)
		_ = file.Close()
	}
}

// logRunParameters records the effective run configuration. The password
// never appears; the username is masked to its first two characters.
func logRunParameters(cfg *config.Config, log logging.Logger) {
	log.Info("run parameters",
		logging.F("user", maskIdentifier(username)),
		logging.F(logging.FieldURL, cfg.Pagi.EntryURL),
		logging.F("headless", headless),
		logging.F("output_dir", cfg.Output.Directory),
		logging.F("master_file", cfg.Output.MasterFile),
		logging.F(logging.FieldKey, cfg.Reconcile.KeyColumn))
}

func maskIdentifier(s string) string {
	runes := []rune(s)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes))
	}
	return string(runes[:2]) + strings.Repeat("*", len(runes)-2)
}
