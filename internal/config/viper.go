// Package config provides Viper-based hierarchical configuration for the
// scraper: defaults, then an optional config.yaml, then AUTOPAGI_* env vars.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`

	Pagi struct {
		EntryURL          string `mapstructure:"entry_url" yaml:"entry_url"`
		SummaryURLPattern string `mapstructure:"summary_url_pattern" yaml:"summary_url_pattern"`
		TransactionsURL   string `mapstructure:"transactions_url" yaml:"transactions_url"`
		FrameSelector     string `mapstructure:"frame_selector" yaml:"frame_selector"`
		TabBarSelector    string `mapstructure:"tab_bar_selector" yaml:"tab_bar_selector"`
		TableSelector     string `mapstructure:"table_selector" yaml:"table_selector"`
		RowText           string `mapstructure:"row_text" yaml:"row_text"`
		ClickTarget       string `mapstructure:"click_target" yaml:"click_target"`
		PreviousMonthTab  string `mapstructure:"previous_month_tab" yaml:"previous_month_tab"`
		ResponseMarker    string `mapstructure:"response_marker" yaml:"response_marker"`
		ResponseQuery     string `mapstructure:"response_query" yaml:"response_query"`
		DetailsTableID    string `mapstructure:"details_table_id" yaml:"details_table_id"`
	} `mapstructure:"pagi" yaml:"pagi"`

	Timeouts struct {
		ElementMs     float64 `mapstructure:"element_ms" yaml:"element_ms"`
		NavigationMs  float64 `mapstructure:"navigation_ms" yaml:"navigation_ms"`
		ResponseMs    float64 `mapstructure:"response_ms" yaml:"response_ms"`
		ClickMs       float64 `mapstructure:"click_ms" yaml:"click_ms"`
		SettleMs      float64 `mapstructure:"settle_ms" yaml:"settle_ms"`
		EntrySettleMs float64 `mapstructure:"entry_settle_ms" yaml:"entry_settle_ms"`
		PageSettleMs  float64 `mapstructure:"page_settle_ms" yaml:"page_settle_ms"`
	} `mapstructure:"timeouts" yaml:"timeouts"`

	Login struct {
		Attempts int     `mapstructure:"attempts" yaml:"attempts"`
		PauseMs  float64 `mapstructure:"pause_ms" yaml:"pause_ms"`
	} `mapstructure:"login" yaml:"login"`

	Output struct {
		Directory  string `mapstructure:"directory" yaml:"directory"`
		MasterFile string `mapstructure:"master_file" yaml:"master_file"`
		Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	} `mapstructure:"output" yaml:"output"`

	Reconcile struct {
		KeyColumn    string `mapstructure:"key_column" yaml:"key_column"`
		AmountColumn string `mapstructure:"amount_column" yaml:"amount_column"`
	} `mapstructure:"reconcile" yaml:"reconcile"`

	Institution struct {
		SpreadsheetID   string `mapstructure:"spreadsheet_id" yaml:"spreadsheet_id"`
		ReadRange       string `mapstructure:"read_range" yaml:"read_range"`
		CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"`
		APIKey          string `mapstructure:"api_key" yaml:"-"` // never serialized
		CacheFile       string `mapstructure:"cache_file" yaml:"cache_file"`
		ColumnName      string `mapstructure:"column_name" yaml:"column_name"`
		NotFoundLabel   string `mapstructure:"not_found_label" yaml:"not_found_label"`
	} `mapstructure:"institution" yaml:"institution"`
}

// InitializeConfig builds the configuration from defaults, an optional
// config file and the environment.
func InitializeConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.autopagi")
	v.AddConfigPath(".autopagi")
	v.AddConfigPath(".")

	v.SetEnvPrefix("AUTOPAGI")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Keep going with defaults and env vars; a broken config file
			// should not look like a site failure.
			fmt.Printf("Warning: error reading config file %s: %v\n", v.ConfigFileUsed(), err)
		}
	}

	// The Sheets API key is conventionally unprefixed.
	if err := v.BindEnv("institution.api_key", "GOOGLE_API_KEY"); err != nil {
		fmt.Printf("Warning: failed to bind GOOGLE_API_KEY environment variable: %v\n", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("pagi.entry_url", "https://www.pagi.co.il/private/")
	v.SetDefault("pagi.summary_url_pattern",
		"https://online.pagi.co.il/appsng/Resources/PortalNG/shell/#/accountSummary*")
	v.SetDefault("pagi.transactions_url",
		"https://online.pagi.co.il/appsng/Resources/PortalNG/shell/#/Online/OnAccountMngment/OnBalanceTrans/PrivateAccountFlow")
	v.SetDefault("pagi.frame_selector", "#iframe-old-pages")
	v.SetDefault("pagi.tab_bar_selector", "#ulTabs")
	v.SetDefault("pagi.table_selector", "#dataTable077")
	v.SetDefault("pagi.row_text", "חברת החשמל לישר")
	// The site's handler lives on the anchor inside the row, not the row.
	v.SetDefault("pagi.click_target", "a")
	v.SetDefault("pagi.previous_month_tab", "3")
	v.SetDefault("pagi.response_marker", "MatafPortalServiceServlet")
	v.SetDefault("pagi.response_query", "SUGBAKA=221")
	v.SetDefault("pagi.details_table_id", "Chiuvim")

	v.SetDefault("timeouts.element_ms", 30000)
	v.SetDefault("timeouts.navigation_ms", 30000)
	v.SetDefault("timeouts.response_ms", 20000)
	v.SetDefault("timeouts.click_ms", 3000)
	// The site attaches click listeners asynchronously; this settle delay
	// trades latency for click reliability.
	v.SetDefault("timeouts.settle_ms", 1200)
	v.SetDefault("timeouts.entry_settle_ms", 1500)
	v.SetDefault("timeouts.page_settle_ms", 2000)

	v.SetDefault("login.attempts", 5)
	v.SetDefault("login.pause_ms", 1000)

	v.SetDefault("output.directory", "output")
	v.SetDefault("output.master_file", "all_charges_report.csv")
	v.SetDefault("output.delimiter", ",")

	v.SetDefault("reconcile.key_column", "מספר הרשאה")
	v.SetDefault("reconcile.amount_column", "סכום")

	v.SetDefault("institution.spreadsheet_id", "")
	v.SetDefault("institution.read_range", "'חוזי חשמל כל המוסדות '!A:B")
	v.SetDefault("institution.credentials_file", "")
	v.SetDefault("institution.cache_file", "institutions.csv")
	v.SetDefault("institution.column_name", "מוסד")
	v.SetDefault("institution.not_found_label", "לא נמצא")
}

func validateConfig(config *Config) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[config.Log.Level] {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[config.Log.Format] {
		return fmt.Errorf("invalid log format: %s", config.Log.Format)
	}

	if len(config.Output.Delimiter) != 1 {
		return fmt.Errorf("csv delimiter must be a single character, got %q", config.Output.Delimiter)
	}

	if config.Login.Attempts < 1 {
		return fmt.Errorf("login attempts must be at least 1, got %d", config.Login.Attempts)
	}

	if config.Pagi.EntryURL == "" || config.Pagi.TransactionsURL == "" {
		return fmt.Errorf("pagi entry and transactions URLs must not be empty")
	}

	return nil
}
