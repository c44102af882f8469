// Package sitemap manages the site selector profile: every selector the
// Pagi site is known to change between revisions, loadable from a YAML file
// so a markup change means editing a profile, not recompiling.
package sitemap

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arieldaniely/AutoPagi/internal/logging"

	"gopkg.in/yaml.v3"
)

// Profile holds the selector sets the navigation layer probes.
type Profile struct {
	// LoginTriggers are tried in order until one becomes visible.
	LoginTriggers []string `yaml:"login_triggers"`
	// LoginForms are the candidate markers for a rendered login container.
	LoginForms    []string `yaml:"login_forms"`
	UsernameField string   `yaml:"username_field"`
	PasswordField string   `yaml:"password_field"`
	SubmitButton  string   `yaml:"submit_button"`
	// FallbackAnchors is the tag/class heuristic for the last-resort
	// in-page anchor search used by the hybrid click.
	FallbackAnchors string `yaml:"fallback_anchors"`
}

// Default returns the selector profile matching the site markup observed
// across its recent revisions.
func Default() Profile {
	return Profile{
		LoginTriggers: []string{
			"a.login-trigger",
			"button.login-trigger",
			"a[href*='login']",
			"button:has-text('כניסה לחשבונך')",
			"text=כניסה לחשבונך",
		},
		LoginForms: []string{
			"#loginForm",
			"form#loginForm",
			"form[action*='login']",
			"input#username",
			"input[name='username']",
		},
		UsernameField:   "#username",
		PasswordField:   "#password",
		SubmitButton:    "#continueBtn",
		FallbackAnchors: "a.PW, a:not([class])",
	}
}

// Store loads and saves selector profiles.
type Store struct {
	File string
	log  logging.Logger
}

// NewStore creates a profile store. File may be empty, in which case the
// default file name is searched for.
func NewStore(file string, log logging.Logger) *Store {
	if file == "" {
		file = "pagi_selectors.yaml"
	}
	return &Store{File: file, log: log}
}

// FindProfileFile looks for the profile file in standard locations.
func (s *Store) FindProfileFile() (string, error) {
	if filepath.IsAbs(s.File) {
		if _, err := os.Stat(s.File); err == nil {
			return s.File, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		s.File,
		filepath.Join("config", s.File),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".config", "autopagi", s.File)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

// Load reads the profile, falling back to the built-in defaults when no
// profile file exists. A present-but-broken file is an error: silently
// reverting to defaults would mask a bad selector edit.
func (s *Store) Load() (Profile, error) {
	path, err := s.FindProfileFile()
	if err != nil {
		s.log.Debug("no selector profile file found, using defaults")
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("error reading selector profile %s: %w", path, err)
	}

	profile := Default()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return Profile{}, fmt.Errorf("error parsing selector profile %s: %w", path, err)
	}

	s.log.Info("loaded selector profile", logging.F(logging.FieldFile, path))
	return profile, nil
}

// Save writes the profile to the store's file.
func (s *Store) Save(profile Profile) error {
	data, err := yaml.Marshal(profile)
	if err != nil {
		return fmt.Errorf("error marshaling selector profile: %w", err)
	}

	dir := filepath.Dir(s.File)
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("error creating profile directory: %w", err)
		}
	}

	if err := os.WriteFile(s.File, data, 0600); err != nil {
		return fmt.Errorf("error writing selector profile: %w", err)
	}

	s.log.Info("saved selector profile", logging.F(logging.FieldFile, s.File))
	return nil
}
