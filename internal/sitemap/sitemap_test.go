package sitemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arieldaniely/AutoPagi/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFallsBackToDefaults(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.yaml"), logging.NewMockLogger())

	profile, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), profile)
	assert.NotEmpty(t, profile.LoginTriggers)
	assert.Equal(t, "#username", profile.UsernameField)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	store := NewStore(path, logging.NewMockLogger())

	profile := Default()
	profile.LoginTriggers = []string{"a.new-login"}
	profile.SubmitButton = "#submitBtn"
	require.NoError(t, store.Save(profile))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.new-login"}, loaded.LoginTriggers)
	assert.Equal(t, "#submitBtn", loaded.SubmitButton)
	// Fields absent from the file keep their defaults.
	assert.Equal(t, Default().FallbackAnchors, loaded.FallbackAnchors)
}

func TestLoadPartialProfileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("username_field: '#user'\n"), 0600))

	store := NewStore(path, logging.NewMockLogger())
	profile, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "#user", profile.UsernameField)
	assert.Equal(t, Default().PasswordField, profile.PasswordField)
	assert.Equal(t, Default().LoginTriggers, profile.LoginTriggers)
}

func TestLoadBrokenProfileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	require.NoError(t, os.WriteFile(path, []byte("login_triggers: {not: [valid"), 0600))

	store := NewStore(path, logging.NewMockLogger())
	_, err := store.Load()
	assert.Error(t, err)
}
