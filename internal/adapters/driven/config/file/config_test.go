package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadConfig_MissingFile tests that absence yields the defaults.
func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, 20, cfg.MaxPages)
}

// TestLoadConfig_ReadsValues tests TOML parsing and defaulting of
// absent fields.
func TestLoadConfig_ReadsValues(t *testing.T) {
	dir := t.TempDir()
	content := `
dest_root = "/srv/xml"
uf = "MG"
environment = "hom"
cooldown_minutes = 90
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(content), 0o600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "/srv/xml", cfg.DestRoot)
	assert.Equal(t, "MG", cfg.UF)
	assert.Equal(t, "hom", cfg.Environment)
	assert.Equal(t, 90, cfg.CooldownMinutes)
	// Absent fields keep their built-in defaults.
	assert.Equal(t, 1200, cfg.PageDelayMillis)
	assert.Equal(t, 20, cfg.MaxPages)
}

// TestLoadConfig_BadTOML tests the parse error path.
func TestLoadConfig_BadTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("dest_root = ["), 0o600))

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}
