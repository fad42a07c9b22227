// Package file loads operator defaults from a TOML file in the
// dfesync config directory. CLI flags always override file values.
package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the defaults file within the config directory.
const ConfigFileName = "config.toml"

// Config holds operator defaults for recurring runs.
type Config struct {
	// DestRoot is the default destination tree root.
	DestRoot string `toml:"dest_root"`

	// StateDSN selects the cursor store backend (see storage.Open).
	StateDSN string `toml:"state_dsn"`

	// UF is the default author jurisdiction (e.g. "SP").
	UF string `toml:"uf"`

	// Environment is "prod" or "hom".
	Environment string `toml:"environment"`

	// CertPFX is the default A1 certificate bundle path.
	CertPFX string `toml:"cert_pfx"`

	// PageDelayMillis spaces queries within one session.
	PageDelayMillis int `toml:"page_delay_millis"`

	// CooldownMinutes spaces independent sessions for one pair.
	CooldownMinutes int `toml:"cooldown_minutes"`

	// MaxPages caps queries per session.
	MaxPages int `toml:"max_pages"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Environment:     "prod",
		PageDelayMillis: 1200,
		CooldownMinutes: 60,
		MaxPages:        20,
	}
}

// LoadConfig reads configDir/config.toml, applying built-in defaults
// for absent fields. A missing file yields the defaults unchanged.
// If configDir is empty, defaults to ~/.dfesync.
func LoadConfig(configDir string) (Config, error) {
	cfg := DefaultConfig()

	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("getting home directory: %w", err)
		}
		configDir = filepath.Join(home, ".dfesync")
	}

	data, err := os.ReadFile(filepath.Join(configDir, ConfigFileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
