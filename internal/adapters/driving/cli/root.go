// Package cli wires the dfesync commands. Commands validate their
// inputs up front and delegate to the core services; adapter
// construction happens here so tests can swap the factories.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/nfetools/dfesync/internal/adapters/driven/config/file"
	"github.com/nfetools/dfesync/internal/logger"
)

// version is injected at build time via -ldflags.
var version = "dev"

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	version = v
}

var (
	flagVerbose   bool
	flagConfigDir string
	flagState     string

	// cfg holds the operator defaults loaded before any command runs.
	cfg = file.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "dfesync",
	Short: "Incremental NF-e document synchronisation",
	Long: `dfesync pulls fiscal documents from the national distribution
service and lands them in a date-partitioned local tree. Sync sessions
resume from a persisted sequence cursor, so repeated runs only fetch
what is new.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(flagVerbose)
		logger.SetOutput(cmd.ErrOrStderr())

		loaded, err := file.LoadConfig(flagConfigDir)
		if err != nil {
			return err
		}
		cfg = loaded
		if flagState != "" {
			cfg.StateDSN = flagState
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "config directory (default ~/.dfesync)")
	rootCmd.PersistentFlags().StringVar(&flagState, "state", "", "cursor store DSN (sqlite://DIR, postgres://..., memory:)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
