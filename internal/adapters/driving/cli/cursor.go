package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfetools/dfesync/internal/core/domain"
)

var (
	cursorCNPJ string
	cursorEnv  string
)

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Inspect or reset the persisted sync cursor",
}

var cursorShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the cursor for a CNPJ and environment",
	RunE:  runCursorShow,
}

var cursorResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the cursor so the next sync starts from zero",
	Long: `Deletes the persisted cursor for a CNPJ and environment. The next
sync session restarts from sequence zero and re-downloads the full
window the service still retains; placement is idempotent, so already
placed documents are not duplicated.`,
	RunE: runCursorReset,
}

func init() {
	cursorCmd.PersistentFlags().StringVar(&cursorCNPJ, "cnpj", "", "subscriber CNPJ (required)")
	cursorCmd.PersistentFlags().StringVar(&cursorEnv, "env", "", "environment: prod or hom")
	cursorCmd.AddCommand(cursorShowCmd)
	cursorCmd.AddCommand(cursorResetCmd)
	rootCmd.AddCommand(cursorCmd)
}

func cursorTarget() (string, domain.Environment, error) {
	cnpj := domain.NormalizeSubscriber(cursorCNPJ)
	if cnpj == "" {
		return "", "", fmt.Errorf("%w: --cnpj is required", domain.ErrUsage)
	}
	env, err := domain.ParseEnvironment(firstNonEmpty(cursorEnv, cfg.Environment))
	if err != nil {
		return "", "", err
	}
	return cnpj, env, nil
}

func runCursorShow(cmd *cobra.Command, _ []string) error {
	cnpj, env, err := cursorTarget()
	if err != nil {
		return err
	}

	store, err := openCursorStore(cfg.StateDSN, "")
	if err != nil {
		return err
	}
	defer store.Close()

	cursor, err := store.Load(cmd.Context(), cnpj, env)
	if err != nil {
		return err
	}

	if cursor.IsZero() && cursor.NextAllowed.IsZero() {
		cmd.Printf("%s/%s: never synchronised.\n", cnpj, env)
		return nil
	}

	cmd.Printf("%s/%s: cursor %s", cnpj, env, cursor.LastNSU)
	if !cursor.NextAllowed.IsZero() {
		cmd.Printf(", next query allowed at %s", cursor.NextAllowed.Format(time.RFC3339))
	}
	cmd.Println()
	return nil
}

func runCursorReset(cmd *cobra.Command, _ []string) error {
	cnpj, env, err := cursorTarget()
	if err != nil {
		return err
	}

	store, err := openCursorStore(cfg.StateDSN, "")
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context(), cnpj, env); err != nil {
		return err
	}
	cmd.Printf("Cursor for %s/%s reset.\n", cnpj, env)
	return nil
}
