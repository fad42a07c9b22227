package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	fsarchive "github.com/nfetools/dfesync/internal/adapters/driven/archive/fs"
	"github.com/nfetools/dfesync/internal/adapters/driven/soap"
	"github.com/nfetools/dfesync/internal/adapters/driven/storage"
	"github.com/nfetools/dfesync/internal/connectors/sefaz"
	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
	"github.com/nfetools/dfesync/internal/core/services"
)

// defaultHTTPTimeout bounds one distribution query round trip.
const defaultHTTPTimeout = 90 * time.Second

// Adapter factories, swappable in tests.
var (
	newTransport = func(pfxPath, passphrase string) (driven.Transport, error) {
		return soap.NewClient(pfxPath, passphrase, defaultHTTPTimeout)
	}
	openCursorStore = storage.Open
	newArchive      = func(root string) driven.Archive {
		return fsarchive.New(root)
	}
)

var (
	syncCNPJ     string
	syncDest     string
	syncUF       string
	syncEnv      string
	syncCertPFX  string
	syncCertPass string
	syncMaxPages int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull new documents from the distribution service",
	Long: `Runs one sync session: queries the distribution service from the
persisted cursor, extracts invoice documents and places them under
DEST/CNPJ/YYYY/MM. The session stops when the service reports it is
caught up, when the page cap is reached, or on error.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncCNPJ, "cnpj", "", "subscriber CNPJ (required)")
	syncCmd.Flags().StringVar(&syncDest, "dest", "", "destination tree root")
	syncCmd.Flags().StringVar(&syncUF, "uf", "", "author UF, e.g. SP")
	syncCmd.Flags().StringVar(&syncEnv, "env", "", "environment: prod or hom")
	syncCmd.Flags().StringVar(&syncCertPFX, "cert-pfx", "", "A1 certificate bundle (.pfx)")
	syncCmd.Flags().StringVar(&syncCertPass, "cert-pass", "", "certificate passphrase (prompted when omitted)")
	syncCmd.Flags().IntVar(&syncMaxPages, "max-pages", 0, "query cap per session")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	dest := firstNonEmpty(syncDest, cfg.DestRoot)
	uf := firstNonEmpty(syncUF, cfg.UF)
	certPFX := firstNonEmpty(syncCertPFX, cfg.CertPFX)
	envName := firstNonEmpty(syncEnv, cfg.Environment)

	cnpj := domain.NormalizeSubscriber(syncCNPJ)
	if cnpj == "" {
		return fmt.Errorf("%w: --cnpj is required", domain.ErrUsage)
	}
	if dest == "" {
		return fmt.Errorf("%w: --dest is required", domain.ErrUsage)
	}
	if uf == "" {
		return fmt.Errorf("%w: --uf is required", domain.ErrUsage)
	}
	if _, err := sefaz.UFCode(uf); err != nil {
		return err
	}
	if certPFX == "" {
		return fmt.Errorf("%w: --cert-pfx is required", domain.ErrUsage)
	}
	env, err := domain.ParseEnvironment(envName)
	if err != nil {
		return err
	}

	passphrase := syncCertPass
	if passphrase == "" {
		passphrase, err = promptPassphrase(cmd)
		if err != nil {
			return err
		}
	}

	transport, err := newTransport(certPFX, passphrase)
	if err != nil {
		return err
	}

	store, err := openCursorStore(cfg.StateDSN, "")
	if err != nil {
		return err
	}
	defer store.Close()

	svc := services.NewSyncService(
		store,
		transport,
		newArchive(dest),
		time.Duration(cfg.PageDelayMillis)*time.Millisecond,
		time.Duration(cfg.CooldownMinutes)*time.Minute,
	)

	maxPages := syncMaxPages
	if maxPages <= 0 {
		maxPages = cfg.MaxPages
	}

	res, err := svc.Run(cmd.Context(), services.Session{
		CNPJ:        cnpj,
		UF:          uf,
		Environment: env,
		MaxPages:    maxPages,
	})
	if res != nil {
		printSyncResult(cmd, res)
	}
	return err
}

func printSyncResult(cmd *cobra.Command, res *services.Result) {
	switch res.Reason {
	case services.StopDeferred:
		cmd.Printf("Deferred: next query allowed in %s (at %s).\n",
			res.Wait.Round(time.Second),
			res.Cursor.NextAllowed.Format(time.RFC3339))
	case services.StopBlocked:
		cmd.Printf("Blocked by the service (cStat %d): %s\n", res.Status, res.Message)
		cmd.Printf("Cursor unchanged at %s.\n", res.Cursor.LastNSU)
	case services.StopUnexpectedStatus:
		cmd.Printf("Unexpected status cStat %d: %s\n", res.Status, res.Message)
		cmd.Printf("Processed %d, placed %d, cursor %s.\n", res.Processed, res.Placed, res.Cursor.LastNSU)
	default:
		cmd.Printf("Done (%s): processed %d, placed %d, cursor %s.\n",
			res.Reason, res.Processed, res.Placed, res.Cursor.LastNSU)
	}
}

// promptPassphrase reads the certificate passphrase from the terminal.
// A non-interactive stdin yields an empty passphrase, which is valid
// for unprotected bundles.
func promptPassphrase(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	cmd.PrintErr("Certificate passphrase: ")
	raw, err := term.ReadPassword(fd)
	cmd.PrintErrln()
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(raw), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
