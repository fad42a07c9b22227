package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/services"
)

var (
	scanCNPJ      string
	scanDest      string
	scanDir       string
	scanMonth     string
	scanLastMonth bool
	scanWatch     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Replay locally captured documents into the tree",
	Long: `Processes a directory of previously captured distribution payloads
(raw base64 containers or extracted XML bodies) through the same
identify-and-place pipeline the sync command uses. With --watch the
command keeps running and processes files as they appear.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanCNPJ, "cnpj", "", "subscriber CNPJ (required)")
	scanCmd.Flags().StringVar(&scanDest, "dest", "", "destination tree root")
	scanCmd.Flags().StringVar(&scanDir, "dir", "", "directory to scan (required)")
	scanCmd.Flags().StringVar(&scanMonth, "month", "", "only place invoices emitted in YYYY-MM")
	scanCmd.Flags().BoolVar(&scanLastMonth, "last-month", false, "only place invoices from the most recent complete month")
	scanCmd.Flags().BoolVar(&scanWatch, "watch", false, "keep watching the directory for new files")
	scanCmd.MarkFlagsMutuallyExclusive("month", "last-month")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, _ []string) error {
	dest := firstNonEmpty(scanDest, cfg.DestRoot)

	cnpj := domain.NormalizeSubscriber(scanCNPJ)
	if cnpj == "" {
		return fmt.Errorf("%w: --cnpj is required", domain.ErrUsage)
	}
	if dest == "" {
		return fmt.Errorf("%w: --dest is required", domain.ErrUsage)
	}
	if scanDir == "" {
		return fmt.Errorf("%w: --dir is required", domain.ErrUsage)
	}

	var filter domain.MonthRef
	switch {
	case scanMonth != "":
		parsed, err := domain.ParseMonth(scanMonth)
		if err != nil {
			return err
		}
		filter = parsed
	case scanLastMonth:
		filter = domain.LastCompleteMonth(time.Now())
	}

	svc := services.NewBatchService(newArchive(dest))

	if scanWatch {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		report, err := svc.Watch(ctx, scanDir, cnpj, filter)
		if report != nil {
			cmd.Printf("Watch ended: considered %d, placed %d.\n", report.Considered, report.Placed)
		}
		return err
	}

	report, err := svc.ProcessDir(cmd.Context(), scanDir, cnpj, filter)
	if err != nil {
		return err
	}
	cmd.Printf("Scan done: considered %d, placed %d.\n", report.Considered, report.Placed)
	return nil
}
