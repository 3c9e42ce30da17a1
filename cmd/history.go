// File: cmd/history.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/jsguard/internal/config"
	"github.com/xkilldash9x/jsguard/internal/scanner"
)

func newHistoryCmd(provider storeProvider) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history [scan-id]",
		Short: "List saved scans, or render the findings of one",
		Long: `Without arguments, lists the most recent scans saved with 'scan --store'.
Given a scan ID, renders that scan's findings in the configured report format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			scanID := ""
			if len(args) == 1 {
				scanID = args[0]
			}
			return runHistory(cmd.Context(), cfg, cmd.OutOrStdout(), scanID, limit, provider)
		},
	}

	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of scans to list")
	historyCmd.Flags().StringP("format", "f", "", "output format for a single scan")
	historyCmd.Flags().StringP("output", "o", "", "write a single scan's report to a file")
	return historyCmd
}

// runHistory contains the testable logic for the history command.
func runHistory(ctx context.Context, cfg config.Interface, stdout io.Writer, scanID string, limit int, provider storeProvider) error {
	if !cfg.Store().Enabled() {
		return errors.New("scan history requires store.dsn or JSGUARD_STORE_DSN")
	}
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}

	db, cleanup, err := provider.Create(ctx, cfg.Store())
	if err != nil {
		return fmt.Errorf("failed to connect to scan history: %w", err)
	}
	defer cleanup()

	if scanID == "" {
		scans, err := db.RecentScans(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list scans: %w", err)
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCAN ID\tSTARTED\tDURATION\tFILES\tFINDINGS")
		for _, s := range scans {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
				s.ID, s.StartedAt.Local().Format(time.DateTime), s.Duration.Round(time.Millisecond), s.Files, s.Findings)
		}
		return tw.Flush()
	}

	findings, err := db.FindingsByScanID(ctx, scanID)
	if err != nil {
		return fmt.Errorf("failed to load scan %s: %w", scanID, err)
	}
	// Per-file results are not persisted; the rebuilt report carries findings only.
	return render(cfg.Report(), stdout, &scanner.Report{ScanID: scanID, Findings: findings})
}
