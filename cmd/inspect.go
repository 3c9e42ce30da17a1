// File: cmd/inspect.go
package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/observability"
)

func newInspectCmd() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show how a single file is parsed and what it reports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			analyzer := javascript.NewAnalyzer(
				observability.GetLogger().Named("inspect"),
				javascript.WithOptions(analyzerOptions(cfg)),
			)
			res, err := analyzer.Inspect(cmd.Context(), args[0], src)
			if err != nil {
				return err
			}
			return writeInspection(cmd.OutOrStdout(), args[0], res)
		},
	}
	inspectCmd.Flags().Bool("bare-calls", false, "flag direct calls of destructured process handles")
	return inspectCmd
}

func writeInspection(w io.Writer, filename string, res javascript.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "file:\t%s\n", filename)
	fmt.Fprintf(tw, "dialect:\t%s\n", res.Dialect)
	grammar := "javascript"
	if res.Dialect.IsTypeScript() {
		grammar = "typescript"
	}
	fmt.Fprintf(tw, "grammar:\t%s\n", grammar)
	fmt.Fprintf(tw, "parsed:\t%t\n", res.Parsed)
	fmt.Fprintf(tw, "symbols:\t%d\n", res.SymbolsTracked)
	fmt.Fprintf(tw, "findings:\t%d\n", len(res.Findings))
	for _, f := range res.Findings {
		fmt.Fprintf(tw, "  %d:%d\t%s\t%s\t%s\n", f.Location.Line, f.Location.Column, f.Severity, f.IssueType, f.Snippet)
	}
	return tw.Flush()
}
