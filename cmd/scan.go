// File: cmd/scan.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/config"
	"github.com/xkilldash9x/jsguard/internal/gitsource"
	"github.com/xkilldash9x/jsguard/internal/observability"
	"github.com/xkilldash9x/jsguard/internal/reporting"
	"github.com/xkilldash9x/jsguard/internal/scanner"
)

// findingsExitCode is returned when --fail-on matches a finding.
const findingsExitCode = 2

type scanOptions struct {
	rev     string
	repoURL string
	ref     string
	save    bool
	failOn  string
}

func newScanCmd(provider storeProvider) *cobra.Command {
	var opts scanOptions

	scanCmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan files and directories for dangerous patterns",
		Long: `Scans JavaScript and TypeScript sources and reports calls to eval and
command execution through the child process module (regex .exec is not reported).

With no path the current directory is scanned. --rev reads the files of a git
revision instead of the working tree, and --repo clones a remote repository first.`,
		Example: `  jsguard scan ./src
  jsguard scan --format sarif --output results.sarif .
  jsguard scan --rev HEAD~1 .
  jsguard scan --repo https://github.com/org/project --ref main --fail-on warning`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			return runScan(cmd.Context(), cfg, cmd.OutOrStdout(), args, opts, provider)
		},
	}

	flags := scanCmd.Flags()
	flags.IntP("concurrency", "j", 0, "number of files analyzed in parallel")
	flags.Int64("max-file-bytes", 0, "skip files larger than this many bytes")
	flags.StringSlice("include", nil, "only scan paths matching these globs")
	flags.StringSlice("exclude", nil, "skip paths matching these globs")
	flags.StringSlice("extensions", nil, "file suffixes picked up from directories")
	flags.Duration("file-timeout", 0, "per-file analysis deadline")
	flags.Bool("decompress", false, "also scan .gz and .br bundles")
	flags.Bool("bare-calls", false, "flag direct calls of destructured process handles")
	flags.Bool("text-fallback", true, "run the line scanner on files that fail to parse")
	flags.StringP("format", "f", "", "output format (text, json, sarif, checkstyle)")
	flags.StringP("output", "o", "", "write the report to a file instead of stdout")
	flags.String("min-severity", "", "drop findings below this severity (info, warning, critical)")
	flags.Int("top", 0, "list at most this many findings per severity in text output")

	flags.StringVar(&opts.rev, "rev", "", "scan a git revision of the repository containing the first path")
	flags.StringVar(&opts.repoURL, "repo", "", "clone and scan a remote git repository")
	flags.StringVar(&opts.ref, "ref", "", "branch or reference to clone with --repo")
	flags.BoolVar(&opts.save, "store", false, "save the report to the scan history database")
	flags.StringVar(&opts.failOn, "fail-on", "", "exit with status 2 when a finding has at least this severity")

	return scanCmd
}

// runScan contains the testable logic for the scan command.
func runScan(ctx context.Context, cfg config.Interface, stdout io.Writer, paths []string, opts scanOptions, provider storeProvider) error {
	logger := observability.GetLogger().Named("scan")

	var failOn javascript.Severity
	if opts.failOn != "" {
		sev, err := javascript.ParseSeverity(opts.failOn)
		if err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}
		failOn = sev
	}
	minSeverity, err := javascript.ParseSeverity(cfg.Report().MinSeverity)
	if err != nil {
		return fmt.Errorf("report.min_severity: %w", err)
	}
	if opts.save && !cfg.Store().Enabled() {
		return errors.New("--store requires store.dsn or JSGUARD_STORE_DSN")
	}

	analyzer := javascript.NewAnalyzer(logger, javascript.WithOptions(analyzerOptions(cfg)))
	sc, err := scanner.New(logger, analyzer, scannerConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}

	report, err := collect(ctx, logger, cfg, sc, paths, opts)
	if err != nil {
		return err
	}

	if opts.save {
		db, cleanup, err := provider.Create(ctx, cfg.Store())
		if err != nil {
			return fmt.Errorf("failed to connect to scan history: %w", err)
		}
		defer cleanup()
		if err := db.SaveReport(ctx, report); err != nil {
			return fmt.Errorf("failed to save scan %s: %w", report.ScanID, err)
		}
		logger.Info("Scan saved", zap.String("scan_id", report.ScanID))
	}

	// Persisted reports keep every finding; the rendered one honors min_severity.
	rendered := *report
	rendered.Findings = reporting.Filter(report.Findings, minSeverity)
	if err := render(cfg.Report(), stdout, &rendered); err != nil {
		return err
	}

	if opts.failOn != "" {
		if n := len(reporting.Filter(report.Findings, failOn)); n > 0 {
			return &ExitError{
				Code: findingsExitCode,
				Msg:  fmt.Sprintf("%d finding(s) at or above %s", n, failOn),
			}
		}
	}
	return nil
}

// collect runs the scan against the working tree, a revision, or a fresh clone.
func collect(ctx context.Context, logger *zap.Logger, cfg config.Interface, sc *scanner.Scanner, paths []string, opts scanOptions) (*scanner.Report, error) {
	src := gitsource.New(logger, cfg.Scan().MaxFileBytes)

	if opts.repoURL != "" {
		dir, err := os.MkdirTemp("", "jsguard-clone-*")
		if err != nil {
			return nil, fmt.Errorf("creating clone directory: %w", err)
		}
		defer os.RemoveAll(dir)

		if err := src.Clone(ctx, opts.repoURL, opts.ref, dir); err != nil {
			return nil, err
		}
		paths = []string{dir}
	}

	if opts.rev == "" {
		return sc.Scan(ctx, paths)
	}

	files, err := src.ReadRevision(ctx, paths[0], opts.rev, sc.Accept)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("revision %s: %w", opts.rev, scanner.ErrNoInputs)
	}
	return sc.ScanFiles(ctx, files)
}

func analyzerOptions(cfg config.Interface) javascript.Options {
	return javascript.Options{FlagBareProcessCalls: cfg.Analyzer().FlagBareProcessCalls}
}

func scannerConfig(cfg config.Interface) scanner.Config {
	scan := cfg.Scan()
	return scanner.Config{
		Concurrency:  scan.Concurrency,
		MaxFileBytes: scan.MaxFileBytes,
		Include:      scan.Include,
		Exclude:      scan.Exclude,
		SkipDirs:     scan.SkipDirs,
		Extensions:   scan.Extensions,
		FileTimeout:  scan.FileTimeout,
		TextFallback: cfg.Analyzer().TextFallback,
		Decompress:   scan.Decompress,
	}
}

// render writes report with the configured reporter. An empty output path goes to stdout.
func render(rc config.ReportConfig, stdout io.Writer, report *scanner.Report) error {
	opts := reporting.Options{ToolVersion: Version, Top: rc.Top}

	var (
		reporter reporting.Reporter
		err      error
	)
	if rc.Output == "" {
		reporter, err = reporting.NewForWriter(rc.Format, nopCloser{stdout}, opts)
	} else {
		reporter, err = reporting.New(rc.Format, rc.Output, opts)
	}
	if err != nil {
		return err
	}

	if err := reporter.Write(report); err != nil {
		reporter.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return reporter.Close()
}

// nopCloser keeps the command's output stream open after the reporter closes.
type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
