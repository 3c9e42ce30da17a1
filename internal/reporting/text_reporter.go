package reporting

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/scanner"
)

// TextReporter writes a human readable listing grouped by severity.
type TextReporter struct {
	writer io.WriteCloser
	top    int
}

// NewTextReporter creates a text reporter. top caps each severity section; zero lists all.
func NewTextReporter(writer io.WriteCloser, top int) *TextReporter {
	return &TextReporter{writer: writer, top: top}
}

var textSections = []struct {
	severity javascript.Severity
	title    string
}{
	{javascript.SeverityCritical, "CRITICAL"},
	{javascript.SeverityWarning, "WARNING"},
	{javascript.SeverityInfo, "INFO"},
}

func (r *TextReporter) Write(report *scanner.Report) error {
	summary := Summarize(report.Findings)
	tw := tabwriter.NewWriter(r.writer, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Scan %s: %d files, %d findings, risk %s (score %d)\n",
		report.ScanID, len(report.Files), summary.Total, summary.RiskLevel, summary.RiskScore)
	for _, issue := range summary.sortedTypes() {
		fmt.Fprintf(tw, "  %s\t%d\n", issue, summary.ByType[issue])
	}

	if len(summary.Chains) > 0 {
		fmt.Fprintf(tw, "\nCHAINS (%d)\n", len(summary.Chains))
		for _, c := range summary.Chains {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t+%d\n", c.File, c.Type, c.Severity, c.RiskScore)
			for _, e := range c.Evidence {
				fmt.Fprintf(tw, "  \t\t- %s\n", e)
			}
		}
	}

	for _, section := range textSections {
		all := TopN(report.Findings, section.severity, 0)
		if len(all) == 0 {
			continue
		}
		shown := TopN(report.Findings, section.severity, r.top)
		fmt.Fprintf(tw, "\n%s (%d)\n", section.title, len(all))
		for _, f := range shown {
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Location, f.IssueType, f.Description)
			if f.Snippet != "" {
				fmt.Fprintf(tw, "  \t\t%s\n", f.Snippet)
			}
		}
		if hidden := len(all) - len(shown); hidden > 0 {
			fmt.Fprintf(tw, "  ... %d more\n", hidden)
		}
	}

	if unparsed := report.Unparsed(); len(unparsed) > 0 {
		fmt.Fprintf(tw, "\nUNPARSED (%d)\n", len(unparsed))
		for _, f := range unparsed {
			mode := "skipped"
			if f.Fallback {
				mode = "text fallback"
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", f.Path, f.Dialect, mode)
		}
	}
	if failed := report.Failed(); len(failed) > 0 {
		fmt.Fprintf(tw, "\nFAILED (%d)\n", len(failed))
		for _, f := range failed {
			fmt.Fprintf(tw, "  %s\t%s\n", f.Path, f.Error)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing text report: %w", err)
	}
	return nil
}

func (r *TextReporter) Close() error {
	return r.writer.Close()
}
