package reporting

import (
	"fmt"
	"io"
	"time"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/scanner"
)

// jsonReport is the document written by the JSON reporter.
type jsonReport struct {
	ScanID     string               `json:"scan_id"`
	StartedAt  time.Time            `json:"started_at"`
	DurationMS int64                `json:"duration_ms"`
	Summary    Summary              `json:"summary"`
	Files      []scanner.FileResult `json:"files"`
	Findings   []javascript.Finding `json:"findings"`
}

// JSONReporter writes one indented JSON document per report.
type JSONReporter struct {
	writer io.WriteCloser
}

func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

func (r *JSONReporter) Write(report *scanner.Report) error {
	doc := jsonReport{
		ScanID:     report.ScanID,
		StartedAt:  report.StartedAt,
		DurationMS: report.Duration.Milliseconds(),
		Summary:    Summarize(report.Findings),
		Files:      report.Files,
		Findings:   report.Findings,
	}
	if doc.Files == nil {
		doc.Files = []scanner.FileResult{}
	}
	if doc.Findings == nil {
		doc.Findings = []javascript.Finding{}
	}

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
