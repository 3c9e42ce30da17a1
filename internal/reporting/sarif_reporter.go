// internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/owenrumney/go-sarif/v2/sarif"
	"go.uber.org/zap"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/observability"
	"github.com/xkilldash9x/jsguard/internal/scanner"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName    = "jsguard"
	ToolInfoURI = "https://github.com/xkilldash9x/jsguard"
	// rulePrefix namespaces rule IDs, e.g. JSGUARD-eval_usage.
	rulePrefix = "JSGUARD-"
	// chainRulePrefix namespaces behavioral chain rules, e.g. JSGUARD-chain-backdoor.
	chainRulePrefix = rulePrefix + "chain-"
)

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// Results are buffered and written on Close. It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Report
	run    *sarif.Run
	// mu protects the log structure.
	mu sync.Mutex
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, toolVersion string) *SARIFReporter {
	logger := observability.GetLogger().Named("sarif_reporter")

	// New only fails for unknown versions.
	log, _ := sarif.New(sarif.Version210)
	run := sarif.NewRunWithInformationURI(ToolName, ToolInfoURI)
	// Finding columns count code points, not the UTF-16 units SARIF assumes.
	run.WithColumnKind("unicodeCodePoints")
	if toolVersion != "" {
		run.Tool.Driver.WithVersion(toolVersion)
	}
	log.AddRun(run)

	return &SARIFReporter{
		writer: writer,
		logger: logger,
		log:    log,
		run:    run,
	}
}

// Write converts the findings of a report into SARIF results, one rule per issue type.
func (r *SARIFReporter) Write(report *scanner.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, finding := range report.Findings {
		ruleID := r.ensureRule(finding)

		region := sarif.NewRegion().
			WithStartLine(finding.Line).
			WithStartColumn(finding.Column)
		if finding.Snippet != "" {
			region.WithSnippet(sarif.NewArtifactContent().WithText(finding.Snippet))
		}

		result := sarif.NewRuleResult(ruleID).
			WithLevel(sarifLevel(finding.Severity)).
			WithMessage(sarif.NewTextMessage(finding.Description)).
			WithLocations([]*sarif.Location{
				sarif.NewLocationWithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewSimpleArtifactLocation(finding.File)).
						WithRegion(region),
				),
			})
		r.run.AddResult(result)
	}

	chains := DetectChains(report.Findings)
	for _, chain := range chains {
		ruleID := chainRulePrefix + string(chain.Type)
		rule := r.run.AddRule(ruleID)
		if rule.ShortDescription == nil {
			rule.WithName(string(chain.Type)).
				WithDescription(chain.Description).
				WithProperties(sarif.Properties{
					"tags": []string{"security", "behavioral-chain"},
				})
		}

		result := sarif.NewRuleResult(ruleID).
			WithLevel(sarifLevel(chain.Severity)).
			WithMessage(sarif.NewTextMessage(chain.Description + ". Evidence: " + strings.Join(chain.Evidence, "; "))).
			WithLocations([]*sarif.Location{
				sarif.NewLocationWithPhysicalLocation(
					sarif.NewPhysicalLocation().
						WithArtifactLocation(sarif.NewSimpleArtifactLocation(chain.File)),
				),
			})
		result.AttachPropertyBag(&sarif.PropertyBag{Properties: sarif.Properties{"risk_score": chain.RiskScore}})
		r.run.AddResult(result)
	}

	if len(report.Findings) > 0 {
		r.logger.Debug("Wrote findings to SARIF buffer",
			zap.Int("findings_count", len(report.Findings)),
			zap.Int("chains_count", len(chains)),
		)
	}
	return nil
}

// ensureRule registers a rule for the finding's issue type and returns its ID.
// NOTE: Must be called while holding the mutex.
func (r *SARIFReporter) ensureRule(finding javascript.Finding) string {
	ruleID := rulePrefix + string(finding.IssueType)
	rule := r.run.AddRule(ruleID)
	if rule.ShortDescription == nil {
		rule.WithName(string(finding.IssueType)).
			WithDescription(ruleDescription(finding)).
			WithProperties(sarif.Properties{
				"tags": []string{"security", "javascript"},
			})
	}
	return ruleID
}

// ruleDescription prefers the fixed description of an AST issue type. Text scanner
// and command findings vary per match, so they fall back to the finding's text.
func ruleDescription(finding javascript.Finding) string {
	if d, ok := javascript.Describe(finding.IssueType); ok {
		return d
	}
	return finding.Description
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(r.run.Results)),
		zap.Int("total_rules", len(r.run.Tool.Driver.Rules)),
	)

	encodeErr := r.log.PrettyWrite(r.writer)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Debug("Successfully wrote SARIF report", zap.Duration("duration", time.Since(startTime)))
	return nil
}

// sarifLevel maps a finding severity to the SARIF result level.
func sarifLevel(severity javascript.Severity) string {
	switch severity {
	case javascript.SeverityCritical:
		return "error"
	case javascript.SeverityWarning:
		return "warning"
	default:
		return "note"
	}
}
