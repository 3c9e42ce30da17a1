package reporting

import (
	"sort"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
)

// RiskLevel buckets the weighted finding score of a scan.
type RiskLevel string

const (
	RiskSafe     RiskLevel = "safe"
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Finding weights used for the risk score.
const (
	criticalWeight = 15
	warningWeight  = 5
)

// Summary aggregates the findings of a report.
type Summary struct {
	Total      int                          `json:"total"`
	BySeverity map[string]int               `json:"by_severity"`
	ByType     map[javascript.IssueType]int `json:"by_type"`
	Chains     []Chain                      `json:"chains"`
	RiskScore  int                          `json:"risk_score"`
	RiskLevel  RiskLevel                    `json:"risk_level"`
}

// Filter returns the findings at or above min, preserving order.
func Filter(findings []javascript.Finding, min javascript.Severity) []javascript.Finding {
	out := make([]javascript.Finding, 0, len(findings))
	for _, f := range findings {
		if f.Severity >= min {
			out = append(out, f)
		}
	}
	return out
}

// TopN returns up to n findings of exactly the given severity in their original
// order. n <= 0 returns all of them.
func TopN(findings []javascript.Finding, severity javascript.Severity, n int) []javascript.Finding {
	var out []javascript.Finding
	for _, f := range findings {
		if f.Severity != severity {
			continue
		}
		if n > 0 && len(out) == n {
			break
		}
		out = append(out, f)
	}
	return out
}

// Summarize counts findings by severity and type, detects behavioral chains and
// scores them. Each chain adds its own score to the finding weights.
func Summarize(findings []javascript.Finding) Summary {
	s := Summary{
		Total:      len(findings),
		BySeverity: map[string]int{},
		ByType:     map[javascript.IssueType]int{},
	}
	for _, f := range findings {
		s.BySeverity[f.Severity.String()]++
		s.ByType[f.IssueType]++
		switch f.Severity {
		case javascript.SeverityCritical:
			s.RiskScore += criticalWeight
		case javascript.SeverityWarning:
			s.RiskScore += warningWeight
		}
	}
	s.Chains = DetectChains(findings)
	for _, c := range s.Chains {
		s.RiskScore += c.RiskScore
	}
	s.RiskLevel = riskLevelFor(s.RiskScore)
	return s
}

func riskLevelFor(score int) RiskLevel {
	switch {
	case score >= 100:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 30:
		return RiskMedium
	case score >= 10:
		return RiskLow
	default:
		return RiskSafe
	}
}

// sortedTypes returns the issue types of a summary in a stable order, most frequent first.
func (s Summary) sortedTypes() []javascript.IssueType {
	types := make([]javascript.IssueType, 0, len(s.ByType))
	for t := range s.ByType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if s.ByType[types[i]] != s.ByType[types[j]] {
			return s.ByType[types[i]] > s.ByType[types[j]]
		}
		return types[i] < types[j]
	})
	return types
}
