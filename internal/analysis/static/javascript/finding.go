// Filename: javascript/finding.go
package javascript

import (
	"fmt"
	"strings"
)

// Severity is the ordered severity of a finding. It carries no numeric weight;
// scoring belongs to the consumer.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityInfo:     "info",
	SeverityWarning:  "warning",
	SeverityCritical: "critical",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler so findings serialize with the wire names.
func (s Severity) MarshalText() ([]byte, error) {
	name, ok := severityNames[s]
	if !ok {
		return nil, fmt.Errorf("unknown severity %d", int(s))
	}
	return []byte(name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a wire name (case-insensitive) to a Severity.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityInfo, fmt.Errorf("unknown severity %q", name)
}

// Location pinpoints a finding in its source file. Line and Column are 1-based.
// Column counts Unicode code points, so a multi-byte character is one column.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Finding is one positioned security observation. Findings are created by the walker
// (or the text scanner) and never modified afterwards.
type Finding struct {
	Location
	IssueType   IssueType `json:"issue_type"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	// Snippet is the exact source text of the flagged node. Empty when unavailable.
	Snippet string `json:"snippet,omitempty"`
}
