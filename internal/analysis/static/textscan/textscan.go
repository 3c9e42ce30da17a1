// Package textscan is the line oriented fallback used when a file cannot be parsed.
// Every rule is a substring heuristic applied to one physical line at a time.
package textscan

import (
	"strings"
	"unicode/utf8"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
)

// Issue types emitted by the text scanner. The prefix keeps them apart from the AST vocabulary.
const (
	IssueEvalUsage           javascript.IssueType = "text_eval_usage"
	IssueDynamicFunction     javascript.IssueType = "text_dynamic_function"
	IssueObfuscatedExecution javascript.IssueType = "text_obfuscated_execution"
	IssueNetworkRequest      javascript.IssueType = "text_network_request"
	IssueCommandExecution    javascript.IssueType = "text_command_execution"
	IssueSensitiveAccess     javascript.IssueType = "text_sensitive_access"
	IssueDynamicRequire      javascript.IssueType = "text_dynamic_require"
	IssueObfuscation         javascript.IssueType = "text_obfuscation"
)

const (
	maxSnippetRunes      = 100
	obfuscatedLineBytes  = 500
	obfuscatedHexEscapes = 10
)

// match is what a rule reports for one line.
type match struct {
	severity    javascript.Severity
	description string
	// anchor locates the column; the first occurrence wins.
	anchor string
}

type rule struct {
	issue javascript.IssueType
	check func(line string) (match, bool)
}

// rules run in this order on every line.
var rules = []rule{
	{IssueEvalUsage, checkEval},
	{IssueDynamicFunction, checkFunctionConstructor},
	{IssueObfuscatedExecution, checkEncodedExecution},
	{IssueNetworkRequest, checkNetworkRequest},
	{IssueCommandExecution, checkCommandExecution},
	{IssueSensitiveAccess, checkSensitiveAccess},
	{IssueDynamicRequire, checkDynamicRequire},
	{IssueObfuscation, checkHexObfuscation},
}

// Scan applies the line rules to source and returns the findings ordered by line,
// then by rule.
func Scan(filename string, source []byte) []javascript.Finding {
	findings := []javascript.Finding{}
	if len(source) == 0 {
		return findings
	}

	lines := strings.Split(string(source), "\n")
	// A trailing newline does not start another line.
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		snippet := truncate(line)

		for _, r := range rules {
			m, ok := r.check(line)
			if !ok {
				continue
			}
			findings = append(findings, javascript.Finding{
				Location: javascript.Location{
					File:   filename,
					Line:   i + 1,
					Column: column(line, m.anchor),
				},
				IssueType:   r.issue,
				Description: m.description,
				Severity:    m.severity,
				Snippet:     snippet,
			})
		}
	}
	return findings
}

func truncate(line string) string {
	if utf8.RuneCountInString(line) <= maxSnippetRunes {
		return line
	}
	runes := []rune(line)
	return string(runes[:maxSnippetRunes]) + "..."
}

// column returns the 1-based rune column of anchor in line, or 1 if absent.
func column(line, anchor string) int {
	if anchor == "" {
		return 1
	}
	idx := strings.Index(line, anchor)
	if idx < 0 {
		return 1
	}
	return utf8.RuneCountInString(line[:idx]) + 1
}

func containsAny(line string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(line, n) {
			return true
		}
	}
	return false
}

// firstOf returns the first needle present in line.
func firstOf(line string, needles ...string) string {
	for _, n := range needles {
		if strings.Contains(line, n) {
			return n
		}
	}
	return ""
}
