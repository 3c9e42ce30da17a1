// Filename: javascript/definitions_test.go
package javascript

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksLikeRegexName(t *testing.T) {
	tests := map[string]bool{
		"simpleEncodingRegExp": true,
		"myRegex":              true,
		"URL_PATTERN":          true,
		"matcher":              true,
		"re":                   true,
		"wordRe":               true,
		"store":                true, // suffix rule
		"cp":                   false,
		"child":                false,
		"runner":               false,
		"":                     false,
	}
	for name, want := range tests {
		assert.Equal(t, want, LooksLikeRegexName(name), name)
	}
}

func TestProcessVocabulary(t *testing.T) {
	for _, m := range []string{"exec", "execSync", "spawn", "spawnSync", "execFile", "execFileSync"} {
		assert.True(t, IsProcessMethod(m), m)
	}
	assert.False(t, IsProcessMethod("fork"))
	assert.False(t, IsProcessMethod("Exec"))

	assert.True(t, IsProcessModule("child_process"))
	assert.True(t, IsProcessModule("node:child_process"))
	assert.False(t, IsProcessModule("child_process/"))
}

func TestIssueTypesAreStable(t *testing.T) {
	// These strings are matched exactly by report consumers.
	assert.Equal(t, "eval_usage", string(IssueEvalUsage))
	assert.Equal(t, "dynamic_function", string(IssueDynamicFunction))
	assert.Equal(t, "command_execution", string(IssueCommandExecution))
	assert.Equal(t, "child_process_import", string(IssueChildProcessImport))
	assert.Equal(t, "dynamic_import", string(IssueDynamicImport))
}

func TestDescribe(t *testing.T) {
	d, ok := Describe(IssueEvalUsage)
	assert.True(t, ok)
	assert.Contains(t, d, "eval()")

	_, ok = Describe(IssueCommandExecution)
	assert.False(t, ok)
}

func TestSeverity(t *testing.T) {
	assert.True(t, SeverityInfo < SeverityWarning && SeverityWarning < SeverityCritical)
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "severity(9)", Severity(9).String())

	for _, in := range []string{"warning", "WARN", " Warning "} {
		s, err := ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, SeverityWarning, s)
	}
	_, err := ParseSeverity("fatal")
	assert.Error(t, err)

	_, err = Severity(9).MarshalText()
	assert.Error(t, err)
}

func TestFindingJSON(t *testing.T) {
	f := Finding{
		Location:    Location{File: "a.js", Line: 2, Column: 3},
		IssueType:   IssueEvalUsage,
		Description: issueDescriptions[IssueEvalUsage],
		Severity:    SeverityCritical,
		Snippet:     "eval(x)",
	}
	data, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"file": "a.js", "line": 2, "column": 3,
		"issue_type": "eval_usage",
		"description": "Direct eval() usage detected - allows arbitrary code execution",
		"severity": "critical",
		"snippet": "eval(x)"
	}`, string(data))

	var back Finding
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, f, back)
}

func TestDialectFor(t *testing.T) {
	tests := map[string]Dialect{
		"a.ts":         DialectTypeScript,
		"a.d.ts":       DialectTypeScript,
		"a.MTS":        DialectTypeScript,
		"a.tsx":        DialectTSX,
		"a.jsx":        DialectJSX,
		"a.mjs":        DialectModule,
		"a.cjs":        DialectCommonJS,
		"a.js":         DialectScript,
		"Makefile":     DialectScript,
		"dir.ts/a.txt": DialectScript,
	}
	for name, want := range tests {
		got := DialectFor(name)
		assert.Equal(t, want, got, name)
		assert.Equal(t, want.IsTypeScript(), got == DialectTypeScript || got == DialectTSX)
	}
	assert.Equal(t, "tsx", DialectTSX.String())
	assert.Equal(t, "script", DialectScript.String())
}
