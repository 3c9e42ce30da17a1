package reporting

import (
	"fmt"
	"strings"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/analysis/static/textscan"
)

// ChainType names a combination of findings that together describe an attack.
type ChainType string

const (
	ChainDataExfiltration    ChainType = "data_exfiltration"
	ChainCredentialTheft     ChainType = "credential_theft"
	ChainRemoteCodeExecution ChainType = "remote_code_execution"
	ChainBackdoor            ChainType = "backdoor"
	ChainCryptomining        ChainType = "cryptomining"
	ChainObfuscation         ChainType = "obfuscation"
)

// Chain is a behavioral pattern detected from co-occurring findings in one file.
// Its RiskScore is added to the summary score on top of the per-finding weights.
type Chain struct {
	Type        ChainType           `json:"type"`
	File        string              `json:"file"`
	Description string              `json:"description"`
	Evidence    []string            `json:"evidence"`
	Severity    javascript.Severity `json:"severity"`
	RiskScore   int                 `json:"risk_score"`
}

// Keyword sets matched against finding snippets.
var (
	networkWords     = []string{"fetch", "axios", "http", "curl", "wget"}
	sensitiveWords   = []string{"process.env", ".ssh", ".aws", ".npmrc"}
	encodingWords    = []string{"base64", "atob", "btoa"}
	credentialWords  = []string{".ssh", ".aws", ".npmrc", ".git-credentials"}
	downloadWords    = []string{"curl", "wget", "git clone"}
	execPrepWords    = []string{"chmod +x", "chmod 777"}
	persistenceWords = []string{".bashrc", ".bash_profile", "crontab", ".config"}
	cpuWords         = []string{"worker", "crypto", "mining"}
	backgroundWords  = []string{"daemon", "nohup", "disown", "detached"}
)

// fileSignals holds what the findings of one file reveal.
type fileSignals struct {
	types    map[javascript.IssueType]bool
	snippets string
	obfCount int
}

func (s *fileSignals) has(types ...javascript.IssueType) bool {
	for _, t := range types {
		if s.types[t] {
			return true
		}
	}
	return false
}

func (s *fileSignals) mentions(words []string) bool {
	for _, w := range words {
		if strings.Contains(s.snippets, w) {
			return true
		}
	}
	return false
}

// DetectChains groups findings by file and reports the behavioral chains each file
// exhibits. Files appear in the order of their first finding.
func DetectChains(findings []javascript.Finding) []Chain {
	var order []string
	byFile := map[string]*fileSignals{}
	for _, f := range findings {
		sig, ok := byFile[f.File]
		if !ok {
			sig = &fileSignals{types: map[javascript.IssueType]bool{}}
			byFile[f.File] = sig
			order = append(order, f.File)
		}
		sig.types[f.IssueType] = true
		sig.snippets += f.Snippet + "\n"
		if f.IssueType == textscan.IssueObfuscatedExecution || f.IssueType == textscan.IssueObfuscation {
			sig.obfCount++
		}
	}

	chains := []Chain{}
	for _, file := range order {
		chains = append(chains, chainsFor(file, byFile[file])...)
	}
	return chains
}

func chainsFor(file string, sig *fileSignals) []Chain {
	var chains []Chain

	hasNetwork := sig.has(textscan.IssueNetworkRequest) || sig.mentions(networkWords)
	hasSensitive := sig.has(textscan.IssueSensitiveAccess) || sig.mentions(sensitiveWords)
	hasEncoding := sig.has(textscan.IssueObfuscatedExecution, textscan.IssueObfuscation) || sig.mentions(encodingWords)
	hasCodeExec := sig.has(
		javascript.IssueEvalUsage, javascript.IssueDynamicFunction, javascript.IssueCommandExecution,
		textscan.IssueEvalUsage, textscan.IssueDynamicFunction, textscan.IssueCommandExecution,
	)

	if hasNetwork && hasSensitive {
		c := Chain{
			Type:        ChainDataExfiltration,
			File:        file,
			Description: "Potential data exfiltration: accesses sensitive data and makes network requests",
			Severity:    javascript.SeverityWarning,
			RiskScore:   75,
		}
		if hasEncoding {
			c.Evidence = append(c.Evidence, "Uses encoding/obfuscation")
			c.Severity = javascript.SeverityCritical
			c.RiskScore = 100
		}
		c.Evidence = append(c.Evidence, "Makes network requests", "Accesses sensitive data (env vars, credentials)")
		chains = append(chains, c)
	}

	if sig.mentions(credentialWords) && (hasNetwork || strings.Contains(sig.snippets, "writeFile")) {
		chains = append(chains, Chain{
			Type:        ChainCredentialTheft,
			File:        file,
			Description: "Credential theft pattern: accesses credential files and can transmit data",
			Evidence:    []string{"Accesses credential files (.ssh, .aws, .npmrc)", "Can transmit or write data externally"},
			Severity:    javascript.SeverityCritical,
			RiskScore:   95,
		})
	}

	if sig.mentions(downloadWords) && (sig.mentions(execPrepWords) || hasCodeExec) {
		chains = append(chains, Chain{
			Type:        ChainRemoteCodeExecution,
			File:        file,
			Description: "Remote code execution chain: downloads and executes external code",
			Evidence:    []string{"Downloads files from internet", "Makes files executable or executes code"},
			Severity:    javascript.SeverityCritical,
			RiskScore:   100,
		})
	}

	if hasNetwork && sig.mentions(persistenceWords) {
		chains = append(chains, Chain{
			Type:        ChainBackdoor,
			File:        file,
			Description: "Backdoor installation pattern: modifies system persistence mechanisms",
			Evidence:    []string{"Network access capability", "Modifies shell configs or cron jobs"},
			Severity:    javascript.SeverityCritical,
			RiskScore:   90,
		})
	}

	if hasNetwork && sig.mentions(cpuWords) && sig.mentions(backgroundWords) {
		chains = append(chains, Chain{
			Type:        ChainCryptomining,
			File:        file,
			Description: "Potential cryptomining: CPU-intensive background process with network access",
			Evidence:    []string{"CPU-intensive operations", "Background/daemon execution", "Network connectivity"},
			Severity:    javascript.SeverityCritical,
			RiskScore:   85,
		})
	}

	evalWithObfuscation := sig.obfCount > 0 && sig.has(
		javascript.IssueEvalUsage, javascript.IssueDynamicFunction,
		textscan.IssueEvalUsage, textscan.IssueDynamicFunction,
	)
	if evalWithObfuscation || sig.obfCount >= 3 {
		chains = append(chains, Chain{
			Type:        ChainObfuscation,
			File:        file,
			Description: "Heavy code obfuscation: intentionally hiding behavior",
			Evidence:    []string{fmt.Sprintf("%d instances of code obfuscation", sig.obfCount), "Dynamic code execution with obfuscated input"},
			Severity:    javascript.SeverityCritical,
			RiskScore:   80,
		})
	}
	return chains
}
