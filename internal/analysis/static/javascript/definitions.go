// Filename: javascript/definitions.go
// Package javascript provides AST based security analysis for JavaScript and TypeScript sources.
// This file contains the fixed vocabulary of issue types and the lookup tables the walker consults.
package javascript

import "strings"

// IssueType tags a finding. Downstream consumers match on these strings exactly,
// so existing values must never change.
type IssueType string

const (
	IssueEvalUsage          IssueType = "eval_usage"
	IssueDynamicFunction    IssueType = "dynamic_function"
	IssueCommandExecution   IssueType = "command_execution"
	IssueChildProcessImport IssueType = "child_process_import"
	IssueDynamicImport      IssueType = "dynamic_import"
)

// Well known global names the rules key off.
const (
	evalIdentifier     = "eval"
	functionIdentifier = "Function"
	regExpIdentifier   = "RegExp"
	requireIdentifier  = "require"
	prototypeProperty  = "prototype"
)

// issueDescriptions holds the human readable text for every AST issue type.
var issueDescriptions = map[IssueType]string{
	IssueEvalUsage:          "Direct eval() usage detected - allows arbitrary code execution",
	IssueDynamicFunction:    "Dynamic function creation with new Function() - potential code injection",
	IssueChildProcessImport: "child_process module imported - can execute system commands",
	IssueDynamicImport:      "Dynamic import with non-literal path - potential security risk",
}

// processModules are the specifiers that resolve to the OS process execution module.
var processModules = map[string]bool{
	"child_process":      true,
	"node:child_process": true,
}

// processMethods are the process spawning method names. Accessing one of these on an
// object that is not provably a regex is reported as command execution.
var processMethods = map[string]bool{
	"exec":         true,
	"execSync":     true,
	"spawn":        true,
	"spawnSync":    true,
	"execFile":     true,
	"execFileSync": true,
}

// regexNameFragments are lowercase substrings that make an untracked identifier look like a regex.
var regexNameFragments = []string{"regex", "regexp", "pattern", "match"}

// IsProcessModule reports whether a module specifier names the process execution module.
func IsProcessModule(specifier string) bool {
	return processModules[specifier]
}

// Describe returns the fixed description of an issue type. Command execution
// descriptions name the method and have no fixed text.
func Describe(t IssueType) (string, bool) {
	d, ok := issueDescriptions[t]
	return d, ok
}

// IsProcessMethod reports whether a property name is one of the process spawning methods.
func IsProcessMethod(name string) bool {
	return processMethods[name]
}

// LooksLikeRegexName applies the naming heuristic used for identifiers the symbol
// table knows nothing about.
func LooksLikeRegexName(name string) bool {
	lower := strings.ToLower(name)
	for _, fragment := range regexNameFragments {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return strings.HasSuffix(lower, "re")
}

// isRegexConstructorName is the narrower check used for `<Ident>.prototype` objects.
func isRegexConstructorName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "regexp") || strings.Contains(lower, "regex")
}

// commandDescription builds the description for a command execution finding.
func commandDescription(method string) string {
	return "Command execution method '" + method + "' detected"
}
