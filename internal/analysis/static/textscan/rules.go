package textscan

import (
	"strings"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
)

func checkEval(line string) (match, bool) {
	if !strings.Contains(line, "eval(") {
		return match{}, false
	}
	return match{
		severity:    javascript.SeverityCritical,
		description: "eval() usage - executes arbitrary code, high risk for code injection",
		anchor:      "eval(",
	}, true
}

func checkFunctionConstructor(line string) (match, bool) {
	if !strings.Contains(line, "new Function(") {
		return match{}, false
	}
	// Compilers generate code this way too; pair it with decoding before escalating.
	if containsAny(line, "atob", "base64", "eval", "Buffer.from") {
		return match{
			severity:    javascript.SeverityCritical,
			description: "Dynamic function creation - creates and executes obfuscated code",
			anchor:      "new Function(",
		}, true
	}
	return match{
		severity:    javascript.SeverityWarning,
		description: "Dynamic function creation - review if necessary for functionality",
		anchor:      "new Function(",
	}, true
}

func checkEncodedExecution(line string) (match, bool) {
	decodes := strings.Contains(line, "atob(") ||
		(strings.Contains(line, "Buffer.from(") && strings.Contains(line, "'base64'"))
	if !decodes || !containsAny(line, "eval", "Function") {
		return match{}, false
	}
	return match{
		severity:    javascript.SeverityCritical,
		description: "Base64 obfuscated code execution - decodes and executes encoded code",
		anchor:      firstOf(line, "atob(", "Buffer.from("),
	}, true
}

func checkNetworkRequest(line string) (match, bool) {
	if !containsAny(line, "http://", "https://") {
		return match{}, false
	}
	if containsAny(line, "github.com", "npmjs.org") {
		return match{}, false
	}
	anchor := firstOf(line, "fetch(", "axios", "request(")
	if anchor == "" {
		return match{}, false
	}
	return match{
		severity:    javascript.SeverityWarning,
		description: "External HTTP request - makes requests to external servers",
		anchor:      anchor,
	}, true
}

func checkCommandExecution(line string) (match, bool) {
	if !isSystemExec(line) {
		return match{}, false
	}
	return match{
		severity:    javascript.SeverityWarning,
		description: "System command execution - verify the command is safe",
		anchor:      firstOf(line, "execSync(", "exec(", "spawnSync(", "spawn("),
	}, true
}

// isSystemExec separates process spawning from RegExp.prototype.exec on a single line.
func isSystemExec(line string) bool {
	if containsAny(line, "spawn(", "spawnSync(") && !containsAny(line, "RegExp", "regex") {
		return true
	}
	if !containsAny(line, "exec(", "execSync(") {
		return false
	}

	hasProcessRef := strings.Contains(line, "child_process") ||
		strings.Contains(line, "cp.") ||
		(strings.Contains(line, "import ") && strings.Contains(line, "child_process"))
	if hasProcessRef {
		return true
	}

	isMethodCall := containsAny(line, ".exec(", ".execSync(")
	if !isMethodCall {
		// Bare exec(...) outside any regex context.
		return !containsAny(line, "RegExp", "regex", "regExp", "pattern")
	}

	looksLikeRegexExec := containsAny(line,
		"RegExp.exec", "regex.exec", "regExp.exec", "Regex.exec", "pattern.exec",
		"matchArray", "= regExp", "= regex", "= new RegExp", "CharacterRegex",
	) || strings.Count(line, ".exec(") == 1
	return !looksLikeRegexExec
}

var sensitivePaths = []string{"~/.ssh", "~/.aws", "/etc/passwd", ".npmrc", ".git-credentials"}

func checkSensitiveAccess(line string) (match, bool) {
	// process.env alone is routine; it matters when the line also ships data somewhere.
	if strings.Contains(line, "process.env") && containsAny(line, "JSON.stringify", "fetch", "http", "POST", "send") {
		return match{
			severity:    javascript.SeverityWarning,
			description: "Sensitive env access - accesses and potentially transmits environment variables",
			anchor:      "process.env",
		}, true
	}
	if path := firstOf(line, sensitivePaths...); path != "" {
		return match{
			severity:    javascript.SeverityWarning,
			description: "Sensitive file access - accesses credential files",
			anchor:      path,
		}, true
	}
	return match{}, false
}

func checkDynamicRequire(line string) (match, bool) {
	if !strings.Contains(line, "require(") || !containsAny(line, "+", "`${", "concat") {
		return match{}, false
	}
	return match{
		severity:    javascript.SeverityWarning,
		description: "Dynamic module loading - constructs module paths at runtime",
		anchor:      "require(",
	}, true
}

func checkHexObfuscation(line string) (match, bool) {
	if len(line) <= obfuscatedLineBytes || strings.Count(line, `\x`) <= obfuscatedHexEscapes {
		return match{}, false
	}
	return match{
		severity:    javascript.SeverityWarning,
		description: "Heavily obfuscated code - excessive hex escapes",
		anchor:      `\x`,
	}, true
}
