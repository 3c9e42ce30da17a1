// Filename: javascript/walker.go
// Core logic for traversing the AST, tracking what identifiers hold, and emitting findings.
package javascript

import (
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
)

// astWalker performs one pre-order traversal of a parsed file. Each node kind of
// interest has a handler; every handler runs before the node's children are visited,
// so declarations are recorded before any later use is checked.
type astWalker struct {
	logger   *zap.Logger
	filename string
	source   []byte
	opts     Options

	symbols  *SymbolTable
	findings []Finding
}

func newASTWalker(logger *zap.Logger, filename string, source []byte, opts Options) *astWalker {
	return &astWalker{
		logger:   logger.Named("js_walker"),
		filename: filename,
		source:   source,
		opts:     opts,
		symbols:  NewSymbolTable(),
		findings: []Finding{},
	}
}

// Findings returns the findings in detection order.
func (w *astWalker) Findings() []Finding {
	return w.findings
}

// Walk recursively visits nodes.
func (w *astWalker) Walk(node *sitter.Node) {
	if node == nil || node.IsNull() {
		return
	}

	switch node.Type() {
	case "variable_declaration", "lexical_declaration":
		w.handleVarDecl(node)

	case "assignment_expression":
		w.handleAssignment(node)

	case "call_expression":
		w.handleCall(node)

	case "new_expression":
		w.handleNew(node)

	case "member_expression":
		w.handleMemberAccess(node)

	case "import_statement":
		w.handleImportStatement(node)
	}

	// Depth-first traversal. Children are always visited, rule or not.
	for i := 0; i < int(node.ChildCount()); i++ {
		w.Walk(node.Child(i))
	}
}

// -- Symbol Tracking --

func (w *astWalker) handleVarDecl(node *sitter.Node) {
	// variable_declaration or lexical_declaration can have multiple declarators
	for i := 0; i < int(node.NamedChildCount()); i++ {
		declarator := node.NamedChild(i)
		if declarator.Type() != "variable_declarator" {
			continue
		}
		nameNode := declarator.ChildByFieldName("name")
		valueNode := declarator.ChildByFieldName("value")

		// A declarator might not have a value (e.g. `let x;`)
		if nameNode == nil || valueNode == nil {
			continue
		}
		if kind, ok := w.classifyValue(valueNode); ok {
			w.bind(nameNode, kind)
		}
	}
}

func (w *astWalker) handleAssignment(node *sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil || right == nil {
		return
	}
	if kind, ok := w.classifyValue(right); ok {
		w.bind(unwrapExpression(left), kind)
	}
}

// bind records kind for the identifiers introduced by a binding target. Destructuring
// patterns only carry provenance for process handles; a regex has no named parts worth tracking.
func (w *astWalker) bind(target *sitter.Node, kind SymbolKind) {
	if target == nil || target.IsNull() {
		return
	}
	switch target.Type() {
	case "identifier":
		w.record(NodeContent(target, w.source), kind, target)
	case "object_pattern", "array_pattern":
		if kind != KindProcessHandle {
			return
		}
		for _, name := range w.collectBindings(target) {
			w.record(name, kind, target)
		}
	}
}

func (w *astWalker) record(name string, kind SymbolKind, node *sitter.Node) {
	w.symbols.Record(name, kind)
	w.logger.Debug("Recorded symbol",
		zap.String("name", name),
		zap.Stringer("kind", kind),
		zap.Int("line", int(node.StartPoint().Row)+1),
	)
}

// collectBindings returns the local names bound by a destructuring pattern.
func (w *astWalker) collectBindings(pattern *sitter.Node) []string {
	if pattern == nil || pattern.IsNull() {
		return nil
	}

	switch pattern.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		return []string{NodeContent(pattern, w.source)}

	case "pair_pattern":
		// { key: local }
		return w.collectBindings(pattern.ChildByFieldName("value"))

	case "assignment_pattern", "object_assignment_pattern":
		// { local = fallback } or [local = fallback]
		return w.collectBindings(pattern.ChildByFieldName("left"))

	case "object_pattern", "array_pattern", "rest_pattern":
		var names []string
		for i := 0; i < int(pattern.NamedChildCount()); i++ {
			names = append(names, w.collectBindings(pattern.NamedChild(i))...)
		}
		return names
	}
	return nil
}

// classifyValue infers the kind of the value an initializer or right-hand side produces.
func (w *astWalker) classifyValue(value *sitter.Node) (SymbolKind, bool) {
	value = unwrapExpression(value)
	if value == nil || value.IsNull() {
		return 0, false
	}

	if w.isRegexProducing(value) {
		return KindRegex, true
	}
	if w.isProcessImport(value) {
		return KindProcessHandle, true
	}

	switch value.Type() {
	case "member_expression":
		// require('child_process').exec
		if w.isProcessImport(unwrapExpression(value.ChildByFieldName("object"))) {
			return KindProcessHandle, true
		}
	case "identifier":
		// Aliases inherit whatever the source identifier is believed to hold.
		return w.symbols.Lookup(NodeContent(value, w.source))
	}
	return 0, false
}

// isRegexProducing reports structural evidence that an expression evaluates to a regex:
// a regex literal, RegExp(...) with or without new, or `<Ident>.prototype` (also in subscript form) where the
// identifier's name contains "regex"/"regexp".
func (w *astWalker) isRegexProducing(node *sitter.Node) bool {
	node = unwrapExpression(node)
	if node == nil || node.IsNull() {
		return false
	}

	switch node.Type() {
	case "regex":
		return true

	case "new_expression":
		name, ok := identifierName(node.ChildByFieldName("constructor"), w.source)
		return ok && name == regExpIdentifier

	case "call_expression":
		name, ok := identifierName(node.ChildByFieldName("function"), w.source)
		return ok && name == regExpIdentifier

	case "member_expression", "subscript_expression":
		path := flattenPropertyAccess(node, w.source)
		return len(path) == 2 && path[1] == prototypeProperty && isRegexConstructorName(path[0])
	}
	return false
}

// isProcessImport reports whether node loads the process execution module:
// require('child_process'), import('child_process') or an awaited dynamic import of it.
func (w *astWalker) isProcessImport(node *sitter.Node) bool {
	node = unwrapExpression(node)
	if node == nil || node.IsNull() {
		return false
	}
	if node.Type() == "await_expression" {
		node = unwrapExpression(firstNamedChild(node))
		if node == nil {
			return false
		}
	}
	if node.Type() != "call_expression" {
		return false
	}

	callee := node.ChildByFieldName("function")
	if callee == nil {
		return false
	}
	if name, ok := identifierName(callee, w.source); !ok || name != requireIdentifier {
		if callee.Type() != "import" {
			return false
		}
	}

	args := callArguments(node)
	if len(args) != 1 {
		return false
	}
	specifier, ok := stringLiteralValue(args[0], w.source)
	return ok && IsProcessModule(specifier)
}

// -- Detection Rules --

func (w *astWalker) handleCall(node *sitter.Node) {
	callee := node.ChildByFieldName("function")
	if callee == nil || callee.IsNull() {
		return
	}

	if callee.Type() == "import" {
		w.checkDynamicImport(node)
		return
	}

	name, ok := identifierName(callee, w.source)
	if !ok {
		return
	}

	switch {
	case name == evalIdentifier:
		w.reportFinding(IssueEvalUsage, SeverityCritical, issueDescriptions[IssueEvalUsage], node)

	case name == requireIdentifier:
		if w.isProcessImport(node) {
			w.reportFinding(IssueChildProcessImport, SeverityWarning, issueDescriptions[IssueChildProcessImport], node)
		}

	case w.opts.FlagBareProcessCalls:
		// Destructured handles called directly: const {exec} = require('child_process'); exec(cmd)
		if kind, tracked := w.symbols.Lookup(name); tracked && kind == KindProcessHandle {
			w.reportFinding(IssueCommandExecution, SeverityCritical, commandDescription(name), node)
		}
	}
}

func (w *astWalker) checkDynamicImport(node *sitter.Node) {
	args := callArguments(node)
	if len(args) == 0 {
		return
	}
	specifier, isLiteral := stringLiteralValue(args[0], w.source)
	switch {
	case !isLiteral:
		w.reportFinding(IssueDynamicImport, SeverityWarning, issueDescriptions[IssueDynamicImport], node)
	case IsProcessModule(specifier):
		w.reportFinding(IssueChildProcessImport, SeverityWarning, issueDescriptions[IssueChildProcessImport], node)
	}
}

func (w *astWalker) handleNew(node *sitter.Node) {
	name, ok := identifierName(node.ChildByFieldName("constructor"), w.source)
	if ok && name == functionIdentifier {
		w.reportFinding(IssueDynamicFunction, SeverityWarning, issueDescriptions[IssueDynamicFunction], node)
	}
}

// handleMemberAccess separates process spawning (cp.exec) from regex execution (re.exec).
func (w *astWalker) handleMemberAccess(node *sitter.Node) {
	property := node.ChildByFieldName("property")
	if property == nil || property.Type() != "property_identifier" {
		return
	}
	method := NodeContent(property, w.source)
	if !IsProcessMethod(method) {
		return
	}

	if w.isRegexReceiver(node.ChildByFieldName("object")) {
		return
	}
	w.reportFinding(IssueCommandExecution, SeverityCritical, commandDescription(method), node)
}

// isRegexReceiver decides whether the object of a process-method access is a regex.
// Structural evidence outranks tracked provenance, which outranks the naming heuristic:
// structure cannot be wrong, names can.
func (w *astWalker) isRegexReceiver(object *sitter.Node) bool {
	object = unwrapExpression(object)
	if object == nil || object.IsNull() {
		return false
	}

	if w.isRegexProducing(object) {
		return true
	}

	name, ok := identifierName(object, w.source)
	if !ok {
		// Calls, `this`, member chains: nothing to go on, so the access is reported.
		return false
	}
	if kind, tracked := w.symbols.Lookup(name); tracked {
		return kind == KindRegex
	}
	return LooksLikeRegexName(name)
}

// handleImportStatement covers ESM and TypeScript import-equals forms of the process module.
func (w *astWalker) handleImportStatement(node *sitter.Node) {
	var bindings []string
	specifier := ""

	if source := node.ChildByFieldName("source"); source != nil {
		specifier, _ = stringLiteralValue(source, w.source)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "from_clause":
			if specifier == "" {
				specifier, _ = stringLiteralValue(child.ChildByFieldName("source"), w.source)
			}
		case "import_clause":
			bindings = append(bindings, w.importClauseBindings(child)...)
		case "import_require_clause":
			// TypeScript: import cp = require('child_process')
			for j := 0; j < int(child.NamedChildCount()); j++ {
				part := child.NamedChild(j)
				switch part.Type() {
				case "identifier":
					bindings = append(bindings, NodeContent(part, w.source))
				case "string":
					if specifier == "" {
						specifier, _ = stringLiteralValue(part, w.source)
					}
				}
			}
		}
	}

	if !IsProcessModule(specifier) {
		return
	}

	w.reportFinding(IssueChildProcessImport, SeverityWarning, issueDescriptions[IssueChildProcessImport], node)
	for _, name := range bindings {
		w.record(name, KindProcessHandle, node)
	}
}

// importClauseBindings returns the local names of default, namespace and named imports.
func (w *astWalker) importClauseBindings(clause *sitter.Node) []string {
	var names []string
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		child := clause.NamedChild(i)
		switch child.Type() {
		case "identifier":
			// import cp from '...'
			names = append(names, NodeContent(child, w.source))
		case "namespace_import":
			// import * as cp from '...'
			if id := firstNamedChild(child); id != nil {
				names = append(names, NodeContent(id, w.source))
			}
		case "named_imports":
			// import { exec, spawn as sp } from '...'
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				local := spec.ChildByFieldName("alias")
				if local == nil {
					local = spec.ChildByFieldName("name")
				}
				if local != nil {
					names = append(names, NodeContent(local, w.source))
				}
			}
		}
	}
	return names
}

// reportFinding records a detected issue.
func (w *astWalker) reportFinding(issueType IssueType, severity Severity, description string, node *sitter.Node) {
	finding := Finding{
		Location:    FormatLocation(w.filename, node, w.source),
		IssueType:   issueType,
		Description: description,
		Severity:    severity,
		Snippet:     NodeContent(node, w.source),
	}

	w.logger.Debug("Security issue detected",
		zap.String("issue_type", string(issueType)),
		zap.Stringer("severity", severity),
		zap.String("location", finding.Location.String()),
	)

	w.findings = append(w.findings, finding)
}
