// Filename: javascript/helpers.go
package javascript

import (
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// NodeContent extracts the string content of a node from the source byte slice.
func NodeContent(node *sitter.Node, source []byte) string {
	if node == nil || node.IsNull() {
		return ""
	}
	start, end := int(node.StartByte()), int(node.EndByte())
	if start < 0 || end > len(source) || start > end {
		return ""
	}
	return string(source[start:end])
}

// FormatLocation converts a Tree-sitter node position to a 1-based Location.
// Tree-sitter reports byte columns; the returned column counts code points.
func FormatLocation(filename string, node *sitter.Node, source []byte) Location {
	if node == nil || node.IsNull() {
		return Location{File: filename}
	}
	point := node.StartPoint()
	return Location{
		File:   filename,
		Line:   int(point.Row) + 1,
		Column: runeColumn(source, int(node.StartByte()), int(point.Column)),
	}
}

// runeColumn turns a byte column into a 1-based code point column. Invalid UTF-8
// bytes count as one column each.
func runeColumn(source []byte, startByte, byteColumn int) int {
	lineStart := startByte - byteColumn
	if lineStart < 0 || startByte > len(source) {
		return byteColumn + 1
	}
	return utf8.RuneCount(source[lineStart:startByte]) + 1
}

// flattenPropertyAccess attempts to flatten a chain of property accesses (member_expression and subscript_expression)
// into a list of strings (e.g., RegExp.prototype or obj['prop'] -> ["RegExp", "prototype"] or ["obj", "prop"]).
func flattenPropertyAccess(node *sitter.Node, source []byte) []string {
	var path []string
	current := node

	for {
		if current == nil || current.IsNull() {
			return nil
		}

		switch current.Type() {
		case "identifier":
			path = append([]string{NodeContent(current, source)}, path...)
			return path
		case "this":
			path = append([]string{"this"}, path...)
			return path

		case "member_expression":
			object := current.ChildByFieldName("object")
			property := current.ChildByFieldName("property")
			if property == nil || object == nil {
				return nil
			}
			if property.Type() != "property_identifier" && property.Type() != "identifier" {
				// Private fields (#x) and other shapes are not part of a static path.
				return nil
			}
			path = append([]string{NodeContent(property, source)}, path...)
			current = object

		case "subscript_expression":
			object := current.ChildByFieldName("object")
			index := current.ChildByFieldName("index")
			if index == nil || object == nil {
				return nil
			}
			// Only static string indices can be flattened.
			propName, ok := stringLiteralValue(index, source)
			if !ok {
				return nil
			}
			path = append([]string{propName}, path...)
			current = object

		default:
			return nil
		}
	}
}

// unwrapExpression looks through wrappers that do not change the runtime value:
// parentheses and the TypeScript `as`, `satisfies` and non-null (`!`) forms.
func unwrapExpression(node *sitter.Node) *sitter.Node {
	for node != nil && !node.IsNull() {
		switch node.Type() {
		case "parenthesized_expression", "non_null_expression", "as_expression", "satisfies_expression":
			inner := firstNamedChild(node)
			if inner == nil {
				return node
			}
			node = inner
		default:
			return node
		}
	}
	return node
}

// firstNamedChild returns the first named child that is not a comment.
func firstNamedChild(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child != nil && child.Type() != "comment" {
			return child
		}
	}
	return nil
}

// stringLiteralValue returns the unquoted value of a plain string literal.
// Template strings are not literals here, even without substitutions.
func stringLiteralValue(node *sitter.Node, source []byte) (string, bool) {
	if node == nil || node.IsNull() || node.Type() != "string" {
		return "", false
	}
	raw := NodeContent(node, source)
	if len(raw) < 2 {
		return "", false
	}
	return raw[1 : len(raw)-1], true
}

// callArguments returns the argument expressions of a call or new expression,
// skipping punctuation and comments.
func callArguments(node *sitter.Node) []*sitter.Node {
	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil || argsNode.IsNull() {
		return nil
	}
	var args []*sitter.Node
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		child := argsNode.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		args = append(args, child)
	}
	return args
}

// identifierName returns the name when node is a bare identifier.
func identifierName(node *sitter.Node, source []byte) (string, bool) {
	if node == nil || node.IsNull() || node.Type() != "identifier" {
		return "", false
	}
	return NodeContent(node, source), true
}
