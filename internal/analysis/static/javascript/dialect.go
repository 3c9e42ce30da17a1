// Filename: javascript/dialect.go
package javascript

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Dialect is the parser mode selected for an input.
type Dialect int

const (
	// DialectScript is the unambiguous default used for .js and unknown suffixes.
	DialectScript Dialect = iota
	DialectModule
	DialectCommonJS
	DialectJSX
	DialectTypeScript
	// DialectTSX is the TypeScript dialect with JSX enabled.
	DialectTSX
)

func (d Dialect) String() string {
	switch d {
	case DialectModule:
		return "module"
	case DialectCommonJS:
		return "commonjs"
	case DialectJSX:
		return "jsx"
	case DialectTypeScript:
		return "typescript"
	case DialectTSX:
		return "tsx"
	default:
		return "script"
	}
}

// IsTypeScript reports whether the dialect uses a TypeScript grammar.
func (d Dialect) IsTypeScript() bool {
	return d == DialectTypeScript || d == DialectTSX
}

// DialectFor picks the dialect from the conventional filename suffix.
func DialectFor(filename string) Dialect {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ts", ".mts", ".cts":
		return DialectTypeScript
	case ".tsx":
		return DialectTSX
	case ".jsx":
		return DialectJSX
	case ".mjs":
		return DialectModule
	case ".cjs":
		return DialectCommonJS
	default:
		return DialectScript
	}
}

// language returns the tree-sitter grammar for a dialect. The JavaScript grammar
// accepts scripts, modules and JSX alike, so those dialects share it.
func (d Dialect) language() *sitter.Language {
	switch d {
	case DialectTypeScript:
		return typescript.GetLanguage()
	case DialectTSX:
		return tsx.GetLanguage()
	default:
		return javascript.GetLanguage()
	}
}
