// Filename: javascript/state.go
// Defines the abstract state the walker keeps while it traverses a file: a flat,
// flow-insensitive table of what each identifier is believed to hold.
package javascript

// SymbolKind is the analyzer's current belief about the value an identifier refers to.
type SymbolKind int

const (
	// KindRegex marks identifiers holding a regular expression (or RegExp.prototype).
	KindRegex SymbolKind = iota + 1
	// KindProcessHandle marks identifiers obtained from the process execution module.
	KindProcessHandle
)

func (k SymbolKind) String() string {
	switch k {
	case KindRegex:
		return "regex"
	case KindProcessHandle:
		return "process_handle"
	default:
		return "unknown"
	}
}

// SymbolTable maps identifier names to their inferred kind.
//
// The table is scope-unaware: one namespace per file, and every write replaces the
// previous entry. A same-named variable in another function overwrites tracked state.
//
// A SymbolTable is owned by exactly one walk and is not safe for concurrent use.
type SymbolTable struct {
	kinds map[string]SymbolKind
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{kinds: make(map[string]SymbolKind)}
}

// Record inserts or overwrites the kind for name.
func (t *SymbolTable) Record(name string, kind SymbolKind) {
	if name == "" {
		return
	}
	t.kinds[name] = kind
}

// Lookup returns the kind recorded for name, if any.
func (t *SymbolTable) Lookup(name string) (SymbolKind, bool) {
	kind, ok := t.kinds[name]
	return kind, ok
}

// Len returns the number of tracked identifiers.
func (t *SymbolTable) Len() int {
	return len(t.kinds)
}
