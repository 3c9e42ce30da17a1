// Filename: javascript/state_test.go
package javascript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbolTable_RecordLookup(t *testing.T) {
	table := NewSymbolTable()

	_, ok := table.Lookup("cp")
	assert.False(t, ok, "unrecorded names have no kind")

	table.Record("cp", KindProcessHandle)
	kind, ok := table.Lookup("cp")
	assert.True(t, ok)
	assert.Equal(t, KindProcessHandle, kind)

	// Last write wins.
	table.Record("cp", KindRegex)
	kind, _ = table.Lookup("cp")
	assert.Equal(t, KindRegex, kind)
	assert.Equal(t, 1, table.Len())
}

func TestSymbolTable_IgnoresEmptyName(t *testing.T) {
	table := NewSymbolTable()
	table.Record("", KindRegex)
	assert.Zero(t, table.Len())
}

func TestSymbolKind_String(t *testing.T) {
	assert.Equal(t, "regex", KindRegex.String())
	assert.Equal(t, "process_handle", KindProcessHandle.String())
	assert.Equal(t, "unknown", SymbolKind(0).String())
}
