// File: cmd/jsguard/main_test.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/jsguard/cmd"
)

// resetMocks restores the original function implementations.
func resetMocks() {
	osWriteFile = os.WriteFile
	osExit = os.Exit
	execute = cmd.Execute
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, 0},
		{"canceled", fmt.Errorf("scan aborted: %w", context.Canceled), 0},
		{"findings gate", &cmd.ExitError{Code: 2, Msg: "1 finding(s) at or above warning"}, 2},
		{"wrapped exit error", fmt.Errorf("outer: %w", &cmd.ExitError{Code: 3, Msg: "x"}), 3},
		{"failure", errors.New("boom"), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestHandlePanic(t *testing.T) {
	t.Cleanup(resetMocks)

	t.Run("writes panic log", func(t *testing.T) {
		var written []byte
		var code = -1
		osWriteFile = func(name string, data []byte, perm os.FileMode) error {
			assert.Equal(t, panicLogFile, name)
			written = data
			return nil
		}
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("walker exploded")
		}()

		assert.Equal(t, 1, code)
		assert.Contains(t, string(written), "panic: walker exploded")
		assert.Contains(t, string(written), "goroutine")
	})

	t.Run("log write failure", func(t *testing.T) {
		var code = -1
		osWriteFile = func(string, []byte, os.FileMode) error { return errors.New("read-only fs") }
		osExit = func(c int) { code = c }

		func() {
			defer handlePanic()
			panic("again")
		}()
		assert.Equal(t, 1, code)
	})

	t.Run("no panic", func(t *testing.T) {
		called := false
		osExit = func(int) { called = true }
		func() {
			defer handlePanic()
		}()
		assert.False(t, called)
	})
}

func TestMainExitsWithCommandStatus(t *testing.T) {
	t.Cleanup(resetMocks)

	var code = -1
	osExit = func(c int) { code = c }
	execute = func(ctx context.Context) error {
		require.NotNil(t, ctx)
		return &cmd.ExitError{Code: 2, Msg: "gate"}
	}

	main()
	assert.Equal(t, 2, code)
}
