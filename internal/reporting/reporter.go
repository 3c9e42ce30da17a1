// -- internal/reporting/reporter.go --
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xkilldash9x/jsguard/internal/scanner"
)

// ErrUnsupportedFormat is returned by New for unknown output formats.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Formats lists the output formats New understands.
var Formats = []string{"text", "json", "sarif", "checkstyle"}

// Reporter defines the interface for writing scan results to an output.
type Reporter interface {
	// Write processes one scan report.
	Write(report *scanner.Report) error
	// Close finalizes the report and closes any underlying resources (e.g., file handles).
	Close() error
}

// Options tune the reporters.
type Options struct {
	ToolVersion string
	// Top caps the findings listed per severity in text output. Zero lists all.
	Top int
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
// An empty path or "stdout" writes to standard output.
func New(format, outputPath string, opts Options) (Reporter, error) {
	if !isKnownFormat(format) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}
	return NewForWriter(format, writer, opts)
}

// NewForWriter creates a reporter that takes ownership of writer.
func NewForWriter(format string, writer io.WriteCloser, opts Options) (Reporter, error) {
	switch format {
	case "text":
		return NewTextReporter(writer, opts.Top), nil
	case "json":
		return NewJSONReporter(writer), nil
	case "sarif":
		return NewSARIFReporter(writer, opts.ToolVersion), nil
	case "checkstyle":
		return NewCheckstyleReporter(writer, opts.ToolVersion), nil
	default:
		writer.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func isKnownFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
