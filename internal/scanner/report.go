package scanner

import (
	"time"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
)

// File is an in-memory input, e.g. a blob read from a git revision.
type File struct {
	Path    string
	Content []byte
}

// FileResult records what happened to one input.
type FileResult struct {
	Path    string `json:"path"`
	Dialect string `json:"dialect"`
	// Parsed is false when the grammar rejected the file or it was never analyzed.
	Parsed bool `json:"parsed"`
	// Fallback marks files whose findings came from the text scanner.
	Fallback bool `json:"fallback,omitempty"`
	// Cached marks files whose analysis was shared with another file of identical content.
	Cached   bool   `json:"cached,omitempty"`
	Bytes    int    `json:"bytes"`
	Findings int    `json:"findings"`
	Error    string `json:"error,omitempty"`
}

// Report is the outcome of one scan.
type Report struct {
	ScanID    string               `json:"scan_id"`
	StartedAt time.Time            `json:"started_at"`
	Duration  time.Duration        `json:"duration_ns"`
	Files     []FileResult         `json:"files"`
	Findings  []javascript.Finding `json:"findings"`
}

// Failed returns the files that could not be analyzed.
func (r *Report) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Error != "" {
			failed = append(failed, f)
		}
	}
	return failed
}

// Unparsed returns the files the grammar rejected, whether or not a fallback ran.
func (r *Report) Unparsed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Error == "" && !f.Parsed {
			out = append(out, f)
		}
	}
	return out
}
