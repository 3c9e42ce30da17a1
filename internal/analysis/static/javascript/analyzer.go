// Filename: javascript/analyzer.go
// Entry point of the AST security analysis: parse a file with the grammar its
// suffix selects, then run a single security walk over the tree.
package javascript

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
)

// Options tune the analysis rules.
type Options struct {
	// FlagBareProcessCalls reports direct calls of identifiers that hold a process
	// handle, e.g. `const {exec} = require('child_process'); exec(cmd)`.
	FlagBareProcessCalls bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithOptions replaces the analyzer's rule options.
func WithOptions(opts Options) Option {
	return func(a *Analyzer) {
		a.opts = opts
	}
}

// Result is the outcome of inspecting one file.
type Result struct {
	Dialect Dialect
	// Parsed is false when the grammar reported a syntax error. Findings is empty then.
	Parsed         bool
	Findings       []Finding
	SymbolsTracked int
}

// Analyzer runs the security walk over JavaScript and TypeScript sources.
// It holds no per-file state and is safe for concurrent use.
type Analyzer struct {
	logger *zap.Logger
	opts   Options
}

// NewAnalyzer creates a new static analyzer.
func NewAnalyzer(logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		logger: logger.Named("js_analyzer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze returns the findings for one file in detection order. A file that does not
// parse yields no findings; it never fails.
func (a *Analyzer) Analyze(filename string, source []byte) []Finding {
	res, _ := a.Inspect(context.Background(), filename, source)
	return res.Findings
}

// Inspect is Analyze with parse status and cancellation. The only error it returns
// is the context's.
func (a *Analyzer) Inspect(ctx context.Context, filename string, source []byte) (Result, error) {
	dialect := DialectFor(filename)
	res := Result{Dialect: dialect, Findings: []Finding{}}

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("analyzing %s: %w", filename, err)
	}
	if len(source) == 0 {
		res.Parsed = true
		return res, nil
	}

	a.logger.Debug("Starting analysis",
		zap.String("filename", filename),
		zap.Stringer("dialect", dialect),
		zap.Int("size_bytes", len(source)),
	)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(dialect.language())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("parsing %s: %w", filename, ctxErr)
		}
		a.logger.Warn("Parser failed", zap.String("filename", filename), zap.Error(err))
		return res, nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		a.logger.Debug("Syntax errors detected; skipping AST rules", zap.String("filename", filename))
		return res, nil
	}

	walker := newASTWalker(a.logger, filename, source, a.opts)
	walker.Walk(root)

	res.Parsed = true
	res.Findings = walker.Findings()
	res.SymbolsTracked = walker.symbols.Len()

	if len(res.Findings) > 0 {
		a.logger.Info("Analysis completed with findings",
			zap.String("filename", filename),
			zap.Int("findings_count", len(res.Findings)),
			zap.Int("symbols_tracked", res.SymbolsTracked),
		)
	}
	return res, nil
}
