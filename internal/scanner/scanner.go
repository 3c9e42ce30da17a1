// Package scanner runs the JavaScript analyzer over file trees with a bounded worker pool.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/analysis/static/textscan"
)

// Config controls discovery and analysis.
type Config struct {
	Concurrency  int
	MaxFileBytes int64
	Include      []string
	Exclude      []string
	SkipDirs     []string
	Extensions   []string
	// FileTimeout bounds the analysis of one file. Zero disables it.
	FileTimeout  time.Duration
	TextFallback bool
	Decompress   bool
}

// Scanner analyzes many files concurrently. Each file gets its own symbol table;
// nothing but the result cache is shared between files.
type Scanner struct {
	logger   *zap.Logger
	cfg      Config
	analyzer *javascript.Analyzer
	filter   *filter
}

// New validates cfg and creates a Scanner.
func New(logger *zap.Logger, analyzer *javascript.Analyzer, cfg Config) (*Scanner, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.MaxFileBytes <= 0 {
		return nil, fmt.Errorf("max file bytes must be positive, got %d", cfg.MaxFileBytes)
	}
	f, err := newFilter(cfg)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		logger:   logger.Named("scanner"),
		cfg:      cfg,
		analyzer: analyzer,
		filter:   f,
	}, nil
}

// Accept reports whether a slash separated relative path would be analyzed by a
// directory scan: no skipped or hidden directory on the way, and the extension and
// glob filters pass.
func (s *Scanner) Accept(rel string) bool {
	dirs := strings.Split(path.Dir(rel), "/")
	for _, dir := range dirs {
		if dir != "." && s.filter.skipDir(dir) {
			return false
		}
	}
	return s.filter.accept(rel)
}

// job is one unit of work for the pool. Exactly one of load or content is set.
type job struct {
	path    string
	load    func() ([]byte, error)
	content []byte
}

// Scan discovers files under paths and analyzes them.
func (s *Scanner) Scan(ctx context.Context, paths []string) (*Report, error) {
	targets, err := s.filter.discover(paths)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Discovered files", zap.Int("count", len(targets)))

	jobs := make([]job, len(targets))
	for i, t := range targets {
		path := t.path
		jobs[i] = job{path: path, load: func() ([]byte, error) { return s.readFile(path) }}
	}
	return s.run(ctx, jobs)
}

// ScanFiles analyzes in-memory files. Files over the size limit are reported as failed.
func (s *Scanner) ScanFiles(ctx context.Context, files []File) (*Report, error) {
	if len(files) == 0 {
		return nil, ErrNoInputs
	}
	jobs := make([]job, len(files))
	for i, f := range files {
		jobs[i] = job{path: f.Path, content: f.Content}
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].path < jobs[j].path })
	return s.run(ctx, jobs)
}

func (s *Scanner) run(ctx context.Context, jobs []job) (*Report, error) {
	report := &Report{
		ScanID:    uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Files:     make([]FileResult, len(jobs)),
		Findings:  []javascript.Finding{},
	}
	perFile := make([][]javascript.Finding, len(jobs))
	cache := newResultCache()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, findings, err := s.analyzeJob(gctx, cache, jobs[i])
			if err != nil {
				return err
			}
			report.Files[i] = res
			perFile[i] = findings
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan aborted: %w", err)
	}

	for _, findings := range perFile {
		report.Findings = append(report.Findings, findings...)
	}
	report.Duration = time.Since(report.StartedAt)

	s.logger.Info("Scan completed",
		zap.String("scan_id", report.ScanID),
		zap.Int("files", len(report.Files)),
		zap.Int("findings", len(report.Findings)),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// analyzeJob returns the result for one file. Per-file problems are recorded on the
// result; only cancellation of the whole scan is returned as an error.
func (s *Scanner) analyzeJob(ctx context.Context, cache *resultCache, j job) (FileResult, []javascript.Finding, error) {
	name, encoding := j.path, ""
	if s.cfg.Decompress {
		name, encoding = splitCompressed(j.path)
	}
	dialect := javascript.DialectFor(name)
	res := FileResult{Path: j.path, Dialect: dialect.String()}

	content := j.content
	if j.load != nil {
		var err error
		if content, err = j.load(); err != nil {
			s.logger.Warn("Skipping unreadable file", zap.String("path", j.path), zap.Error(err))
			res.Error = err.Error()
			return res, nil, nil
		}
	} else if encoding != "" {
		decoded, err := readAll(bytes.NewReader(content), encoding, s.cfg.MaxFileBytes)
		if err != nil {
			res.Error = err.Error()
			return res, nil, nil
		}
		content = decoded
	} else if int64(len(content)) > s.cfg.MaxFileBytes {
		res.Error = ErrTooLarge.Error()
		return res, nil, nil
	}
	res.Bytes = len(content)

	out, shared, err := cache.get(cacheKey(dialect, content), func() (outcome, error) {
		return s.analyze(ctx, name, dialect, content)
	})
	if err != nil {
		if ctx.Err() != nil {
			return res, nil, ctx.Err()
		}
		// Only the per-file deadline is left.
		s.logger.Warn("Analysis timed out", zap.String("path", j.path), zap.Duration("timeout", s.cfg.FileTimeout))
		res.Error = "analysis timed out"
		return res, nil, nil
	}

	res.Parsed = out.parsed
	res.Fallback = out.fallback
	res.Cached = shared
	res.Findings = len(out.findings)
	return res, relabel(out.findings, j.path), nil
}

// analyze runs the AST analysis and, if the file does not parse, the text fallback.
func (s *Scanner) analyze(ctx context.Context, name string, dialect javascript.Dialect, content []byte) (outcome, error) {
	if s.cfg.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.FileTimeout)
		defer cancel()
	}

	result, err := s.analyzer.Inspect(ctx, name, content)
	if err != nil {
		return outcome{}, err
	}
	if result.Parsed {
		return outcome{parsed: true, findings: result.Findings}, nil
	}

	s.logger.Debug("AST analysis skipped; file did not parse",
		zap.String("path", name),
		zap.Stringer("dialect", dialect),
		zap.Bool("text_fallback", s.cfg.TextFallback),
	)
	if !s.cfg.TextFallback {
		return outcome{findings: []javascript.Finding{}}, nil
	}
	return outcome{fallback: true, findings: textscan.Scan(name, content)}, nil
}

// readFile reads a file from disk, enforcing the size limit before and after decoding.
func (s *Scanner) readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	encoding := ""
	if s.cfg.Decompress {
		_, encoding = splitCompressed(path)
	}
	if encoding == "" && info.Size() > s.cfg.MaxFileBytes {
		return nil, ErrTooLarge
	}

	data, err := readAll(f, encoding, s.cfg.MaxFileBytes)
	if err != nil && !errors.Is(err, ErrTooLarge) {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, err
}
