// File: cmd/cmd_test.go
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
	"github.com/xkilldash9x/jsguard/internal/config"
	"github.com/xkilldash9x/jsguard/internal/scanner"
	"github.com/xkilldash9x/jsguard/internal/store"
)

// --- Mocks ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SaveReport(ctx context.Context, report *scanner.Report) error {
	return m.Called(ctx, report).Error(0)
}

func (m *mockStore) FindingsByScanID(ctx context.Context, scanID string) ([]javascript.Finding, error) {
	args := m.Called(ctx, scanID)
	findings, _ := args.Get(0).([]javascript.Finding)
	return findings, args.Error(1)
}

func (m *mockStore) RecentScans(ctx context.Context, limit int) ([]store.ScanSummary, error) {
	args := m.Called(ctx, limit)
	scans, _ := args.Get(0).([]store.ScanSummary)
	return scans, args.Error(1)
}

type mockStoreProvider struct {
	store   historyStore
	err     error
	cleaned bool
}

func (p *mockStoreProvider) Create(ctx context.Context, cfg config.StoreConfig) (historyStore, func(), error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.store, func() { p.cleaned = true }, nil
}

// --- Helpers ---

// executeCommand runs a fresh command tree and returns what it wrote to stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("JSGUARD_STORE_DSN", "")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.ScanCfg.Concurrency = 2
	return cfg
}

// --- Root command ---

func TestGetConfigFromContext(t *testing.T) {
	_, err := getConfigFromContext(context.Background())
	assert.Error(t, err)

	cfg := config.NewDefaultConfig()
	got, err := getConfigFromContext(context.WithValue(context.Background(), configKey, cfg))
	require.NoError(t, err)
	assert.Same(t, cfg, got)
}

func TestVersionCommand(t *testing.T) {
	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "jsguard "+Version)
}

func TestInvalidConfigFileFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("report:\n  format: html\n"), 0o644))

	_, err := executeCommand(t, "--config", cfgPath, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report.format")
}

// --- scan ---

func TestScanCommandText(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"src/app.js":          "const x = input;\neval(x);\n",
		"src/clean.ts":        "export const a: number = 1;\n",
		"node_modules/dep.js": "eval(y);\n",
	})

	out, err := executeCommand(t, "scan", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "2 files, 1 findings")
	assert.Contains(t, out, "CRITICAL (1)")
	assert.Contains(t, out, "eval_usage")
	assert.NotContains(t, out, "dep.js")
}

func TestScanCommandJSONToFile(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.js": "new Function('return 1')();\n"})
	outPath := filepath.Join(t.TempDir(), "report.json")

	out, err := executeCommand(t, "scan", "--format", "json", "--output", outPath, dir)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"issue_type": "dynamic_function"`)
}

func TestScanCommandMinSeverity(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.js": "eval(a);\nnew Function(b);\n"})

	out, err := executeCommand(t, "scan", "--min-severity", "critical", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "eval_usage")
	assert.NotContains(t, out, "dynamic_function")
}

func TestScanCommandFailOn(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.js": "new Function(b);\n"})

	_, err := executeCommand(t, "scan", "--fail-on", "warning", dir)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, findingsExitCode, exitErr.Code)

	_, err = executeCommand(t, "scan", "--fail-on", "critical", dir)
	assert.NoError(t, err)

	_, err = executeCommand(t, "scan", "--fail-on", "fatal", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--fail-on")
}

func TestScanCommandFailOnIgnoresMinSeverity(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.js": "new Function(b);\n"})

	_, err := executeCommand(t, "scan", "--min-severity", "critical", "--fail-on", "warning", dir)
	var exitErr *ExitError
	assert.ErrorAs(t, err, &exitErr)
}

func TestScanCommandMissingPath(t *testing.T) {
	_, err := executeCommand(t, "scan", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading input")
}

func TestScanCommandStoreRequiresDSN(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.js": "eval(a);\n"})
	_, err := executeCommand(t, "scan", "--store", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn")
}

func TestRunScanSavesUnfilteredReport(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.js": "eval(a);\nnew Function(b);\n"})
	cfg := testConfig(t)
	cfg.StoreCfg.DSN = "postgres://localhost/jsguard"
	cfg.ReportCfg.MinSeverity = "critical"

	db := new(mockStore)
	db.On("SaveReport", mock.Anything, mock.MatchedBy(func(r *scanner.Report) bool {
		return len(r.Findings) == 2 && r.ScanID != ""
	})).Return(nil).Once()
	provider := &mockStoreProvider{store: db}

	var out bytes.Buffer
	err := runScan(context.Background(), cfg, &out, []string{dir}, scanOptions{save: true}, provider)
	require.NoError(t, err)

	db.AssertExpectations(t)
	assert.True(t, provider.cleaned)
	assert.Contains(t, out.String(), "1 findings")
}

func TestRunScanStoreErrors(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.js": "eval(a);\n"})
	cfg := testConfig(t)
	cfg.StoreCfg.DSN = "postgres://localhost/jsguard"

	t.Run("connect fails", func(t *testing.T) {
		provider := &mockStoreProvider{err: errors.New("connection refused")}
		err := runScan(context.Background(), cfg, &bytes.Buffer{}, []string{dir}, scanOptions{save: true}, provider)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to scan history")
	})

	t.Run("save fails", func(t *testing.T) {
		db := new(mockStore)
		db.On("SaveReport", mock.Anything, mock.Anything).Return(errors.New("disk full"))
		provider := &mockStoreProvider{store: db}

		err := runScan(context.Background(), cfg, &bytes.Buffer{}, []string{dir}, scanOptions{save: true}, provider)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.True(t, provider.cleaned)
	})
}

func TestRunScanCanceled(t *testing.T) {
	dir := writeTree(t, map[string]string{"a.js": "eval(a);\n"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runScan(ctx, testConfig(t), &bytes.Buffer{}, []string{dir}, scanOptions{}, &mockStoreProvider{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScannerConfigMapping(t *testing.T) {
	cfg := testConfig(t)
	cfg.ScanCfg.Include = []string{"src/**"}
	cfg.ScanCfg.FileTimeout = 3 * time.Second
	cfg.AnalyzerCfg.TextFallback = false

	sc := scannerConfig(cfg)
	assert.Equal(t, 2, sc.Concurrency)
	assert.Equal(t, []string{"src/**"}, sc.Include)
	assert.Equal(t, 3*time.Second, sc.FileTimeout)
	assert.False(t, sc.TextFallback)
	assert.Equal(t, cfg.ScanCfg.Extensions, sc.Extensions)
}

func TestAnalyzerOptionsMapping(t *testing.T) {
	cfg := testConfig(t)
	assert.False(t, analyzerOptions(cfg).FlagBareProcessCalls)

	cfg.AnalyzerCfg.FlagBareProcessCalls = true
	assert.True(t, analyzerOptions(cfg).FlagBareProcessCalls)
}

func TestScanCommandBareCalls(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.js": "const { exec } = require('child_process');\nexec(cmd);\n",
	})

	out, err := executeCommand(t, "scan", "--format", "json", dir)
	require.NoError(t, err)
	assert.NotContains(t, out, "command_execution")

	out, err = executeCommand(t, "scan", "--format", "json", "--bare-calls", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "command_execution")
}

func TestScanHelpDescribesRules(t *testing.T) {
	cmd := newScanCmd(&mockStoreProvider{})
	assert.Contains(t, cmd.Long, "command execution through the child process module")
	assert.Contains(t, cmd.Long, "regex .exec is not reported")
	assert.NotContains(t, cmd.Long, "RegExp.prototype.exec usage")
}

// --- inspect ---

func TestInspectCommand(t *testing.T) {
	dir := writeTree(t, map[string]string{
		"a.ts": "import { exec } from 'child_process';\nconst cp = require('child_process');\ncp.exec(cmd);\n",
	})

	out, err := executeCommand(t, "inspect", filepath.Join(dir, "a.ts"))
	require.NoError(t, err)
	assert.Contains(t, out, "typescript")
	assert.Contains(t, out, "parsed:")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "command_execution")
	assert.Contains(t, out, "child_process_import")
}

func TestWriteInspectionGrammar(t *testing.T) {
	tests := []struct {
		dialect javascript.Dialect
		grammar string
	}{
		{javascript.DialectTSX, "typescript"},
		{javascript.DialectTypeScript, "typescript"},
		{javascript.DialectJSX, "javascript"},
		{javascript.DialectCommonJS, "javascript"},
	}
	for _, tt := range tests {
		t.Run(tt.dialect.String(), func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, writeInspection(&out, "f", javascript.Result{Dialect: tt.dialect, Parsed: true}))
			assert.Regexp(t, `grammar:\s+`+tt.grammar+`\n`, out.String())
		})
	}
}

func TestInspectCommandMissingFile(t *testing.T) {
	_, err := executeCommand(t, "inspect", filepath.Join(t.TempDir(), "nope.js"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// --- config init ---

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "jsguard.yaml")

	out, err := executeCommand(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_file_bytes")

	// The written file loads as a valid config.
	_, err = executeCommand(t, "--config", path, "version")
	assert.NoError(t, err)

	_, err = executeCommand(t, "config", "init", path)
	assert.ErrorIs(t, err, os.ErrExist)
}

// --- history ---

func TestRunHistoryList(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreCfg.DSN = "postgres://localhost/jsguard"

	db := new(mockStore)
	db.On("RecentScans", mock.Anything, 5).Return([]store.ScanSummary{
		{ID: "9b2d", StartedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), Duration: 1500 * time.Millisecond, Files: 12, Findings: 3},
	}, nil)
	provider := &mockStoreProvider{store: db}

	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), cfg, &out, "", 5, provider))
	assert.Contains(t, out.String(), "SCAN ID")
	assert.Contains(t, out.String(), "9b2d")
	assert.Contains(t, out.String(), "1.5s")
	assert.True(t, provider.cleaned)
}

func TestRunHistoryScan(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreCfg.DSN = "postgres://localhost/jsguard"
	cfg.ReportCfg.Format = "json"

	db := new(mockStore)
	db.On("FindingsByScanID", mock.Anything, "9b2d").Return([]javascript.Finding{{
		Location:    javascript.Location{File: "a.js", Line: 1, Column: 1},
		IssueType:   javascript.IssueEvalUsage,
		Description: "eval",
		Severity:    javascript.SeverityCritical,
		Snippet:     "eval(a)",
	}}, nil)

	var out bytes.Buffer
	require.NoError(t, runHistory(context.Background(), cfg, &out, "9b2d", 20, &mockStoreProvider{store: db}))
	assert.Contains(t, out.String(), `"scan_id": "9b2d"`)
	assert.Contains(t, out.String(), "eval_usage")
}

func TestRunHistoryErrors(t *testing.T) {
	cfg := testConfig(t)

	err := runHistory(context.Background(), cfg, &bytes.Buffer{}, "", 5, &mockStoreProvider{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.dsn")

	cfg.StoreCfg.DSN = "postgres://localhost/jsguard"
	err = runHistory(context.Background(), cfg, &bytes.Buffer{}, "", 0, &mockStoreProvider{})
	assert.ErrorContains(t, err, "--limit")

	db := new(mockStore)
	db.On("RecentScans", mock.Anything, 5).Return(nil, errors.New("relation \"scans\" does not exist"))
	err = runHistory(context.Background(), cfg, &bytes.Buffer{}, "", 5, &mockStoreProvider{store: db})
	assert.ErrorContains(t, err, "failed to list scans")

	db = new(mockStore)
	db.On("FindingsByScanID", mock.Anything, "x").Return(nil, errors.New("invalid input syntax for type uuid"))
	err = runHistory(context.Background(), cfg, &bytes.Buffer{}, "x", 5, &mockStoreProvider{store: db})
	assert.ErrorContains(t, err, "failed to load scan x")
}
