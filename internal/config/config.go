// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/jsguard/internal/analysis/static/javascript"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Analyzer() AnalyzerConfig
	Scan() ScanConfig
	Report() ReportConfig
	Store() StoreConfig

	// Setters used by CLI flags that override file values.
	SetScanConcurrency(int)
	SetReportFormat(string)
	SetReportOutput(string)
	SetReportMinSeverity(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	AnalyzerCfg AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`
	ScanCfg     ScanConfig     `mapstructure:"scan" yaml:"scan"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
	StoreCfg    StoreConfig    `mapstructure:"store" yaml:"store"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Analyzer() AnalyzerConfig { return c.AnalyzerCfg }
func (c *Config) Scan() ScanConfig         { return c.ScanCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }
func (c *Config) Store() StoreConfig       { return c.StoreCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetScanConcurrency(n int)      { c.ScanCfg.Concurrency = n }
func (c *Config) SetReportFormat(f string)      { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(o string)      { c.ReportCfg.Output = o }
func (c *Config) SetReportMinSeverity(s string) { c.ReportCfg.MinSeverity = s }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// AnalyzerConfig tunes the AST rules.
type AnalyzerConfig struct {
	// FlagBareProcessCalls reports direct calls of destructured process handles.
	FlagBareProcessCalls bool `mapstructure:"flag_bare_process_calls" yaml:"flag_bare_process_calls"`
	// TextFallback runs the line scanner on files that fail to parse.
	TextFallback bool `mapstructure:"text_fallback" yaml:"text_fallback"`
}

// ScanConfig controls file discovery and the worker pool.
type ScanConfig struct {
	Concurrency  int           `mapstructure:"concurrency" yaml:"concurrency"`
	MaxFileBytes int64         `mapstructure:"max_file_bytes" yaml:"max_file_bytes"`
	Include      []string      `mapstructure:"include" yaml:"include"`
	Exclude      []string      `mapstructure:"exclude" yaml:"exclude"`
	SkipDirs     []string      `mapstructure:"skip_dirs" yaml:"skip_dirs"`
	Extensions   []string      `mapstructure:"extensions" yaml:"extensions"`
	FileTimeout  time.Duration `mapstructure:"file_timeout" yaml:"file_timeout"`
	Decompress   bool          `mapstructure:"decompress" yaml:"decompress"`
}

// ReportConfig selects the output format and filtering.
type ReportConfig struct {
	Format      string `mapstructure:"format" yaml:"format"`
	Output      string `mapstructure:"output" yaml:"output"`
	MinSeverity string `mapstructure:"min_severity" yaml:"min_severity"`
	// Top limits the per-severity listing in text output. Zero means unlimited.
	Top int `mapstructure:"top" yaml:"top"`
}

// StoreConfig holds the scan history database connection details.
type StoreConfig struct {
	DSN      string `mapstructure:"dsn" yaml:"dsn"`
	MaxConns int32  `mapstructure:"max_conns" yaml:"max_conns"`
}

// Enabled reports whether persistence is configured.
func (s StoreConfig) Enabled() bool { return s.DSN != "" }

// knownFormats mirrors the reporters the reporting package can build.
var knownFormats = map[string]bool{"text": true, "json": true, "sarif": true, "checkstyle": true}

// NewDefaultConfig creates a configuration populated with defaults only.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "jsguard")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Analyzer --
	v.SetDefault("analyzer.flag_bare_process_calls", false)
	v.SetDefault("analyzer.text_fallback", true)

	// -- Scan --
	v.SetDefault("scan.concurrency", runtime.NumCPU())
	v.SetDefault("scan.max_file_bytes", 5*1024*1024)
	v.SetDefault("scan.include", []string{})
	v.SetDefault("scan.exclude", []string{})
	v.SetDefault("scan.skip_dirs", []string{"node_modules"})
	v.SetDefault("scan.extensions", []string{".js", ".mjs", ".cjs", ".jsx", ".ts", ".tsx"})
	v.SetDefault("scan.file_timeout", "30s")
	v.SetDefault("scan.decompress", false)

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
	v.SetDefault("report.min_severity", "info")
	v.SetDefault("report.top", 0)

	// -- Store --
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.max_conns", 4)
}

// NewConfigFromViper unmarshals, normalizes and validates the configuration held by v.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The DSN usually carries a password; keep it out of config files.
	if err := v.BindEnv("store.dsn", "JSGUARD_STORE_DSN"); err != nil {
		return nil, fmt.Errorf("binding store.dsn: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// normalize expands home-relative paths and canonicalizes list values.
func (c *Config) normalize() error {
	var err error
	if c.LoggerCfg.LogFile, err = homedir.Expand(c.LoggerCfg.LogFile); err != nil {
		return fmt.Errorf("expanding logger.log_file: %w", err)
	}
	if c.ReportCfg.Output, err = homedir.Expand(c.ReportCfg.Output); err != nil {
		return fmt.Errorf("expanding report.output: %w", err)
	}

	for i, ext := range c.ScanCfg.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.ScanCfg.Extensions[i] = ext
	}
	c.ReportCfg.Format = strings.ToLower(strings.TrimSpace(c.ReportCfg.Format))
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	var errs []error

	if c.ScanCfg.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("scan.concurrency must be a positive integer"))
	}
	if c.ScanCfg.MaxFileBytes <= 0 {
		errs = append(errs, fmt.Errorf("scan.max_file_bytes must be a positive integer"))
	}
	if c.ScanCfg.FileTimeout < 0 {
		errs = append(errs, fmt.Errorf("scan.file_timeout must not be negative"))
	}
	if len(c.ScanCfg.Extensions) == 0 {
		errs = append(errs, fmt.Errorf("scan.extensions must list at least one suffix"))
	}
	if !knownFormats[c.ReportCfg.Format] {
		errs = append(errs, fmt.Errorf("report.format %q is not one of text, json, sarif, checkstyle", c.ReportCfg.Format))
	}
	if _, err := javascript.ParseSeverity(c.ReportCfg.MinSeverity); err != nil {
		errs = append(errs, fmt.Errorf("report.min_severity: %w", err))
	}
	if c.ReportCfg.Top < 0 {
		errs = append(errs, fmt.Errorf("report.top must not be negative"))
	}
	if c.StoreCfg.Enabled() && c.StoreCfg.MaxConns <= 0 {
		errs = append(errs, fmt.Errorf("store.max_conns must be a positive integer"))
	}
	return errors.Join(errs...)
}

// WriteDefault writes a YAML file with every default value to path.
// An existing file is never overwritten.
func WriteDefault(path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expanding %s: %w", path, err)
	}

	data, err := yaml.Marshal(NewDefaultConfig())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(expanded, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing config file: %w", err)
	}
	return f.Close()
}
