// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/jsguard/internal/config"
	"github.com/xkilldash9x/jsguard/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// defaultConfigName is looked up in the working directory when --config is not given.
const defaultConfigName = "jsguard"

// ExitError carries a process exit code other than 1, e.g. when --fail-on trips.
type ExitError struct {
	Code int
	Msg  string
}

func (e *ExitError) Error() string { return e.Msg }

// flagBindings maps command flags to the configuration keys they override.
var flagBindings = map[string]string{
	"log-level":      "logger.level",
	"log-format":     "logger.format",
	"concurrency":    "scan.concurrency",
	"max-file-bytes": "scan.max_file_bytes",
	"include":        "scan.include",
	"exclude":        "scan.exclude",
	"extensions":     "scan.extensions",
	"file-timeout":   "scan.file_timeout",
	"decompress":     "scan.decompress",
	"bare-calls":     "analyzer.flag_bare_process_calls",
	"text-fallback":  "analyzer.text_fallback",
	"format":         "report.format",
	"output":         "report.output",
	"min-severity":   "report.min_severity",
	"top":            "report.top",
}

// NewRootCommand builds a fresh command tree. Every call returns independent flag state.
func NewRootCommand() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "jsguard",
		Short: "jsguard finds dangerous code patterns in JavaScript and TypeScript sources.",
		// Version is set at build time. See cmd/version.go.
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v, cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting jsguard", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./jsguard.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (console, plain, json)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	provider := NewStoreProvider()
	rootCmd.AddCommand(newScanCmd(provider))
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newHistoryCmd(provider))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the command tree with ctx and logs failures. The returned error
// decides the exit code.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file and environment, then binds the flags of
// the executing command on top.
func initializeConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("JSGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults/env vars
	}

	for name, key := range flagBindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding --%s: %w", name, err)
		}
	}
	return nil
}

// getConfigFromContext returns the configuration stored by PersistentPreRunE.
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not found in command context")
	}
	return cfg, nil
}
