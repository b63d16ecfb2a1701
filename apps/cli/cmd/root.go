package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/hitreport/packages/core/config"
	"github.com/abdul-hamid-achik/hitreport/packages/core/env"
	"github.com/abdul-hamid-achik/hitreport/packages/output"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag   string
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "hitreport",
	Short: "Test execution reports with soft assertions and evidence.",
	Long: `hitreport correlates test lifecycle events with report entries, collects
soft assertion failures, attaches evidence and writes console, JSON, JUnit,
HTML and TAP reports. Runs can be kept in a SQLite history and rendered again.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries the process exit code for a failed command
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// exitCode maps err to the process exit code
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return ExitConfigError
	}
	return ExitUsageError
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		output.FormatError(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Config file (default: search the current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(logLevelFlag))); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// loadConfig loads the config file, exports .env files next to it, applies
// HITREPORT_ environment overrides and resolves templates.
func loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	dir := "."
	if configFlag != "" {
		dir = filepath.Dir(configFlag)
	}

	loaded, err := env.LoadDotEnvFiles(dir)
	if err != nil {
		return nil, "", withExitCode(ExitConfigError, fmt.Errorf("failed to load .env files: %w", err))
	}
	logger := newLogger(cmd)
	for _, f := range loaded {
		logger.Debug("loaded env file", "path", f)
	}

	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, "", withExitCode(ExitConfigError, err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, "", withExitCode(ExitConfigError, err)
	}

	resolver := env.NewResolver()
	resolver.SetWarnFunc(func(format string, args ...any) {
		logger.Warn(fmt.Sprintf(format, args...))
	})
	cfg.ResolveTemplates(resolver)

	source := configFlag
	if source == "" {
		source = "defaults"
		for _, name := range config.ConfigFilenames {
			if _, err := os.Stat(name); err == nil {
				source = name
				break
			}
		}
	}
	return cfg, source, nil
}
