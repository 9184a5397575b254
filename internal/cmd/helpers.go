package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rowan/drover/internal/config"
	"github.com/rowan/drover/internal/filelock"
	"github.com/rowan/drover/internal/history"
	"github.com/rowan/drover/internal/logger"
)

// directLockTimeout bounds how long a one-off command waits for a directory
// that another drover process has locked.
const directLockTimeout = 10 * time.Second

// loadConfig loads the configuration honoring the --config persistent flag,
// then merges the logging-related persistent flags over it. Commands that
// carry a --no-history flag get it folded in here as well.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var logLevelPtr *string
	if cmd.Flags().Changed("log-level") {
		logLevel, _ := cmd.Flags().GetString("log-level")
		logLevelPtr = &logLevel
	}

	var colorPtr *string
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		never := "never"
		colorPtr = &never
	}

	var historyPtr *bool
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		enabled := false
		historyPtr = &enabled
	}

	cfg.MergeWithFlags(logLevelPtr, nil, colorPtr, historyPtr)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// consoleLoggerFor builds a command's console logger. --verbose and --quiet
// win over the configured log level; --quiet wins over --verbose.
func consoleLoggerFor(cmd *cobra.Command, cfg *config.Config) *logger.ConsoleLogger {
	level := cfg.LogLevel
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		level = "warn"
	}

	log := logger.NewConsoleLogger(cmd.OutOrStdout(), level)
	if cfg.Color == "never" {
		log.DisableColor()
	}
	return log
}

// historyDBPath resolves the history database location: the configured path
// when set, otherwise the default under the drover home.
func historyDBPath(cfg *config.Config) (string, error) {
	if cfg.History.DBPath != "" {
		return cfg.History.DBPath, nil
	}
	return config.GetHistoryDBPath()
}

// recordDirectRun writes one history row for a one-off (non-plan) command.
// Best effort: history problems are logged at debug and never fail the
// command that did the actual work.
func recordDirectRun(cfg *config.Config, run *history.OperationRun, log *logger.ConsoleLogger) {
	if !cfg.History.Enabled {
		return
	}

	dbPath, err := historyDBPath(cfg)
	if err != nil {
		log.LogDebug(fmt.Sprintf("failed to resolve history database path: %v", err))
		return
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		log.LogDebug(fmt.Sprintf("failed to open history store: %v", err))
		return
	}
	defer store.Close()

	if err := store.RecordRun(context.Background(), run); err != nil {
		log.LogDebug(fmt.Sprintf("failed to record run history: %v", err))
	}
}

// lockDirectory takes the lock guarding dir and returns a release function
// that unlocks and removes the lock file. With --no-lock the release
// function is a no-op.
func lockDirectory(cmd *cobra.Command, dir string) (func(), error) {
	if noLock, _ := cmd.Flags().GetBool("no-lock"); noLock {
		return func() {}, nil
	}

	lock := filelock.NewDirLock(dir)
	if err := lock.LockWithTimeout(directLockTimeout); err != nil {
		if errors.Is(err, filelock.ErrLockTimeout) {
			return nil, fmt.Errorf("directory %s is in use by another drover process: %w", dir, err)
		}
		return nil, err
	}

	return func() {
		lock.Unlock()
		os.Remove(lock.Path())
	}, nil
}

// extensionLabel renders a copy extension filter for history rows and
// summaries.
func extensionLabel(ext *string) string {
	switch {
	case ext == nil:
		return "all"
	case *ext == "":
		return "none"
	default:
		return *ext
	}
}
