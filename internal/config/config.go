package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled enables run history recording
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database (empty = default under drover home)
	DBPath string `yaml:"db_path"`

	// KeepRunsDays is the number of days to keep run history
	KeepRunsDays int `yaml:"keep_runs_days"`
}

// WatchConfig represents watch mode configuration
type WatchConfig struct {
	// Debounce is how long a new file must stay quiet before it is copied
	Debounce time.Duration `yaml:"debounce"`
}

// CopyConfig represents copy operation configuration
type CopyConfig struct {
	// MaxProbes is the maximum number of alternative names tried per collision
	MaxProbes int `yaml:"max_probes"`
}

// Config represents drover configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where logs will be written
	LogDir string `yaml:"log_dir"`

	// Color controls colored console output (auto, always, never)
	Color string `yaml:"color"`

	// DefaultPadding is the zero-pad width used by rename when none is given
	DefaultPadding int `yaml:"default_padding"`

	// DefaultSeparator is the field separator used by list when none is given
	DefaultSeparator string `yaml:"default_separator"`

	// DefaultListMode is the manifest mode used by list (simple, full)
	DefaultListMode string `yaml:"default_list_mode"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`

	// Watch contains watch mode configuration
	Watch WatchConfig `yaml:"watch"`

	// Copy contains copy operation configuration
	Copy CopyConfig `yaml:"copy"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		LogDir:           ".drover/logs",
		Color:            "auto",
		DefaultPadding:   5,
		DefaultSeparator: ",",
		DefaultListMode:  "simple",
		History: HistoryConfig{
			Enabled:      true,
			DBPath:       "", // empty means use drover home
			KeepRunsDays: 90,
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Copy: CopyConfig{
			MaxProbes: 100000,
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing config file is fine, use defaults
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML into a temporary struct to distinguish absent fields
	// from explicit zero values
	type yamlHistory struct {
		Enabled      *bool  `yaml:"enabled"`
		DBPath       string `yaml:"db_path"`
		KeepRunsDays int    `yaml:"keep_runs_days"`
	}
	type yamlConfig struct {
		LogLevel         string      `yaml:"log_level"`
		LogDir           string      `yaml:"log_dir"`
		Color            string      `yaml:"color"`
		DefaultPadding   *int        `yaml:"default_padding"`
		DefaultSeparator string      `yaml:"default_separator"`
		DefaultListMode  string      `yaml:"default_list_mode"`
		History          yamlHistory `yaml:"history"`
		Watch            struct {
			Debounce string `yaml:"debounce"`
		} `yaml:"watch"`
		Copy struct {
			MaxProbes int `yaml:"max_probes"`
		} `yaml:"copy"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Detect which sections the file actually sets, so absent sections
	// keep their defaults instead of being zeroed out
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Start with defaults and override with file values
	cfg := DefaultConfig()

	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogDir != "" {
		cfg.LogDir = yc.LogDir
	}
	if yc.Color != "" {
		cfg.Color = yc.Color
	}
	if yc.DefaultPadding != nil {
		cfg.DefaultPadding = *yc.DefaultPadding
	}
	if yc.DefaultSeparator != "" {
		cfg.DefaultSeparator = yc.DefaultSeparator
	}
	if yc.DefaultListMode != "" {
		cfg.DefaultListMode = yc.DefaultListMode
	}

	if _, ok := rawMap["history"]; ok {
		if yc.History.Enabled != nil {
			cfg.History.Enabled = *yc.History.Enabled
		}
		if yc.History.DBPath != "" {
			cfg.History.DBPath = yc.History.DBPath
		}
		if yc.History.KeepRunsDays != 0 {
			cfg.History.KeepRunsDays = yc.History.KeepRunsDays
		}
	}

	if _, ok := rawMap["watch"]; ok {
		if yc.Watch.Debounce != "" {
			d, err := time.ParseDuration(yc.Watch.Debounce)
			if err != nil {
				return nil, fmt.Errorf("invalid watch.debounce: %w", err)
			}
			cfg.Watch.Debounce = d
		}
	}

	if _, ok := rawMap["copy"]; ok {
		if yc.Copy.MaxProbes != 0 {
			cfg.Copy.MaxProbes = yc.Copy.MaxProbes
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads config from the standard location in a directory
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, ".drover", "config.yaml")
	return LoadConfig(configPath)
}

// MergeWithFlags merges command-line flags into the config.
// Flag values take precedence over config file values.
func (c *Config) MergeWithFlags(logLevel, logDir, color *string, historyEnabled *bool) {
	if logLevel != nil && *logLevel != "" {
		c.LogLevel = *logLevel
	}
	if logDir != nil && *logDir != "" {
		c.LogDir = *logDir
	}
	if color != nil && *color != "" {
		c.Color = *color
	}
	if historyEnabled != nil {
		c.History.Enabled = *historyEnabled
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be trace, debug, info, warn, or error)", c.LogLevel)
	}

	validColors := map[string]bool{
		"auto":   true,
		"always": true,
		"never":  true,
	}
	if !validColors[c.Color] {
		return fmt.Errorf("invalid color mode: %s (must be auto, always, or never)", c.Color)
	}

	validListModes := map[string]bool{
		"simple": true,
		"full":   true,
	}
	if !validListModes[c.DefaultListMode] {
		return fmt.Errorf("invalid default list mode: %s (must be simple or full)", c.DefaultListMode)
	}

	if c.DefaultPadding < 0 {
		return fmt.Errorf("default padding cannot be negative, got %d", c.DefaultPadding)
	}

	if c.DefaultSeparator == "" {
		return fmt.Errorf("default separator cannot be empty")
	}

	if c.History.KeepRunsDays < 0 {
		return fmt.Errorf("history keep_runs_days cannot be negative, got %d", c.History.KeepRunsDays)
	}

	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch debounce cannot be negative, got %v", c.Watch.Debounce)
	}

	if c.Copy.MaxProbes <= 0 {
		return fmt.Errorf("copy max_probes must be positive, got %d", c.Copy.MaxProbes)
	}

	return nil
}
