package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/papapumpkin/lanes/internal/board"
)

// FileName is the per-project config file written by `lanes init`.
const FileName = ".lanes.yaml"

// ServeConfig holds settings for the HTTP adapter.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// WatchConfig holds settings for the board directory watcher.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// Config holds all runtime configuration for a lanes invocation.
// Values are populated from .lanes.yaml, LANES_* env vars, and CLI flags.
type Config struct {
	Root           string      `mapstructure:"root"`
	EntryColumn    string      `mapstructure:"entry_column"`
	TerminalColumn string      `mapstructure:"terminal_column"`
	IDStrategy     string      `mapstructure:"id_strategy"`
	Template       string      `mapstructure:"template"`
	LogLevel       string      `mapstructure:"log_level"`
	LogFormat      string      `mapstructure:"log_format"`
	Events         bool        `mapstructure:"events"`
	Verbose        bool        `mapstructure:"verbose"`
	Serve          ServeConfig `mapstructure:"serve"`
	Watch          WatchConfig `mapstructure:"watch"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags, and validates the
// result.
func Load() (Config, error) {
	viper.SetDefault("root", ".")
	viper.SetDefault("entry_column", "")
	viper.SetDefault("terminal_column", "")
	viper.SetDefault("id_strategy", string(board.IDSequential))
	viper.SetDefault("template", "")
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("log_format", "text")
	viper.SetDefault("events", true)
	viper.SetDefault("verbose", false)
	viper.SetDefault("serve.addr", "127.0.0.1:7391")
	viper.SetDefault("watch.debounce", 100*time.Millisecond)

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values no command could act on.
func (c Config) Validate() error {
	var errs []error
	if _, err := board.ParseIDStrategy(c.IDStrategy); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be >= 0, got %s", c.Watch.Debounce))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Strategy returns the validated id strategy.
func (c Config) Strategy() board.IDStrategy {
	s, _ := board.ParseIDStrategy(c.IDStrategy)
	return s
}

// ConfigureLogger applies the configured level and format to l. Verbose
// forces debug level.
func (c Config) ConfigureLogger(l *log.Logger) error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("config: log_level: %w", err)
	}
	if c.Verbose {
		level = log.DebugLevel
	}
	l.SetLevel(level)
	if strings.EqualFold(c.LogFormat, "json") {
		l.SetFormatter(&log.JSONFormatter{})
	} else {
		l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	}
	return nil
}

// SaveColumnDesignations records the entry and terminal column ids in the
// config file at path, keeping any other settings already there.
func SaveColumnDesignations(path, entry, terminal string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: reading %s: %w", path, err)
		}
	}
	v.Set("entry_column", entry)
	v.Set("terminal_column", terminal)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("config: writing %s: %w", path, err)
	}
	return nil
}
