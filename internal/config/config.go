package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	WatchRoot           string        `mapstructure:"watch_root"`
	DebounceWindow      time.Duration `mapstructure:"debounce_window"`
	MaxRetries          int           `mapstructure:"max_retries"`
	RetryBackoff        time.Duration `mapstructure:"retry_backoff"`
	HealthCheckInterval time.Duration `mapstructure:"health_check_interval"`
	CommandTimeout      time.Duration `mapstructure:"command_timeout"`
	GracePeriod         time.Duration `mapstructure:"grace_period"`
	SilentMode          bool          `mapstructure:"silent_mode"`
	IgnorePatterns      []string      `mapstructure:"ignore_patterns"`
	BufferSize          int           `mapstructure:"buffer_size"`
	DaemonPort          int           `mapstructure:"daemon_port"`
	DBPath              string        `mapstructure:"db_path"`
	LogFile             string        `mapstructure:"log_file"`
	LogMaxSizeMB        int           `mapstructure:"log_max_size_mb"`
}

var Default = Config{
	WatchRoot:           ".",
	DebounceWindow:      5 * time.Second,
	MaxRetries:          3,
	RetryBackoff:        2 * time.Second,
	HealthCheckInterval: 300 * time.Second,
	CommandTimeout:      60 * time.Second,
	GracePeriod:         10 * time.Second,
	IgnorePatterns:      []string{".git", "*.log", "*.tmp", "*.swp"},
	BufferSize:          100,
	DaemonPort:          9310,
	DBPath:              "gitpulse.db",
	LogMaxSizeMB:        10,
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home dir: %w", err)
	}

	configDir := filepath.Join(home, ".gitpulse")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config dir: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)

	viper.SetDefault("watch_root", Default.WatchRoot)
	viper.SetDefault("debounce_window", Default.DebounceWindow)
	viper.SetDefault("max_retries", Default.MaxRetries)
	viper.SetDefault("retry_backoff", Default.RetryBackoff)
	viper.SetDefault("health_check_interval", Default.HealthCheckInterval)
	viper.SetDefault("command_timeout", Default.CommandTimeout)
	viper.SetDefault("grace_period", Default.GracePeriod)
	viper.SetDefault("silent_mode", Default.SilentMode)
	viper.SetDefault("ignore_patterns", Default.IgnorePatterns)
	viper.SetDefault("buffer_size", Default.BufferSize)
	viper.SetDefault("daemon_port", Default.DaemonPort)
	viper.SetDefault("db_path", filepath.Join(configDir, Default.DBPath))
	viper.SetDefault("log_file", "")
	viper.SetDefault("log_max_size_mb", Default.LogMaxSizeMB)

	viper.SetEnvPrefix("GITPULSE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(err, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the invariants the engine relies on. The config is
// immutable after startup; a bad value here aborts before anything runs.
func (c *Config) Validate() error {
	info, err := os.Stat(c.WatchRoot)
	if err != nil {
		return fmt.Errorf("watch root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch root is not a directory: %s", c.WatchRoot)
	}

	if c.DebounceWindow <= 0 {
		return fmt.Errorf("debounce_window must be positive, got %s", c.DebounceWindow)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry_backoff must not be negative, got %s", c.RetryBackoff)
	}
	if c.HealthCheckInterval <= 0 {
		return fmt.Errorf("health_check_interval must be positive, got %s", c.HealthCheckInterval)
	}
	if c.CommandTimeout <= 0 {
		return fmt.Errorf("command_timeout must be positive, got %s", c.CommandTimeout)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be at least 1, got %d", c.BufferSize)
	}

	return nil
}
