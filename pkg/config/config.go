package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/dittouploads/pkg/disk/factory"
	"github.com/spf13/viper"
)

// Config represents the complete uploads configuration.
//
// This structure captures all configurable aspects of an uploads deployment:
//   - Logging configuration
//   - Metrics collection
//   - Disks, keyed by logical name (type-specific sections)
//   - The repository holding upload records (type-specific sections)
//   - Engine settings (default disk, path prefix, temporary files)
//
// Configuration sources (in order of precedence):
//  1. Environment variables (DITTOUPLOADS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each disk and repository implementation defines its own configuration type.
// The Config struct contains type-specific sections (e.g., filesystem, s3)
// and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Metrics controls Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Disks maps logical disk names to disk configurations.
	// Uses the factory.Config type directly to avoid duplication.
	// Note: viper lowercases map keys, so disk names are case-insensitive.
	Disks map[string]factory.Config `mapstructure:"disks" yaml:"disks" validate:"required,min=1,dive"`

	// Repository specifies where upload records are persisted
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`

	// Uploads contains engine settings
	Uploads UploadsConfig `mapstructure:"uploads" yaml:"uploads"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr (default), or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on Prometheus metrics collection
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Output is where collected metrics are written when a command exits
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// RepositoryConfig specifies the repository holding upload records.
//
// The Type field determines which implementation is used.
// Only the corresponding type-specific configuration section is used.
type RepositoryConfig struct {
	// Type specifies which repository implementation to use
	// Valid values: memory, badger, redis
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory badger redis"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger,omitempty"`

	// Redis contains Redis-specific configuration
	// Only used when Type = "redis"
	Redis map[string]any `mapstructure:"redis" yaml:"redis,omitempty"`
}

// UploadsConfig contains engine settings.
type UploadsConfig struct {
	// DefaultDisk is the logical disk used when an operation names none.
	// Must be one of the configured disks.
	DefaultDisk string `mapstructure:"default_disk" yaml:"default_disk" validate:"required"`

	// PathPrefix is prepended to every generated storage path
	PathPrefix string `mapstructure:"path_prefix" yaml:"path_prefix"`

	// TempDir is where temporary files are materialized (empty: OS default)
	TempDir string `mapstructure:"temp_dir" yaml:"temp_dir"`

	// BatchConcurrency bounds concurrent uploads of a batch
	BatchConcurrency int `mapstructure:"batch_concurrency" yaml:"batch_concurrency" validate:"gte=0"`

	// Timeout bounds every single command (0 disables the deadline)
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" validate:"gte=0"`

	// BandwidthLimit caps bytes per second written to disks (0 = unlimited)
	BandwidthLimit int64 `mapstructure:"bandwidth_limit" yaml:"bandwidth_limit" validate:"gte=0"`

	// BandwidthBurst is the burst size in bytes (0 = one second of BandwidthLimit)
	BandwidthBurst int64 `mapstructure:"bandwidth_burst" yaml:"bandwidth_burst" validate:"gte=0"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOUPLOADS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Configure viper
	setupViper(v, configPath)

	// Read configuration file if it exists
	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys are the scalar keys that can be set from the environment without a
// config file. Viper only resolves environment variables for keys it knows.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"metrics.enabled",
	"metrics.output",
	"repository.type",
	"uploads.default_disk",
	"uploads.path_prefix",
	"uploads.temp_dir",
	"uploads.batch_concurrency",
	"uploads.timeout",
	"uploads.bandwidth_limit",
	"uploads.bandwidth_burst",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Set up environment variable support
	// Environment variables use DITTOUPLOADS_ prefix and underscores
	// Example: DITTOUPLOADS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOUPLOADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Configure config file search
	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/dittouploads/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml") // Primary format
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittouploads")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittouploads")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}
