package config

import (
	"strings"

	"github.com/marmos91/dittouploads/pkg/disk/factory"
	"github.com/marmos91/dittouploads/pkg/uploads"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables, ensuring that all required fields have sensible defaults.
//
// Default strategy:
//   - Zero values (empty strings, 0, false) are replaced with defaults
//   - Explicitly set values are preserved
//   - Nil maps are initialized to empty maps
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyMetricsDefaults(&cfg.Metrics)
	applyDiskDefaults(cfg)
	applyRepositoryDefaults(&cfg.Repository)
	applyUploadsDefaults(&cfg.Uploads)
}

// applyLoggingDefaults sets logging defaults.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent handling
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	// stdout carries command output (file bytes, identifiers)
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyMetricsDefaults sets metrics defaults.
// Metrics go to stderr so they never mix with command output on stdout.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyDiskDefaults declares a filesystem disk named after the default disk
// when no disk is configured at all.
func applyDiskDefaults(cfg *Config) {
	if len(cfg.Disks) > 0 {
		for name, d := range cfg.Disks {
			if d.Filesystem == nil && d.Type == factory.KindFilesystem {
				d.Filesystem = make(map[string]any)
				cfg.Disks[name] = d
			}
		}
		return
	}

	cfg.Disks = map[string]factory.Config{
		uploads.DefaultDiskName: {
			Type: factory.KindFilesystem,
			Filesystem: map[string]any{
				"path": "/tmp/dittouploads",
			},
		},
	}
}

// applyRepositoryDefaults sets repository defaults.
func applyRepositoryDefaults(cfg *RepositoryConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}

	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if cfg.Redis == nil {
		cfg.Redis = make(map[string]any)
	}

	if cfg.Type == "badger" {
		if _, ok := cfg.Badger["path"]; !ok {
			if inMemory, _ := cfg.Badger["in_memory"].(bool); !inMemory {
				cfg.Badger["path"] = "/tmp/dittouploads-repository"
			}
		}
	}
}

// applyUploadsDefaults sets engine defaults.
func applyUploadsDefaults(cfg *UploadsConfig) {
	if cfg.DefaultDisk == "" {
		cfg.DefaultDisk = uploads.DefaultDiskName
	}
	// Viper lowercases map keys, so disk references must match that.
	cfg.DefaultDisk = strings.ToLower(cfg.DefaultDisk)

	if cfg.BatchConcurrency == 0 {
		cfg.BatchConcurrency = uploads.DefaultBatchConcurrency
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
