package config

import (
	"testing"

	"github.com/marmos91/dittouploads/pkg/disk/factory"
)

func TestApplyDefaults_Empty(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format text, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output stderr, got %q", cfg.Logging.Output)
	}
	if cfg.Metrics.Output != "stderr" {
		t.Errorf("Expected default metrics output stderr, got %q", cfg.Metrics.Output)
	}
	if cfg.Uploads.DefaultDisk != "default" {
		t.Errorf("Expected default disk 'default', got %q", cfg.Uploads.DefaultDisk)
	}

	d, ok := cfg.Disks["default"]
	if !ok {
		t.Fatal("Expected a default disk to be declared")
	}
	if d.Type != factory.KindFilesystem {
		t.Errorf("Expected filesystem default disk, got %q", d.Type)
	}
	if d.Filesystem["path"] != "/tmp/dittouploads" {
		t.Errorf("Unexpected default disk path: %v", d.Filesystem["path"])
	}

	if cfg.Repository.Type != "badger" {
		t.Errorf("Expected default repository badger, got %q", cfg.Repository.Type)
	}
	if cfg.Repository.Badger["path"] != "/tmp/dittouploads-repository" {
		t.Errorf("Unexpected default badger path: %v", cfg.Repository.Badger["path"])
	}
	if cfg.Repository.Redis == nil {
		t.Error("Expected redis section to be initialized")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "debug", Format: "json", Output: "/var/log/uploads.log"},
		Disks: map[string]factory.Config{
			"archive": {Type: factory.KindMemory},
		},
		Repository: RepositoryConfig{
			Type:   "badger",
			Badger: map[string]any{"in_memory": true},
		},
		Uploads: UploadsConfig{DefaultDisk: "Archive", BatchConcurrency: 9},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Output != "/var/log/uploads.log" {
		t.Errorf("Expected explicit output to be kept, got %q", cfg.Logging.Output)
	}
	if len(cfg.Disks) != 1 {
		t.Errorf("Expected configured disks to be kept, got %d", len(cfg.Disks))
	}
	if _, ok := cfg.Repository.Badger["path"]; ok {
		t.Error("Expected no badger path default for in-memory badger")
	}
	if cfg.Uploads.DefaultDisk != "archive" {
		t.Errorf("Expected default disk lowercased, got %q", cfg.Uploads.DefaultDisk)
	}
	if cfg.Uploads.BatchConcurrency != 9 {
		t.Errorf("Expected explicit batch concurrency to be kept, got %d", cfg.Uploads.BatchConcurrency)
	}
}

func TestGetDefaultConfig_IsValid(t *testing.T) {
	if err := Validate(GetDefaultConfig()); err != nil {
		t.Fatalf("Default config should be valid: %v", err)
	}
}
