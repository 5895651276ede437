package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_FromFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: json
  output: stderr
metrics:
  enabled: true
disks:
  local:
    type: filesystem
    filesystem:
      path: /var/lib/uploads
  Archive:
    type: s3
    s3:
      bucket: uploads-archive
      region: eu-west-1
repository:
  type: redis
  redis:
    url: redis://localhost:6379/0
uploads:
  default_disk: local
  path_prefix: uploads
  timeout: 30s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format json, got %q", cfg.Logging.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics to be enabled")
	}
	if cfg.Metrics.Output != "stderr" {
		t.Errorf("Expected default metrics output stderr, got %q", cfg.Metrics.Output)
	}
	if len(cfg.Disks) != 2 {
		t.Fatalf("Expected 2 disks, got %d", len(cfg.Disks))
	}
	if _, ok := cfg.Disks["archive"]; !ok {
		t.Error("Expected disk names to be lowercased")
	}
	if cfg.Disks["local"].Filesystem["path"] != "/var/lib/uploads" {
		t.Errorf("Unexpected filesystem path: %v", cfg.Disks["local"].Filesystem["path"])
	}
	if cfg.Repository.Type != "redis" {
		t.Errorf("Expected redis repository, got %q", cfg.Repository.Type)
	}
	if cfg.Uploads.DefaultDisk != "local" {
		t.Errorf("Expected default disk local, got %q", cfg.Uploads.DefaultDisk)
	}
	if cfg.Uploads.PathPrefix != "uploads" {
		t.Errorf("Expected path prefix uploads, got %q", cfg.Uploads.PathPrefix)
	}
	if cfg.Uploads.Timeout != 30*time.Second {
		t.Errorf("Expected timeout 30s, got %v", cfg.Uploads.Timeout)
	}
	if cfg.Uploads.BatchConcurrency != 4 {
		t.Errorf("Expected default batch concurrency 4, got %d", cfg.Uploads.BatchConcurrency)
	}
}

func TestLoad_MissingDefaultLocation(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without config file failed: %v", err)
	}

	if cfg.Repository.Type != "badger" {
		t.Errorf("Expected default repository badger, got %q", cfg.Repository.Type)
	}
	if cfg.Disks["default"].Type != "filesystem" {
		t.Errorf("Expected default filesystem disk, got %+v", cfg.Disks)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DITTOUPLOADS_LOGGING_LEVEL", "warn")
	t.Setenv("DITTOUPLOADS_UPLOADS_PATH_PREFIX", "from-env")
	t.Setenv("DITTOUPLOADS_REPOSITORY_TYPE", "memory")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level WARN from env, got %q", cfg.Logging.Level)
	}
	if cfg.Uploads.PathPrefix != "from-env" {
		t.Errorf("Expected path prefix from env, got %q", cfg.Uploads.PathPrefix)
	}
	if cfg.Repository.Type != "memory" {
		t.Errorf("Expected memory repository from env, got %q", cfg.Repository.Type)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: INFO
repository:
  type: memory
`)
	t.Setenv("DITTOUPLOADS_LOGGING_LEVEL", "ERROR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected env to win over file, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := writeConfig(t, "logging: [unclosed")

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for malformed config file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, `
disks:
  local:
    type: memory
uploads:
  default_disk: remote
repository:
  type: memory
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for undeclared default disk")
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "dittouploads", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if ConfigExists() {
		t.Error("Expected no config file to exist yet")
	}
}
