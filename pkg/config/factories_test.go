package config

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/marmos91/dittouploads/pkg/disk/factory"
	"github.com/marmos91/dittouploads/pkg/uploads"
)

func TestCreateRepository_Memory(t *testing.T) {
	repo, err := CreateRepository(context.Background(), &RepositoryConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("CreateRepository failed: %v", err)
	}
	defer repo.Close()
}

func TestCreateRepository_Badger(t *testing.T) {
	repo, err := CreateRepository(context.Background(), &RepositoryConfig{
		Type:   "badger",
		Badger: map[string]any{"path": filepath.Join(t.TempDir(), "db")},
	})
	if err != nil {
		t.Fatalf("CreateRepository failed: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestCreateRepository_BadgerInvalidOptions(t *testing.T) {
	_, err := CreateRepository(context.Background(), &RepositoryConfig{
		Type:   "badger",
		Badger: map[string]any{"in_memory": "definitely"},
	})
	if err == nil {
		t.Fatal("Expected error for undecodable badger options")
	}
}

func TestCreateRepository_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	repo, err := CreateRepository(context.Background(), &RepositoryConfig{
		Type:  "redis",
		Redis: map[string]any{"url": "redis://" + mr.Addr()},
	})
	if err != nil {
		t.Fatalf("CreateRepository failed: %v", err)
	}
	defer repo.Close()
}

func TestCreateRepository_Unknown(t *testing.T) {
	if _, err := CreateRepository(context.Background(), &RepositoryConfig{Type: "postgres"}); err == nil {
		t.Fatal("Expected error for unknown repository type")
	}
}

func TestCreateUploads(t *testing.T) {
	ctx := context.Background()
	cfg := &Config{
		Disks: map[string]factory.Config{
			"default": {Type: factory.KindMemory},
			"archive": {Type: factory.KindFilesystem, Filesystem: map[string]any{"path": t.TempDir()}},
		},
		Repository: RepositoryConfig{Type: "memory"},
		Uploads:    UploadsConfig{PathPrefix: "uploads"},
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	repo, err := CreateRepository(ctx, &cfg.Repository)
	if err != nil {
		t.Fatalf("CreateRepository failed: %v", err)
	}
	defer repo.Close()

	engine, err := CreateUploads(ctx, cfg, repo, nil)
	if err != nil {
		t.Fatalf("CreateUploads failed: %v", err)
	}

	if engine.DefaultDisk() != "default" {
		t.Errorf("Expected default disk 'default', got %q", engine.DefaultDisk())
	}

	id, err := engine.Upload(ctx, strings.NewReader("hello"), "hello.txt", uploads.UploadOptions{Disk: "archive"})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	loc, err := repo.GetLocation(ctx, id)
	if err != nil {
		t.Fatalf("GetLocation failed: %v", err)
	}
	if loc.Disk != "archive" {
		t.Errorf("Expected file on archive disk, got %q", loc.Disk)
	}
	if !strings.HasPrefix(loc.Path, "/uploads/") {
		t.Errorf("Expected path under /uploads/, got %q", loc.Path)
	}

	data, err := engine.Read(ctx, id)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(data, []byte("hello")) {
		t.Errorf("Expected 'hello', got %q", data)
	}
}

func TestCreateUploads_UnknownDefaultDisk(t *testing.T) {
	cfg := &Config{
		Disks:   map[string]factory.Config{"default": {Type: factory.KindMemory}},
		Uploads: UploadsConfig{DefaultDisk: "missing"},
	}

	repo, _ := CreateRepository(context.Background(), &RepositoryConfig{Type: "memory"})
	if _, err := CreateUploads(context.Background(), cfg, repo, nil); err == nil {
		t.Fatal("Expected error for undeclared default disk")
	}
}
