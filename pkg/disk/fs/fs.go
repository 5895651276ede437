// Package fs implements local-filesystem disks.
package fs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittouploads/pkg/disk"
)

// FSDisk implements disk.Disk using the local filesystem.
//
// Upload paths are mapped below a base directory, mirroring their slash
// structure ("/2025/01/02/x.txt" → "<base>/2025/01/02/x.txt"). Paths that
// would escape the base directory are rejected with disk.ErrInvalidPath.
//
// Thread Safety:
// The underlying filesystem operations are thread-safe at the OS level.
// Writes go through a temporary file renamed into place, so readers never
// observe a partially written file.
type FSDisk struct {
	basePath string
	baseURL  string
}

// FSDiskConfig contains configuration for a filesystem disk.
type FSDiskConfig struct {
	// Path is the root directory holding uploaded content
	Path string `mapstructure:"path"`

	// BaseURL is an optional public URL prefix the root directory is served
	// under (e.g. "https://cdn.example.com/uploads"). Empty disables URL().
	BaseURL string `mapstructure:"base_url"`
}

// NewFSDisk creates a new filesystem disk.
//
// This initializes the disk by creating the base directory if it doesn't
// exist. The base directory will be created with permissions 0755.
//
// Context Cancellation:
// This operation checks the context before creating the directory structure.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: Disk configuration
//
// Returns:
//   - *FSDisk: Initialized disk
//   - error: Returns error if directory creation fails or context is cancelled
func NewFSDisk(ctx context.Context, cfg FSDiskConfig) (*FSDisk, error) {
	// ========================================================================
	// Step 1: Check context before filesystem operation
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("filesystem disk: path is required")
	}

	// ========================================================================
	// Step 2: Create the base directory if it doesn't exist
	// ========================================================================

	basePath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSDisk{
		basePath: basePath,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// Name returns "file://<base directory>".
func (d *FSDisk) Name() string {
	return "file://" + filepath.ToSlash(d.basePath)
}

// getFilePath maps an upload path onto the filesystem.
//
// The path is cleaned as an absolute slash path first, so ".." segments can
// never climb above the base directory.
func (d *FSDisk) getFilePath(p string) (string, error) {
	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return "", fmt.Errorf("path %q: %w", p, disk.ErrInvalidPath)
	}
	return filepath.Join(d.basePath, filepath.FromSlash(cleaned)), nil
}

// Write stores the content read from r at path.
//
// Context Cancellation:
// The context is checked before any I/O and again before the final rename.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - path: Upload path
//   - r: Content source
//
// Returns:
//   - error: Returns error if write fails or context is cancelled
func (d *FSDisk) Write(ctx context.Context, p string, r io.Reader) error {
	// ========================================================================
	// Step 1: Check context and resolve the target
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := d.getFilePath(p)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// ========================================================================
	// Step 2: Stream into a temporary sibling
	// ========================================================================

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write content: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close content file: %w", err)
	}

	// ========================================================================
	// Step 3: Rename into place
	// ========================================================================

	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to set content permissions: %w", err)
	}

	if err := os.Rename(tmpName, filePath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move content into place: %w", err)
	}

	return nil
}

// Read returns the full content stored at path.
func (d *FSDisk) Read(ctx context.Context, p string) ([]byte, error) {
	reader, err := d.OpenReader(ctx, p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}
	return data, nil
}

// OpenReader opens the file stored at path.
//
// The caller is responsible for closing the returned file.
func (d *FSDisk) OpenReader(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := d.getFilePath(p)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file %s: %w", p, disk.ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to open content: %w", err)
	}

	return file, nil
}

// Delete removes the file stored at path. Missing files are not an error.
//
// Empty parent directories are left in place.
func (d *FSDisk) Delete(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := d.getFilePath(p)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete content: %w", err)
	}
	return nil
}

// URL returns BaseURL joined with path, or "" when no BaseURL is configured.
func (d *FSDisk) URL(p string) string {
	if d.baseURL == "" {
		return ""
	}
	return d.baseURL + path.Clean("/"+p)
}
