package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/marmos91/dittouploads/pkg/disk"
)

// MemoryDisk implements disk.Disk using in-memory storage.
//
// This implementation stores all content in memory using a map. It's designed for:
//   - Testing and development
//   - Temporary/ephemeral storage
//   - Small-scale deployments
//
// Characteristics:
//   - Fast: All operations are memory-speed
//   - Volatile: Data lost on restart
//   - Memory-bound: Limited by available RAM
//   - Thread-safe: Protected by RWMutex
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Multiple concurrent readers
// are allowed, but writes are exclusive. Copying data on read/write prevents
// data races with caller-owned buffers.
type MemoryDisk struct {
	// name is the canonical name reported by Name()
	name string

	// data stores the actual file content keyed by path
	data map[string][]byte

	// mu protects concurrent access to data map
	mu sync.RWMutex
}

// NewMemoryDisk creates a new in-memory disk.
//
// The disk starts empty. All data is stored in memory and will be lost
// when the disk is garbage collected or the process exits.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//   - name: Canonical name; "memory" when empty
//
// Returns:
//   - *MemoryDisk: Initialized disk
//   - error: Only returns error if context is cancelled
func NewMemoryDisk(ctx context.Context, name string) (*MemoryDisk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if name == "" {
		name = "memory"
	}

	return &MemoryDisk{
		name: name,
		data: make(map[string][]byte),
	}, nil
}

// Name returns the canonical disk name.
func (d *MemoryDisk) Name() string {
	return d.name
}

// Write stores the content read from r at path.
//
// The reader is drained before the lock is taken so a slow producer never
// blocks other operations.
func (d *MemoryDisk) Write(ctx context.Context, path string, r io.Reader) error {
	// ========================================================================
	// Step 1: Check context and drain the reader
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content for %s: %w", path, err)
	}

	// ========================================================================
	// Step 2: Acquire write lock and store
	// ========================================================================

	d.mu.Lock()
	defer d.mu.Unlock()

	d.data[path] = data
	return nil
}

// Read returns a copy of the content stored at path.
func (d *MemoryDisk) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	data, exists := d.data[path]
	if !exists {
		return nil, fmt.Errorf("file %s: %w", path, disk.ErrFileNotFound)
	}

	// This prevents data races if the content is later modified
	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	return dataCopy, nil
}

// OpenReader returns a reader over a copy of the content stored at path.
//
// Closing the returned reader is a no-op.
func (d *MemoryDisk) OpenReader(ctx context.Context, path string) (io.ReadCloser, error) {
	data, err := d.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete removes the content stored at path. Missing paths are not an error.
func (d *MemoryDisk) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.data, path)
	return nil
}

// Paths returns every stored path in sorted order.
//
// Useful for reconciling orphaned bytes against a repository.
func (d *MemoryDisk) Paths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	paths := make([]string, 0, len(d.data))
	for p := range d.data {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
