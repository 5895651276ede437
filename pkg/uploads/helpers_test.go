package uploads_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittouploads/pkg/disk"
	diskmemory "github.com/marmos91/dittouploads/pkg/disk/memory"
	repomemory "github.com/marmos91/dittouploads/pkg/repository/memory"
	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/stretchr/testify/require"
)

// fixture is an engine over two memory disks ("default", "archive") and a
// memory repository.
type fixture struct {
	engine  *uploads.Uploads[string]
	disks   *disk.Collection
	def     *diskmemory.MemoryDisk
	archive *diskmemory.MemoryDisk
	repo    *repomemory.MemoryRepository
	metrics *recordingMetrics
}

func newFixture(t *testing.T, configure ...func(*uploads.Options[string])) *fixture {
	t.Helper()
	ctx := context.Background()

	def, err := diskmemory.NewMemoryDisk(ctx, "memory:default")
	require.NoError(t, err)
	archive, err := diskmemory.NewMemoryDisk(ctx, "memory:archive")
	require.NoError(t, err)

	f := &fixture{
		disks:   disk.NewCollection(map[string]disk.Disk{"default": def, "archive": archive}),
		def:     def,
		archive: archive,
		repo:    repomemory.NewMemoryRepository(),
		metrics: &recordingMetrics{},
	}

	opts := uploads.Options[string]{
		Disks:      f.disks,
		Repository: f.repo,
		TempDir:    t.TempDir(),
		Metrics:    f.metrics,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	f.engine, err = uploads.New(ctx, opts)
	require.NoError(t, err)
	return f
}

// upload stores content under name on the default disk.
func (f *fixture) upload(t *testing.T, content, name string, meta uploads.Metadata) string {
	t.Helper()
	id, err := f.engine.Upload(context.Background(), strings.NewReader(content), name, uploads.UploadOptions{Meta: meta})
	require.NoError(t, err)
	return id
}

func (f *fixture) location(t *testing.T, id string) uploads.Location {
	t.Helper()
	loc, err := f.repo.GetLocation(context.Background(), id)
	require.NoError(t, err)
	return loc
}

// faultyDisk wraps a disk and fails selected operations.
type faultyDisk struct {
	disk.Disk
	writeErr  error
	deleteErr error
}

func (d *faultyDisk) Write(ctx context.Context, path string, r io.Reader) error {
	if d.writeErr != nil {
		return d.writeErr
	}
	return d.Disk.Write(ctx, path, r)
}

func (d *faultyDisk) Delete(ctx context.Context, path string) error {
	if d.deleteErr != nil {
		return d.deleteErr
	}
	return d.Disk.Delete(ctx, path)
}

// faultyRepository wraps the memory repository and fails selected calls.
type faultyRepository struct {
	*repomemory.MemoryRepository
	createErr error
	getMetaN  int
}

func (r *faultyRepository) Create(ctx context.Context, loc uploads.Location, meta uploads.Metadata) (string, error) {
	if r.createErr != nil {
		return "", r.createErr
	}
	return r.MemoryRepository.Create(ctx, loc, meta)
}

func (r *faultyRepository) GetMeta(ctx context.Context, id string) (uploads.Metadata, error) {
	r.getMetaN++
	return r.MemoryRepository.GetMeta(ctx, id)
}

// recordingMetrics captures every observation.
type recordingMetrics struct {
	mu     sync.Mutex
	ops    []string
	failed []string
	bytes  map[string]int64
}

func (m *recordingMetrics) ObserveOperation(op string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	if err != nil {
		m.failed = append(m.failed, op)
	}
}

func (m *recordingMetrics) RecordBytes(op string, n int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bytes == nil {
		m.bytes = make(map[string]int64)
	}
	m.bytes[op] += n
}
