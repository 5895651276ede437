package uploads_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/marmos91/dittouploads/pkg/disk"
	"github.com/marmos91/dittouploads/pkg/disk/factory"
	diskmemory "github.com/marmos91/dittouploads/pkg/disk/memory"
	repomemory "github.com/marmos91/dittouploads/pkg/repository/memory"
	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Construction
// ============================================================================

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()
	repo := repomemory.NewMemoryRepository()
	mem, err := diskmemory.NewMemoryDisk(ctx, "")
	require.NoError(t, err)
	disks := disk.NewCollection(map[string]disk.Disk{"default": mem})

	tests := []struct {
		name string
		opts uploads.Options[string]
	}{
		{"no repository", uploads.Options[string]{Disks: disks}},
		{"no disks", uploads.Options[string]{Repository: repo}},
		{"disks and configs", uploads.Options[string]{
			Repository:  repo,
			Disks:       disks,
			DiskConfigs: map[string]factory.Config{"default": {Type: factory.KindMemory}},
		}},
		{"missing default disk", uploads.Options[string]{Repository: repo, Disks: disks, DefaultDisk: "s3"}},
		{"broken disk config", uploads.Options[string]{
			Repository:  repo,
			DiskConfigs: map[string]factory.Config{"default": {Type: factory.KindFilesystem}},
		}},
		{"unknown disk kind", uploads.Options[string]{
			Repository:  repo,
			DiskConfigs: map[string]factory.Config{"default": {Type: "tape"}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := uploads.New(ctx, tt.opts)
			assert.Nil(t, engine)
			assert.ErrorIs(t, err, uploads.ErrInvalidConfiguration)
		})
	}
}

func TestNew_FromDiskConfigs(t *testing.T) {
	ctx := context.Background()

	engine, err := uploads.New(ctx, uploads.Options[string]{
		Repository: repomemory.NewMemoryRepository(),
		DiskConfigs: map[string]factory.Config{
			"default": {Type: factory.KindMemory},
			"local":   {Type: factory.KindFilesystem, Filesystem: map[string]any{"path": t.TempDir()}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "default", engine.DefaultDisk())
	assert.Equal(t, []string{"default", "local"}, engine.Disks().Names())

	id, err := engine.Upload(ctx, strings.NewReader("hello"), "a.txt", uploads.UploadOptions{Disk: "local"})
	require.NoError(t, err)

	data, err := engine.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestNew_CustomDefaultDisk(t *testing.T) {
	f := newFixture(t, func(o *uploads.Options[string]) { o.DefaultDisk = "archive" })

	id := f.upload(t, "x", "a.txt", nil)
	assert.Equal(t, "archive", f.location(t, id).Disk)
	assert.Len(t, f.archive.Paths(), 1)
	assert.Empty(t, f.def.Paths())
}

// ============================================================================
// Place / Upload
// ============================================================================

func TestUpload_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content := "The quick brown fox jumps over it\n"
	require.Len(t, content, 34)

	id := f.upload(t, content, "foo.txt", uploads.Metadata{"context": "test"})

	loc := f.location(t, id)
	assert.Equal(t, "default", loc.Disk)
	assert.Equal(t, "foo.txt", loc.Name)
	assert.Regexp(t, regexp.MustCompile(`^/\d{4}/\d{2}/\d{2}/\d{6}-\d+-foo\.txt$`), loc.Path)

	meta, err := f.repo.GetMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "test", meta.Context())

	data, err := f.engine.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte(content), data)
}

func TestUpload_BinaryRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i * 7)
	}

	id, err := f.engine.Upload(ctx, bytes.NewReader(content), "blob.bin", uploads.UploadOptions{})
	require.NoError(t, err)

	data, err := f.engine.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, int64(len(content)), f.metrics.bytes[uploads.OpUpload])
}

func TestUpload_SanitizesAndPrefixes(t *testing.T) {
	f := newFixture(t, func(o *uploads.Options[string]) { o.PathPrefix = "/uploads/" })

	id := f.upload(t, "x", "my report (final).pdf", nil)

	loc := f.location(t, id)
	assert.Equal(t, "my__report____final__.pdf", loc.Name)
	assert.True(t, strings.HasPrefix(loc.Path, "/uploads/"))
	assert.True(t, strings.HasSuffix(loc.Path, "-my__report____final__.pdf"))
}

func TestUpload_CustomHooks(t *testing.T) {
	f := newFixture(t, func(o *uploads.Options[string]) {
		o.Sanitize = strings.ToLower
		o.GeneratePath = func(name string) string { return "fixed/" + name }
		o.PathPrefix = "root"
	})

	id := f.upload(t, "x", "README.MD", nil)

	loc := f.location(t, id)
	assert.Equal(t, "readme.md", loc.Name)
	assert.Equal(t, "/root/fixed/readme.md", loc.Path)
}

func TestUpload_UnknownDisk(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Upload(context.Background(), strings.NewReader("x"), "a.txt", uploads.UploadOptions{Disk: "nope"})
	assert.ErrorIs(t, err, uploads.ErrDiskNotFound)
	assert.Equal(t, 0, f.repo.Len())
	assert.Contains(t, f.metrics.failed, uploads.OpUpload)
}

func TestUpload_WriteFailure(t *testing.T) {
	f := newFixture(t)
	broken := errors.New("disk full")
	require.NoError(t, f.disks.Register("broken", &faultyDisk{Disk: f.def, writeErr: broken}))

	_, err := f.engine.Upload(context.Background(), strings.NewReader("x"), "a.txt", uploads.UploadOptions{Disk: "broken"})
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, 0, f.repo.Len())
}

func TestUpload_CreateFailureOrphansBytes(t *testing.T) {
	ctx := context.Background()
	repoErr := errors.New("database down")
	repo := &faultyRepository{MemoryRepository: repomemory.NewMemoryRepository(), createErr: repoErr}

	mem, err := diskmemory.NewMemoryDisk(ctx, "")
	require.NoError(t, err)

	engine, err := uploads.New(ctx, uploads.Options[string]{
		Disks:      disk.NewCollection(map[string]disk.Disk{"default": mem}),
		Repository: repo,
	})
	require.NoError(t, err)

	_, err = engine.Upload(ctx, strings.NewReader("x"), "a.txt", uploads.UploadOptions{})
	assert.ErrorIs(t, err, repoErr)

	// No rollback: the bytes stay behind.
	assert.Len(t, mem.Paths(), 1)
}

func TestPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loc, err := f.engine.Place(ctx, strings.NewReader("placed"), "p.txt", "archive")
	require.NoError(t, err)

	assert.Equal(t, "archive", loc.Disk)
	assert.Equal(t, 0, f.repo.Len())

	data, err := f.archive.Read(ctx, loc.Path)
	require.NoError(t, err)
	assert.Equal(t, "placed", string(data))
}

// ============================================================================
// Update
// ============================================================================

func TestUpdate_ReplacesContentAndDeletesOld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.upload(t, "old content", "a.txt", uploads.Metadata{"context": "kept"})
	old := f.location(t, id)

	newID, err := f.engine.Update(ctx, id, strings.NewReader("new content"), "b.txt", uploads.UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, id, newID)

	data, err := f.engine.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))

	_, err = f.def.Read(ctx, old.Path)
	assert.ErrorIs(t, err, disk.ErrFileNotFound)

	loc := f.location(t, id)
	assert.Equal(t, "b.txt", loc.Name)
	assert.NotEqual(t, old.Path, loc.Path)

	// nil meta keeps what was stored
	meta, err := f.repo.GetMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "kept", meta.Context())
}

func TestUpdate_ReplacesMeta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.upload(t, "a", "a.txt", uploads.Metadata{"context": "old"})

	_, err := f.engine.Update(ctx, id, strings.NewReader("b"), "a.txt", uploads.UploadOptions{Meta: uploads.Metadata{"context": "new"}})
	require.NoError(t, err)

	meta, err := f.repo.GetMeta(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "new", meta.Context())
}

func TestUpdate_MovesToOtherDisk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.upload(t, "a", "a.txt", nil)

	_, err := f.engine.Update(ctx, id, strings.NewReader("b"), "a.txt", uploads.UploadOptions{Disk: "archive"})
	require.NoError(t, err)

	assert.Equal(t, "archive", f.location(t, id).Disk)
	assert.Empty(t, f.def.Paths())
	assert.Len(t, f.archive.Paths(), 1)
}

func TestUpdate_WriteFailureKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.upload(t, "original", "a.txt", nil)
	old := f.location(t, id)

	broken := errors.New("quota exceeded")
	require.NoError(t, f.disks.Register("broken", &faultyDisk{Disk: f.archive, writeErr: broken}))

	_, err := f.engine.Update(ctx, id, strings.NewReader("new"), "a.txt", uploads.UploadOptions{Disk: "broken"})
	assert.ErrorIs(t, err, broken)

	assert.Equal(t, old, f.location(t, id))
	data, err := f.engine.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestUpdate_OldDeleteFailureStillRepoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sticky := &faultyDisk{Disk: f.archive, deleteErr: errors.New("permission denied")}
	require.NoError(t, f.disks.Register("sticky", sticky))

	id, err := f.engine.Upload(ctx, strings.NewReader("old"), "a.txt", uploads.UploadOptions{Disk: "sticky"})
	require.NoError(t, err)
	old := f.location(t, id)

	_, err = f.engine.Update(ctx, id, strings.NewReader("new"), "a.txt", uploads.UploadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "default", f.location(t, id).Disk)

	// The old bytes are orphaned, not referenced.
	data, err := f.archive.Read(ctx, old.Path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestUpdate_SamePathIsNotDeleted(t *testing.T) {
	f := newFixture(t, func(o *uploads.Options[string]) {
		o.GeneratePath = func(name string) string { return "static/" + name }
	})
	ctx := context.Background()

	id := f.upload(t, "v1", "a.txt", nil)

	_, err := f.engine.Update(ctx, id, strings.NewReader("v2"), "a.txt", uploads.UploadOptions{})
	require.NoError(t, err)

	data, err := f.engine.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestUpdate_UnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Update(context.Background(), "missing", strings.NewReader("x"), "a.txt", uploads.UploadOptions{})
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)
	assert.Empty(t, f.def.Paths())
}

// ============================================================================
// Delete
// ============================================================================

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.upload(t, "bye", "a.txt", nil)
	loc := f.location(t, id)

	require.NoError(t, f.engine.Delete(ctx, id, uploads.DeleteOptions{}))

	_, err := f.repo.GetLocation(ctx, id)
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)

	_, err = f.def.Read(ctx, loc.Path)
	assert.ErrorIs(t, err, disk.ErrFileNotFound)

	_, err = f.engine.Read(ctx, id)
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)

	assert.ErrorIs(t, f.engine.Delete(ctx, id, uploads.DeleteOptions{}), uploads.ErrRecordNotFound)
}

func TestDelete_FileOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.upload(t, "bye", "a.txt", nil)
	loc := f.location(t, id)

	require.NoError(t, f.engine.Delete(ctx, id, uploads.DeleteOptions{FileOnly: true}))

	assert.Equal(t, loc, f.location(t, id))

	_, err := f.engine.Read(ctx, id)
	assert.ErrorIs(t, err, disk.ErrFileNotFound)
}

func TestDelete_RecordGoesFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	diskErr := errors.New("io error")
	require.NoError(t, f.disks.Register("sticky", &faultyDisk{Disk: f.archive, deleteErr: diskErr}))

	id, err := f.engine.Upload(ctx, strings.NewReader("x"), "a.txt", uploads.UploadOptions{Disk: "sticky"})
	require.NoError(t, err)

	err = f.engine.Delete(ctx, id, uploads.DeleteOptions{})
	assert.ErrorIs(t, err, diskErr)

	_, err = f.repo.GetLocation(ctx, id)
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)
	assert.Len(t, f.archive.Paths(), 1)
}

// ============================================================================
// Read / OpenReader
// ============================================================================

func TestOpenReader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.upload(t, "streamed", "a.txt", nil)

	rc, err := f.engine.OpenReader(ctx, id)
	require.NoError(t, err)
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(data))
}

func TestRead_UnknownID(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Read(context.Background(), "missing")
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)

	_, err = f.engine.OpenReader(context.Background(), "missing")
	assert.ErrorIs(t, err, uploads.ErrRecordNotFound)
}

func TestMetrics_ObservesOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := f.upload(t, "abc", "a.txt", nil)
	_, err := f.engine.Read(ctx, id)
	require.NoError(t, err)
	_, err = f.engine.Read(ctx, "missing")
	require.Error(t, err)

	assert.Equal(t, []string{uploads.OpUpload, uploads.OpRead, uploads.OpRead}, f.metrics.ops)
	assert.Equal(t, []string{uploads.OpRead}, f.metrics.failed)
	assert.Equal(t, int64(3), f.metrics.bytes[uploads.OpUpload])
	assert.Equal(t, int64(3), f.metrics.bytes[uploads.OpRead])
}

func TestUpload_BandwidthLimit(t *testing.T) {
	// 100 B/s with a 100 byte bucket: the last 50 bytes wait about half a second.
	f := newFixture(t, func(o *uploads.Options[string]) {
		o.BandwidthLimit = 100
		o.BandwidthBurst = 100
	})
	payload := strings.Repeat("b", 150)

	start := time.Now()
	id, err := f.engine.Upload(context.Background(), strings.NewReader(payload), "slow.txt", uploads.UploadOptions{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)

	data, err := f.engine.Read(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
}
