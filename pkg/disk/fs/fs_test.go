package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/dittouploads/pkg/disk"
	disktesting "github.com/marmos91/dittouploads/pkg/disk/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestFSDisk runs the complete Disk test suite against FSDisk.
func TestFSDisk(t *testing.T) {
	suite := &disktesting.DiskTestSuite{
		NewDisk: func() disk.Disk {
			d, err := NewFSDisk(context.Background(), FSDiskConfig{Path: t.TempDir()})
			if err != nil {
				t.Fatalf("Failed to create FSDisk: %v", err)
			}
			return d
		},
	}

	suite.Run(t)
}

func TestFSDisk_RequiresPath(t *testing.T) {
	_, err := NewFSDisk(context.Background(), FSDiskConfig{})
	require.Error(t, err)
}

func TestFSDisk_MirrorsPathLayout(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	d, err := NewFSDisk(ctx, FSDiskConfig{Path: base})
	require.NoError(t, err)

	require.NoError(t, d.Write(ctx, "/uploads/2025/01/02/120000-1-a.txt", strings.NewReader("abc")))

	data, err := os.ReadFile(filepath.Join(base, "uploads", "2025", "01", "02", "120000-1-a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestFSDisk_TraversalStaysInsideBase(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	base := filepath.Join(root, "content")
	d, err := NewFSDisk(ctx, FSDiskConfig{Path: base})
	require.NoError(t, err)

	require.NoError(t, d.Write(ctx, "/../../escape.txt", strings.NewReader("x")))

	_, err = os.Stat(filepath.Join(root, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(base, "escape.txt"))
	assert.NoError(t, err)
}

func TestFSDisk_RootPathRejected(t *testing.T) {
	ctx := context.Background()
	d, err := NewFSDisk(ctx, FSDiskConfig{Path: t.TempDir()})
	require.NoError(t, err)

	err = d.Write(ctx, "/", strings.NewReader("x"))
	assert.ErrorIs(t, err, disk.ErrInvalidPath)
}

func TestFSDisk_URL(t *testing.T) {
	ctx := context.Background()

	plain, err := NewFSDisk(ctx, FSDiskConfig{Path: t.TempDir()})
	require.NoError(t, err)
	assert.Empty(t, disk.URL(plain, "/a/b.txt"))

	served, err := NewFSDisk(ctx, FSDiskConfig{Path: t.TempDir(), BaseURL: "https://cdn.example.com/files/"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/files/a/b.txt", disk.URL(served, "/a/b.txt"))

	// No temporary URL support: fallback yields the public URL
	url, err := disk.TemporaryURL(ctx, served, "/a/b.txt", 0, true)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/files/a/b.txt", url)

	url, err = disk.TemporaryURL(ctx, served, "/a/b.txt", 0, false)
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestFSDisk_NoTempLeftoversOnFailure(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	d, err := NewFSDisk(ctx, FSDiskConfig{Path: base})
	require.NoError(t, err)

	err = d.Write(ctx, "/dir/file.txt", &erroringReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(filepath.Join(base, "dir"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type erroringReader struct{}

func (erroringReader) Read([]byte) (int, error) { return 0, os.ErrClosed }
