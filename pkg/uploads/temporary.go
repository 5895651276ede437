package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/marmos91/dittouploads/internal/logger"
)

// TemporaryFile copies id's content into a new local file and returns its
// path. The caller owns the file and must remove it.
//
// If copying fails after the file was created, the partial file is left in
// place (its path is logged) and an error is returned.
func (u *Uploads[ID]) TemporaryFile(ctx context.Context, id ID) (path string, err error) {
	defer u.observe(OpTemporaryFile, time.Now(), &err)
	return u.materialize(ctx, OpTemporaryFile, id)
}

// WithTemporaryFile copies id's content into a local file, calls fn with its
// path and removes the file on every exit path, including fn failing or
// panicking. fn's error is returned unchanged.
func (u *Uploads[ID]) WithTemporaryFile(ctx context.Context, id ID, fn func(ctx context.Context, path string) error) (err error) {
	defer u.observe(OpWithTemporaryFile, time.Now(), &err)

	path, err := u.materialize(ctx, OpWithTemporaryFile, id)
	if err != nil {
		return err
	}
	defer removeTemporary(path)

	return fn(ctx, path)
}

func (u *Uploads[ID]) materialize(ctx context.Context, op string, id ID) (string, error) {
	// ========================================================================
	// Step 1: Open the stored content
	// ========================================================================

	loc, d, err := u.locate(ctx, id)
	if err != nil {
		return "", err
	}

	src, err := d.OpenReader(ctx, loc.Path)
	if err != nil {
		return "", fmt.Errorf("open %s on disk %q: %w", loc.Path, loc.Disk, err)
	}
	defer func() { _ = src.Close() }()

	// ========================================================================
	// Step 2: Stream it into a local file
	// ========================================================================

	f, err := os.CreateTemp(u.tempDir, "dittouploads-*-"+temporarySuffix(loc.Name))
	if err != nil {
		return "", fmt.Errorf("create temporary file: %w", err)
	}

	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		logger.Warn("Temporary file left behind after failed copy: %s: %v", f.Name(), err)
		return "", fmt.Errorf("copy %s to temporary file: %w", loc.Path, err)
	}
	u.metrics.RecordBytes(op, n)

	logger.Debug("Materialized %d bytes: disk=%s path=%s -> %s", n, loc.Disk, loc.Path, f.Name())
	return f.Name(), nil
}

// maxTemporarySuffix bounds the part of the upload name carried into a
// temporary file name, well under the usual 255 byte file name limit.
const maxTemporarySuffix = 64

// temporarySuffix returns the tail of name, at most maxTemporarySuffix bytes
// long, so the extension survives truncation.
func temporarySuffix(name string) string {
	if len(name) <= maxTemporarySuffix {
		return name
	}
	// Sanitized names are ASCII, so any byte offset is a valid cut.
	return name[len(name)-maxTemporarySuffix:]
}

func removeTemporary(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to remove temporary file %s: %v", path, err)
	}
}
