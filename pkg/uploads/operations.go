package uploads

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/marmos91/dittouploads/internal/logger"
)

// UploadOptions are the optional arguments of Upload, Update and UploadMany.
type UploadOptions struct {
	// Disk is the logical disk to write to. Empty uses the default disk.
	Disk string

	// Meta is stored with the record. nil means not supplied: Upload stores
	// no metadata and Update keeps the stored metadata.
	Meta Metadata
}

// DeleteOptions are the optional arguments of Delete.
type DeleteOptions struct {
	// FileOnly removes the bytes and keeps the repository record.
	FileOnly bool
}

// Place writes r to a freshly generated path on diskName (default disk when
// empty) and returns the new location. The repository is not touched.
func (u *Uploads[ID]) Place(ctx context.Context, r io.Reader, rawName string, diskName string) (loc Location, err error) {
	defer u.observe(OpPlace, time.Now(), &err)
	return u.place(ctx, OpPlace, r, rawName, diskName)
}

func (u *Uploads[ID]) place(ctx context.Context, op string, r io.Reader, rawName string, diskName string) (Location, error) {
	name, d, err := u.resolveDisk(diskName)
	if err != nil {
		return Location{}, err
	}

	sanitized := u.sanitize(rawName)
	path := u.storagePath(sanitized)

	counter := &countingReader{r: u.bandwidth.Reader(ctx, r)}
	if err := d.Write(ctx, path, counter); err != nil {
		return Location{}, fmt.Errorf("write %s to disk %q: %w", path, name, err)
	}
	u.metrics.RecordBytes(op, counter.n)

	logger.Debug("Placed %d bytes: disk=%s path=%s", counter.n, name, path)

	return Location{Disk: name, Path: path, Name: sanitized}, nil
}

// Upload places r on a disk and creates a repository record pointing at it.
//
// If the record cannot be created the written bytes stay on the disk as an
// orphan; no rollback is attempted.
func (u *Uploads[ID]) Upload(ctx context.Context, r io.Reader, rawName string, opts UploadOptions) (id ID, err error) {
	defer u.observe(OpUpload, time.Now(), &err)
	return u.upload(ctx, r, rawName, opts)
}

func (u *Uploads[ID]) upload(ctx context.Context, r io.Reader, rawName string, opts UploadOptions) (ID, error) {
	var zero ID

	loc, err := u.place(ctx, OpUpload, r, rawName, opts.Disk)
	if err != nil {
		return zero, err
	}

	id, err := u.repo.Create(ctx, loc, opts.Meta)
	if err != nil {
		logger.Warn("Upload record not created, bytes orphaned: disk=%s path=%s: %v", loc.Disk, loc.Path, err)
		return zero, fmt.Errorf("create record: %w", err)
	}

	return id, nil
}

// Update replaces the content of id.
//
// The new bytes are placed before the old file is deleted, so a failed write
// leaves the upload untouched. A failure deleting the old file is logged and
// the record is still repointed: the old bytes become an orphan rather than
// the record becoming stale.
func (u *Uploads[ID]) Update(ctx context.Context, id ID, r io.Reader, rawName string, opts UploadOptions) (newID ID, err error) {
	defer u.observe(OpUpdate, time.Now(), &err)

	var zero ID

	// ========================================================================
	// Step 1: Resolve the current location and its disk
	// ========================================================================

	old, oldDisk, err := u.locate(ctx, id)
	if err != nil {
		return zero, err
	}

	// ========================================================================
	// Step 2: Place the new bytes
	// ========================================================================

	loc, err := u.place(ctx, OpUpdate, r, rawName, opts.Disk)
	if err != nil {
		return zero, err
	}

	// ========================================================================
	// Step 3: Remove the old bytes (best effort)
	// ========================================================================

	// A custom path generator could hand back the old path; deleting it would
	// destroy the bytes just written. That holds for any logical disk backed
	// by the same storage. A disk unregistered meanwhile counts as the same.
	newDisk, lookupErr := u.disks.Get(loc.Disk)
	if old.Path == loc.Path && (lookupErr != nil || sameBackend(old.Disk, oldDisk, loc.Disk, newDisk)) {
		logger.Warn("Update placed content at its previous path, keeping it: disk=%s path=%s", loc.Disk, loc.Path)
	} else if err := oldDisk.Delete(ctx, old.Path); err != nil {
		logger.Warn("Failed to delete replaced file, bytes orphaned: disk=%s path=%s: %v", old.Disk, old.Path, err)
	}

	// ========================================================================
	// Step 4: Repoint the record
	// ========================================================================

	newID, err = u.repo.Update(ctx, id, loc, opts.Meta)
	if err != nil {
		return zero, fmt.Errorf("update record: %w", err)
	}

	logger.Debug("Updated upload: %s:%s -> %s:%s", old.Disk, old.Path, loc.Disk, loc.Path)
	return newID, nil
}

// Delete removes id's record and then its file.
//
// The record goes first: a failed file delete then leaves an unreachable
// orphan instead of a record pointing at missing bytes. With FileOnly only
// the file is removed and the record keeps its (now dangling) location.
func (u *Uploads[ID]) Delete(ctx context.Context, id ID, opts DeleteOptions) (err error) {
	defer u.observe(OpDelete, time.Now(), &err)

	loc, d, err := u.locate(ctx, id)
	if err != nil {
		return err
	}

	if !opts.FileOnly {
		if err := u.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
	}

	if err := d.Delete(ctx, loc.Path); err != nil {
		logger.Warn("Failed to delete file: disk=%s path=%s record_deleted=%t: %v",
			loc.Disk, loc.Path, !opts.FileOnly, err)
		return fmt.Errorf("delete %s from disk %q: %w", loc.Path, loc.Disk, err)
	}

	logger.Debug("Deleted upload: disk=%s path=%s file_only=%t", loc.Disk, loc.Path, opts.FileOnly)
	return nil
}

// Read returns the full content of id.
func (u *Uploads[ID]) Read(ctx context.Context, id ID) (data []byte, err error) {
	defer u.observe(OpRead, time.Now(), &err)

	loc, d, err := u.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	data, err = d.Read(ctx, loc.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s from disk %q: %w", loc.Path, loc.Disk, err)
	}
	u.metrics.RecordBytes(OpRead, int64(len(data)))

	return data, nil
}

// OpenReader returns a stream over the content of id. The caller must close
// it.
func (u *Uploads[ID]) OpenReader(ctx context.Context, id ID) (rc io.ReadCloser, err error) {
	defer u.observe(OpOpenReader, time.Now(), &err)

	loc, d, err := u.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	rc, err = d.OpenReader(ctx, loc.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s on disk %q: %w", loc.Path, loc.Disk, err)
	}
	return rc, nil
}
