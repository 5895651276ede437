package uploads

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/marmos91/dittouploads/internal/logger"
	"github.com/marmos91/dittouploads/pkg/disk"
)

// CopyOptions are the optional arguments of Copy.
type CopyOptions struct {
	// Disk is the destination disk. Empty uses the default disk.
	Disk string

	// PreservePath keeps the source path instead of generating a new one.
	PreservePath bool
}

// DuplicateOptions are the optional arguments of Duplicate.
type DuplicateOptions struct {
	// Meta for the new record. nil copies the original's metadata.
	Meta Metadata

	// Disk is the destination disk. Empty uses the default disk.
	Disk string

	// PreservePath keeps the source path instead of generating a new one.
	PreservePath bool
}

// TransferOptions are the optional arguments of Transfer.
type TransferOptions struct {
	// Disk is the destination disk. Empty uses the default disk.
	Disk string

	// Meta replaces the stored metadata. nil keeps it.
	Meta Metadata

	// RegeneratePath names the destination with a fresh path instead of
	// keeping the source path.
	RegeneratePath bool

	// DeleteSource removes the source bytes once the record points at the
	// destination. A failed removal is logged, not returned.
	DeleteSource bool
}

// TransferResult reports the outcome of Transfer.
type TransferResult[ID any] struct {
	// ID identifies the upload after the transfer.
	ID ID

	// Location is where the upload's bytes live after the transfer.
	Location Location

	// Unchanged is set when the destination equals the source; nothing was
	// copied and the record was not touched.
	Unchanged bool
}

// Copy streams the bytes at loc to a new location and returns it.
//
// Returns ErrPathCollision when the destination is the source itself (same
// disk and same path), which can only happen with PreservePath or a path
// generator that repeats itself.
func (u *Uploads[ID]) Copy(ctx context.Context, loc Location, opts CopyOptions) (dst Location, err error) {
	defer u.observe(OpCopy, time.Now(), &err)
	return u.copy(ctx, OpCopy, loc, opts)
}

func (u *Uploads[ID]) copy(ctx context.Context, op string, loc Location, opts CopyOptions) (Location, error) {
	// ========================================================================
	// Step 1: Resolve both disks
	// ========================================================================

	srcDisk, err := u.disks.Get(loc.Disk)
	if err != nil {
		return Location{}, err
	}

	dstName, dstDisk, err := u.resolveDisk(opts.Disk)
	if err != nil {
		return Location{}, err
	}

	// ========================================================================
	// Step 2: Name the destination and refuse to overwrite the source
	// ========================================================================

	dstPath := loc.Path
	if !opts.PreservePath {
		dstPath = u.storagePath(loc.Name)
	}

	if dstPath == loc.Path && sameBackend(loc.Disk, srcDisk, dstName, dstDisk) {
		return Location{}, fmt.Errorf("copy %s on disk %q: %w", loc.Path, loc.Disk, ErrPathCollision)
	}

	// ========================================================================
	// Step 3: Stream the bytes
	// ========================================================================

	src, err := srcDisk.OpenReader(ctx, loc.Path)
	if err != nil {
		return Location{}, fmt.Errorf("open %s on disk %q: %w", loc.Path, loc.Disk, err)
	}
	defer func() { _ = src.Close() }()

	counter := &countingReader{r: u.bandwidth.Reader(ctx, src)}
	if err := dstDisk.Write(ctx, dstPath, counter); err != nil {
		return Location{}, fmt.Errorf("write %s to disk %q: %w", dstPath, dstName, err)
	}
	u.metrics.RecordBytes(op, counter.n)

	logger.Debug("Copied %d bytes: %s:%s -> %s:%s", counter.n, loc.Disk, loc.Path, dstName, dstPath)

	return Location{Disk: dstName, Path: dstPath, Name: loc.Name}, nil
}

// sameBackend reports whether two logical disks store their bytes in the same
// place: same logical name, same handle, or same canonical Name(). Distinct
// handles opened over one directory or bucket share a canonical name.
func sameBackend(aName string, a disk.Disk, bName string, b disk.Disk) bool {
	return aName == bName || sameDisk(a, b) || a.Name() == b.Name()
}

// sameDisk reports whether a and b are the same handle. Handles of
// uncomparable dynamic types are never equal.
func sameDisk(a, b disk.Disk) bool {
	if reflect.TypeOf(a) != reflect.TypeOf(b) || !reflect.TypeOf(a).Comparable() {
		return false
	}
	return a == b
}

// Duplicate copies id's bytes and creates a new record for the copy. The
// original upload is not modified.
func (u *Uploads[ID]) Duplicate(ctx context.Context, id ID, opts DuplicateOptions) (newID ID, err error) {
	defer u.observe(OpDuplicate, time.Now(), &err)

	var zero ID

	loc, err := u.Locate(ctx, id)
	if err != nil {
		return zero, err
	}

	dst, err := u.copy(ctx, OpDuplicate, loc, CopyOptions{Disk: opts.Disk, PreservePath: opts.PreservePath})
	if err != nil {
		return zero, err
	}

	meta := opts.Meta
	if meta == nil {
		meta, err = u.repo.GetMeta(ctx, id)
		if err != nil {
			return zero, fmt.Errorf("get metadata: %w", err)
		}
	}

	newID, err = u.repo.Create(ctx, dst, meta)
	if err != nil {
		logger.Warn("Duplicate record not created, bytes orphaned: disk=%s path=%s: %v", dst.Disk, dst.Path, err)
		return zero, fmt.Errorf("create record: %w", err)
	}

	return newID, nil
}

// Transfer moves id to another disk and repoints its record.
//
// The path is preserved unless RegeneratePath is set. Transferring an upload
// onto its own location is a no-op reported through TransferResult.Unchanged,
// not an error.
func (u *Uploads[ID]) Transfer(ctx context.Context, id ID, opts TransferOptions) (res TransferResult[ID], err error) {
	defer u.observe(OpTransfer, time.Now(), &err)

	old, err := u.Locate(ctx, id)
	if err != nil {
		return TransferResult[ID]{}, err
	}

	dst, err := u.copy(ctx, OpTransfer, old, CopyOptions{Disk: opts.Disk, PreservePath: !opts.RegeneratePath})
	if errors.Is(err, ErrPathCollision) {
		logger.Debug("Transfer onto own location, nothing to do: disk=%s path=%s", old.Disk, old.Path)
		return TransferResult[ID]{ID: id, Location: old, Unchanged: true}, nil
	}
	if err != nil {
		return TransferResult[ID]{}, err
	}

	newID, err := u.repo.Update(ctx, id, dst, opts.Meta)
	if err != nil {
		return TransferResult[ID]{}, fmt.Errorf("update record: %w", err)
	}

	if opts.DeleteSource {
		u.deleteSource(ctx, old)
	}

	return TransferResult[ID]{ID: newID, Location: dst}, nil
}

// deleteSource removes the bytes a transfer moved away from.
func (u *Uploads[ID]) deleteSource(ctx context.Context, loc Location) {
	d, err := u.disks.Get(loc.Disk)
	if err == nil {
		err = d.Delete(ctx, loc.Path)
	}
	if err != nil {
		logger.Warn("Failed to delete transferred source, bytes orphaned: disk=%s path=%s: %v", loc.Disk, loc.Path, err)
	}
}
