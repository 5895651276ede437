// Package uploads orchestrates the lifecycle of uploaded files.
//
// The engine places raw bytes on one of several disks and records where they
// live through a caller-supplied Repository. Disks and repository cannot be
// updated atomically together, so every operation orders its steps to keep
// the repository pointer consistent:
//
//   - new bytes are written before old bytes are deleted
//   - records are deleted before their files
//   - failures after a write leave orphaned bytes, never a dangling pointer
//
// Orphaned bytes are not cleaned up automatically and nothing is retried.
// Concurrent operations on the same identifier are not serialized; callers
// that need that must hold their own per-identifier lock.
package uploads

import (
	"context"
	"fmt"
	"os"

	"github.com/marmos91/dittouploads/internal/logger"
	"github.com/marmos91/dittouploads/internal/ratelimiter"
	"github.com/marmos91/dittouploads/pkg/disk"
	"github.com/marmos91/dittouploads/pkg/disk/factory"
)

// DefaultDiskName is used when Options.DefaultDisk is empty.
const DefaultDiskName = "default"

// DefaultBatchConcurrency bounds UploadMany when Options.BatchConcurrency is
// zero.
const DefaultBatchConcurrency = 4

// Options configures an engine. It is read once by New and never again.
type Options[ID any] struct {
	// Disks is an existing disk collection. Exactly one of Disks and
	// DiskConfigs must be set.
	Disks *disk.Collection

	// DiskConfigs describes disks to build through the disk factory, keyed by
	// logical name.
	DiskConfigs map[string]factory.Config

	// Repository persists upload records. Required.
	Repository Repository[ID]

	// DefaultDisk is the logical disk used when an operation names none.
	// Defaults to "default". Must exist in the collection.
	DefaultDisk string

	// Sanitize overrides the file name sanitizer. Defaults to Sanitize.
	Sanitize SanitizeFunc

	// GeneratePath overrides the path generator. Defaults to GeneratePath.
	// Overrides must keep the same-input-different-output guarantee.
	GeneratePath GeneratePathFunc

	// PathPrefix is the root segment prepended to every generated path.
	PathPrefix string

	// TempDir is where temporary files are materialized. Defaults to
	// os.TempDir().
	TempDir string

	// BatchConcurrency bounds concurrent uploads in UploadMany.
	BatchConcurrency int

	// Metrics receives instrumentation. Defaults to a no-op.
	Metrics Metrics

	// BandwidthLimit caps the bytes per second written to disks, shared by
	// all operations of the engine. Zero means unlimited.
	BandwidthLimit int64

	// BandwidthBurst is the largest burst above BandwidthLimit, in bytes.
	// Defaults to one second worth of BandwidthLimit.
	BandwidthBurst int64
}

// Uploads is the upload orchestration engine.
//
// Uploads holds no mutable state after construction and is safe for
// concurrent use. It does not own the disks or the repository: closing them
// is the caller's job.
type Uploads[ID any] struct {
	disks            *disk.Collection
	repo             Repository[ID]
	defaultDisk      string
	sanitize         SanitizeFunc
	generatePath     GeneratePathFunc
	pathPrefix       string
	tempDir          string
	batchConcurrency int
	metrics          Metrics
	bandwidth        *ratelimiter.Limiter
}

// New validates opts and builds an engine.
//
// Construction is fail-fast: every configuration problem is reported here
// (wrapping ErrInvalidConfiguration) rather than on first use.
func New[ID any](ctx context.Context, opts Options[ID]) (*Uploads[ID], error) {
	// ========================================================================
	// Step 1: Validate required collaborators
	// ========================================================================

	if opts.Repository == nil {
		return nil, fmt.Errorf("%w: repository is required", ErrInvalidConfiguration)
	}

	if opts.Disks == nil && opts.DiskConfigs == nil {
		return nil, fmt.Errorf("%w: disks or disk configurations are required", ErrInvalidConfiguration)
	}

	if opts.Disks != nil && opts.DiskConfigs != nil {
		return nil, fmt.Errorf("%w: disks and disk configurations are mutually exclusive", ErrInvalidConfiguration)
	}

	// ========================================================================
	// Step 2: Resolve the disk collection
	// ========================================================================

	disks := opts.Disks
	if disks == nil {
		built, err := factory.NewCollection(ctx, opts.DiskConfigs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
		}
		disks = built
	}

	defaultDisk := opts.DefaultDisk
	if defaultDisk == "" {
		defaultDisk = DefaultDiskName
	}

	if !disks.Has(defaultDisk) {
		return nil, fmt.Errorf("%w: default disk %q is not configured (have %v)",
			ErrInvalidConfiguration, defaultDisk, disks.Names())
	}

	// ========================================================================
	// Step 3: Apply defaults for the optional hooks
	// ========================================================================

	u := &Uploads[ID]{
		disks:            disks,
		repo:             opts.Repository,
		defaultDisk:      defaultDisk,
		sanitize:         opts.Sanitize,
		generatePath:     opts.GeneratePath,
		pathPrefix:       opts.PathPrefix,
		tempDir:          opts.TempDir,
		batchConcurrency: opts.BatchConcurrency,
		metrics:          opts.Metrics,
		bandwidth:        ratelimiter.New(opts.BandwidthLimit, opts.BandwidthBurst),
	}

	if u.sanitize == nil {
		u.sanitize = Sanitize
	}
	if u.generatePath == nil {
		u.generatePath = GeneratePath
	}
	if u.tempDir == "" {
		u.tempDir = os.TempDir()
	}
	if u.batchConcurrency <= 0 {
		u.batchConcurrency = DefaultBatchConcurrency
	}
	if u.metrics == nil {
		u.metrics = noopMetrics{}
	}

	logger.Debug("Uploads engine ready: disks=%v default=%s prefix=%q bandwidth=%d B/s",
		disks.Names(), defaultDisk, u.pathPrefix, u.bandwidth.Limit())

	return u, nil
}

// DefaultDisk returns the logical name used when an operation names no disk.
func (u *Uploads[ID]) DefaultDisk() string {
	return u.defaultDisk
}

// Disks returns the engine's disk collection.
func (u *Uploads[ID]) Disks() *disk.Collection {
	return u.disks
}

// Locate returns the location recorded for id.
func (u *Uploads[ID]) Locate(ctx context.Context, id ID) (Location, error) {
	loc, err := u.repo.GetLocation(ctx, id)
	if err != nil {
		return Location{}, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}

// resolveDisk maps an optional logical name to a disk, falling back to the
// default disk. It returns the logical name actually used.
func (u *Uploads[ID]) resolveDisk(name string) (string, disk.Disk, error) {
	if name == "" {
		name = u.defaultDisk
	}
	d, err := u.disks.Get(name)
	if err != nil {
		return "", nil, err
	}
	return name, d, nil
}

// storagePath names a new file for a sanitized name.
func (u *Uploads[ID]) storagePath(sanitizedName string) string {
	return ResolveStoragePath(u.pathPrefix, u.generatePath(sanitizedName))
}

// locate fetches the location of id and resolves its disk.
func (u *Uploads[ID]) locate(ctx context.Context, id ID) (Location, disk.Disk, error) {
	loc, err := u.Locate(ctx, id)
	if err != nil {
		return Location{}, nil, err
	}
	d, err := u.disks.Get(loc.Disk)
	if err != nil {
		return Location{}, nil, err
	}
	return loc, d, nil
}
