// Package disk defines the storage backend capability consumed by the uploads
// engine, plus the collection that resolves logical disk names to backends.
package disk

import (
	"context"
	"io"
	"time"
)

// ============================================================================
// Disk Interface
// ============================================================================

// Disk is a storage backend holding raw upload bytes addressed by path.
//
// A disk manages only bytes. It knows nothing about upload records, metadata
// or identifiers; those live in the repository supplied to the engine. Paths
// are slash-separated, absolute ("/2025/01/02/...") and treated as opaque keys.
//
// Implementations in this module:
//   - memory: map-backed store (tests, ephemeral deployments)
//   - fs: local filesystem rooted at a base directory
//   - s3: Amazon S3 or any S3-compatible object store
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same path have implementation-defined results
// (usually last-write-wins). Callers that need ordering must serialize.
type Disk interface {
	// Name returns the canonical name of the backend.
	//
	// The canonical name describes where the bytes physically live (e.g.
	// "s3://bucket/prefix"). It may differ from the logical name the disk is
	// registered under in a Collection.
	Name() string

	// Write stores everything read from r at path, replacing any existing
	// content. Parent "directories" are created as needed.
	Write(ctx context.Context, path string, r io.Reader) error

	// Read returns the full content stored at path.
	//
	// Returns ErrFileNotFound (wrapped) if nothing is stored at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// OpenReader returns a stream over the content stored at path.
	// The caller must close the returned reader.
	//
	// Returns ErrFileNotFound (wrapped) if nothing is stored at path.
	OpenReader(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the content stored at path.
	//
	// Delete is idempotent: removing a path that holds nothing succeeds.
	Delete(ctx context.Context, path string) error
}

// ============================================================================
// Optional Capabilities
// ============================================================================

// URLGenerator is implemented by disks that can expose stored content at a
// stable public URL.
type URLGenerator interface {
	// URL returns the public URL of path, or "" when the disk is not
	// configured to serve public URLs.
	URL(path string) string
}

// TemporaryURLGenerator is implemented by disks that can issue time-limited
// URLs (e.g. presigned S3 GETs).
type TemporaryURLGenerator interface {
	// TemporaryURL returns a URL granting read access to path for the given
	// duration.
	TemporaryURL(ctx context.Context, path string, expires time.Duration) (string, error)
}

// DefaultTemporaryURLExpiry is used when a temporary URL is requested
// without an explicit expiry.
const DefaultTemporaryURLExpiry = 15 * time.Minute

// URL returns the public URL for path on d, or "" when d does not support
// public URLs.
func URL(d Disk, path string) string {
	gen, ok := d.(URLGenerator)
	if !ok {
		return ""
	}
	return gen.URL(path)
}

// TemporaryURL returns a time-limited URL for path on d.
//
// Disks without temporary URL support yield "" and no error. When fallback is
// true such disks yield their public URL instead (which may itself be "").
// A zero expires uses DefaultTemporaryURLExpiry.
func TemporaryURL(ctx context.Context, d Disk, path string, expires time.Duration, fallback bool) (string, error) {
	if expires <= 0 {
		expires = DefaultTemporaryURLExpiry
	}

	gen, ok := d.(TemporaryURLGenerator)
	if !ok {
		if fallback {
			return URL(d, path), nil
		}
		return "", nil
	}

	return gen.TemporaryURL(ctx, path, expires)
}
