package uploads

import (
	"errors"

	"github.com/marmos91/dittouploads/pkg/disk"
)

// ============================================================================
// Engine Errors
// ============================================================================

// Callers should check for these errors with errors.Is. Everything else an
// operation returns comes from a disk or the repository and is wrapped, never
// replaced:
//
//	id, err := engine.Upload(ctx, r, "report.pdf", uploads.UploadOptions{})
//	if errors.Is(err, uploads.ErrDiskNotFound) {
//	    // unknown logical disk name
//	}

var (
	// ErrInvalidConfiguration indicates the engine cannot be constructed.
	//
	// This error is returned when:
	//   - No repository is supplied
	//   - Neither a disk collection nor disk configurations are supplied
	//   - Both are supplied
	//   - The disk configurations fail to build
	//   - The default disk is not part of the collection
	//
	// It is only returned by New; fix the configuration and reconstruct.
	ErrInvalidConfiguration = errors.New("invalid uploads configuration")

	// ErrPathCollision indicates a copy would write onto its own source: same
	// disk, same path.
	//
	// Copy and Duplicate return it. Transfer turns it into an unchanged result.
	ErrPathCollision = errors.New("destination path collides with source")

	// ErrRecordNotFound indicates the repository cannot resolve an identifier.
	//
	// Repositories return it (wrapped) for unknown or deleted identifiers.
	ErrRecordNotFound = errors.New("upload record not found")

	// ErrDiskNotFound indicates an unknown logical disk name.
	ErrDiskNotFound = disk.ErrDiskNotFound
)
