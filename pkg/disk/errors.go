package disk

import "errors"

// ============================================================================
// Standard Disk Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all disk implementations. Callers should check for them with
// errors.Is; implementations wrap them with the offending path:
//
//	if !exists {
//	    return nil, fmt.Errorf("file %s: %w", path, disk.ErrFileNotFound)
//	}

var (
	// ErrFileNotFound indicates nothing is stored at the requested path.
	//
	// This error is returned when:
	//   - Read() or OpenReader() is called for a path never written
	//   - The content was deleted
	ErrFileNotFound = errors.New("file not found")

	// ErrDiskNotFound indicates a logical disk name is not registered in the
	// collection.
	ErrDiskNotFound = errors.New("disk not found")

	// ErrInvalidPath indicates a path cannot be mapped onto the backend,
	// for example because it escapes the filesystem root.
	ErrInvalidPath = errors.New("invalid path")

	// ErrNotSupported indicates the backend does not implement an operation.
	//
	// This is a permanent error - retrying won't help.
	ErrNotSupported = errors.New("operation not supported")
)
