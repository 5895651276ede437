package uploads

import (
	"io"
	"time"
)

// Operation names reported to Metrics.
const (
	OpPlace             = "place"
	OpUpload            = "upload"
	OpUpdate            = "update"
	OpCopy              = "copy"
	OpDuplicate         = "duplicate"
	OpTransfer          = "transfer"
	OpDelete            = "delete"
	OpRead              = "read"
	OpOpenReader        = "open_reader"
	OpTemporaryFile     = "temporary_file"
	OpWithTemporaryFile = "with_temporary_file"
	OpURL               = "url"
	OpTemporaryURL      = "temporary_url"
)

// Metrics receives engine instrumentation.
//
// Implementations must be safe for concurrent use. The Prometheus
// implementation lives in pkg/metrics.
type Metrics interface {
	// ObserveOperation records one finished operation. err is nil on
	// success.
	ObserveOperation(op string, duration time.Duration, err error)

	// RecordBytes records bytes moved to or from a disk by op.
	RecordBytes(op string, n int64)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}
func (noopMetrics) RecordBytes(string, int64)                     {}

// observe is deferred by every public operation with a pointer to its named
// error result.
func (u *Uploads[ID]) observe(op string, start time.Time, errp *error) {
	u.metrics.ObserveOperation(op, time.Since(start), *errp)
}

// countingReader counts bytes read through it.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
