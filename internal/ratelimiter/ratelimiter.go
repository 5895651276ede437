// Package ratelimiter throttles byte streams with a token bucket.
//
// One token is one byte. A single Limiter is shared by every stream it wraps,
// so the configured rate bounds the aggregate throughput of concurrent
// uploads, not each of them separately.
package ratelimiter

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Limiter bounds the number of bytes per second flowing through the readers
// it wraps.
//
// A nil *Limiter is valid and imposes no limit.
//
// Thread safety:
// All methods are safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing bytesPerSecond sustained throughput with
// bursts of up to burst bytes.
//
// Special cases:
//   - bytesPerSecond <= 0: no limit, New returns nil
//   - burst <= 0: one second worth of bytes
//
// Example:
//
//	// 8 MiB/s sustained, 16 MiB bursts
//	limiter := New(8<<20, 16<<20)
func New(bytesPerSecond, burst int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = bytesPerSecond
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSecond), int(burst)),
	}
}

// Limit returns the sustained rate in bytes per second (0 when unlimited).
func (l *Limiter) Limit() int64 {
	if l == nil {
		return 0
	}
	return int64(l.limiter.Limit())
}

// Burst returns the bucket capacity in bytes (0 when unlimited).
func (l *Limiter) Burst() int {
	if l == nil {
		return 0
	}
	return l.limiter.Burst()
}

// WaitN blocks until n bytes may pass or ctx is done.
//
// Unlike rate.Limiter.WaitN, n may exceed the burst: the wait is split into
// burst-sized chunks.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if l == nil {
		return ctx.Err()
	}

	burst := l.limiter.Burst()
	for n > 0 {
		chunk := min(n, burst)
		if err := l.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Reader wraps r so that reads are paced by the limiter. Waiting honours
// ctx: once it is done, reads fail with its error.
//
// A nil Limiter returns r unchanged.
func (l *Limiter) Reader(ctx context.Context, r io.Reader) io.Reader {
	if l == nil {
		return r
	}
	return &limitedReader{ctx: ctx, r: r, l: l}
}

type limitedReader struct {
	ctx context.Context
	r   io.Reader
	l   *Limiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	// Never read more than the bucket can hold, so one read needs one wait.
	if burst := lr.l.limiter.Burst(); len(p) > burst {
		p = p[:burst]
	}

	n, err := lr.r.Read(p)
	if n > 0 {
		if werr := lr.l.limiter.WaitN(lr.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}
