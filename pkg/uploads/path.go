package uploads

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// SanitizeFunc turns a client-supplied file name into a storage-safe name.
// Implementations must be idempotent.
type SanitizeFunc func(rawName string) string

// GeneratePathFunc turns a sanitized name into a relative storage path.
// Two calls with the same input must never return the same path.
type GeneratePathFunc func(sanitizedName string) string

// sanitizeMarker replaces every disallowed character.
const sanitizeMarker = "__"

// Sanitize keeps ASCII letters, digits, '-', '_' and '.', and replaces every
// other character with "__". Since the marker only uses allowed characters,
// sanitizing twice is the same as sanitizing once.
func Sanitize(rawName string) string {
	var b strings.Builder
	b.Grow(len(rawName))

	for _, r := range rawName {
		if isAllowedNameRune(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(sanitizeMarker)
	}

	return b.String()
}

func isAllowedNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '_', r == '.':
		return true
	}
	return false
}

var (
	// processStart anchors the tick counter. time.Since on a value returned by
	// time.Now reads the monotonic clock, while its UnixNano is wall time.
	processStart = time.Now()

	// processSalt tells apart processes ticking at the same instant, e.g.
	// several writers sharing one disk.
	processSalt = newProcessSalt()

	// lastTick is the last tick handed out by nextTick.
	lastTick atomic.Int64
)

// saltDigits is the fixed width of processSalt in generated paths.
const saltDigits = 6

func newProcessSalt() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return int64(os.Getpid() % 1_000_000)
	}
	return n.Int64()
}

// nextTick returns the wall-clock time of process start in nanoseconds plus
// the monotonic time elapsed since, bumped so every call returns a value
// strictly greater than the previous one.
func nextTick() int64 {
	now := processStart.UnixNano() + time.Since(processStart).Nanoseconds()
	for {
		prev := lastTick.Load()
		next := now
		if next <= prev {
			next = prev + 1
		}
		if lastTick.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// GeneratePath returns "YYYY/MM/DD/HHmmss-<ticks><salt>-<name>" using the
// current UTC time. The tick component is strictly increasing within the
// process and the fixed-width salt differs between processes, so paths never
// repeat even when many calls land in the same second.
func GeneratePath(sanitizedName string) string {
	tick := nextTick()
	now := time.Now().UTC()
	return fmt.Sprintf("%s-%d%0*d-%s", now.Format("2006/01/02/150405"), tick, saltDigits, processSalt, sanitizedName)
}

// ResolveStoragePath joins prefix and generated into an absolute path.
//
// Surrounding whitespace and separators are trimmed from both parts, empty
// segments are dropped, and the result carries exactly one leading "/":
//
//	ResolveStoragePath(" /uploads/ ", "2025/01/02/x") == "/uploads/2025/01/02/x"
//	ResolveStoragePath("", "/2025/01/02/x")          == "/2025/01/02/x"
func ResolveStoragePath(prefix, generated string) string {
	segments := make([]string, 0, 8)
	for _, part := range []string{prefix, generated} {
		part = strings.Trim(part, " \t\r\n/")
		for _, segment := range strings.Split(part, "/") {
			if segment != "" {
				segments = append(segments, segment)
			}
		}
	}
	return "/" + strings.Join(segments, "/")
}
