package uploads

// Location describes exactly one stored byte sequence on exactly one disk.
//
// A Location is a value: operations that move or rename content return a new
// Location and never modify an existing one.
type Location struct {
	// Disk is the logical name the disk is registered under in the
	// collection (not the disk's canonical Name()).
	Disk string `json:"disk"`

	// Path is absolute and prefix-normalized: a single leading "/", no
	// duplicate separators, no surrounding whitespace.
	Path string `json:"path"`

	// Name is the sanitized original file name.
	Name string `json:"name"`
}

// MetadataContextKey is the metadata key callers use to classify an upload.
const MetadataContextKey = "context"

// Metadata is an open set of caller attributes stored next to a Location.
//
// The engine passes metadata through untouched. A nil Metadata means "not
// supplied"; a non-nil empty map means "supplied and empty".
type Metadata map[string]any

// Context returns the "context" attribute, or "" when absent or not a string.
func (m Metadata) Context() string {
	v, _ := m[MetadataContextKey].(string)
	return v
}

// Clone returns a shallow copy of m, preserving nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
