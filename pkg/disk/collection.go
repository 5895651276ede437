package disk

import (
	"fmt"
	"sort"
	"sync"
)

// Collection maps logical disk names to backends.
//
// The collection does not own the disks it holds: their lifecycle
// (connection pools, open files) belongs to whoever created them.
//
// Thread Safety:
// All methods are safe for concurrent use. Registration is expected to happen
// during startup, lookups on every engine operation.
type Collection struct {
	mu    sync.RWMutex
	disks map[string]Disk
}

// NewCollection creates a collection pre-populated with disks.
func NewCollection(disks map[string]Disk) *Collection {
	c := &Collection{disks: make(map[string]Disk, len(disks))}
	for name, d := range disks {
		c.disks[name] = d
	}
	return c
}

// Register adds d under name, replacing any disk previously registered
// under the same name.
func (c *Collection) Register(name string, d Disk) error {
	if name == "" {
		return fmt.Errorf("disk name is required")
	}
	if d == nil {
		return fmt.Errorf("disk %q: nil disk", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disks == nil {
		c.disks = make(map[string]Disk)
	}
	c.disks[name] = d
	return nil
}

// Get resolves name to a disk.
//
// Returns ErrDiskNotFound (wrapped) for unknown names.
func (c *Collection) Get(name string) (Disk, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, ok := c.disks[name]
	if !ok {
		return nil, fmt.Errorf("disk %q: %w", name, ErrDiskNotFound)
	}
	return d, nil
}

// Has reports whether name is registered.
func (c *Collection) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, ok := c.disks[name]
	return ok
}

// Names returns the registered logical names in sorted order.
func (c *Collection) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.disks))
	for name := range c.disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
