package memory

import (
	"context"
	"sync"

	"github.com/marmos91/dittouploads/pkg/repository"
	"github.com/marmos91/dittouploads/pkg/uploads"
)

// MemoryRepository keeps upload records in a map.
//
// Records are lost when the process exits. Metadata is copied on the way in
// and out, so callers cannot mutate stored records through maps they hold.
//
// Thread Safety:
// All operations are protected by a single read-write mutex.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]repository.Record
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]repository.Record)}
}

// Create stores a new record under a fresh UUID.
func (r *MemoryRepository) Create(ctx context.Context, loc uploads.Location, meta uploads.Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := repository.NewID()

	r.mu.Lock()
	r.records[id] = repository.NewRecord(loc, meta)
	r.mu.Unlock()

	return id, nil
}

// Update repoints id at loc.
func (r *MemoryRepository) Update(ctx context.Context, id string, loc uploads.Location, meta uploads.Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return "", repository.NotFound(id)
	}
	r.records[id] = rec.Apply(loc, meta)

	return id, nil
}

// Delete removes id.
func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return repository.NotFound(id)
	}
	delete(r.records, id)

	return nil
}

// GetLocation returns the location of id.
func (r *MemoryRepository) GetLocation(ctx context.Context, id string) (uploads.Location, error) {
	rec, err := r.get(ctx, id)
	if err != nil {
		return uploads.Location{}, err
	}
	return rec.Location, nil
}

// GetMeta returns a copy of the metadata of id.
func (r *MemoryRepository) GetMeta(ctx context.Context, id string) (uploads.Metadata, error) {
	rec, err := r.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Meta.Clone(), nil
}

// Get returns the full record of id.
func (r *MemoryRepository) Get(ctx context.Context, id string) (repository.Record, error) {
	rec, err := r.get(ctx, id)
	if err != nil {
		return repository.Record{}, err
	}
	rec.Meta = rec.Meta.Clone()
	return rec, nil
}

// Len returns the number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Close is a no-op.
func (r *MemoryRepository) Close() error {
	return nil
}

func (r *MemoryRepository) get(ctx context.Context, id string) (repository.Record, error) {
	if err := ctx.Err(); err != nil {
		return repository.Record{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return repository.Record{}, repository.NotFound(id)
	}
	return rec, nil
}
