package uploads

import "context"

// Repository persists upload records on behalf of the engine.
//
// The identifier type is chosen by the implementation (a numeric key, a UUID,
// a full record). The engine never inspects it; it only threads identifiers
// between repository calls. An identifier stays valid for the same upload from
// Create through any number of Updates until Delete, after which every lookup
// must fail with ErrRecordNotFound.
//
// Bundled implementations live under pkg/repository (memory, badger, redis).
type Repository[ID any] interface {
	// Create stores a new record and returns its identifier.
	// meta may be nil.
	Create(ctx context.Context, loc Location, meta Metadata) (ID, error)

	// Update points id at a new location. A nil meta keeps the stored
	// metadata. The returned identifier refers to the same upload.
	Update(ctx context.Context, id ID, loc Location, meta Metadata) (ID, error)

	// Delete removes the record. Unknown or already deleted identifiers
	// return ErrRecordNotFound.
	Delete(ctx context.Context, id ID) error

	// GetLocation returns where the upload's bytes live.
	GetLocation(ctx context.Context, id ID) (Location, error)

	// GetMeta returns the stored metadata.
	GetMeta(ctx context.Context, id ID) (Metadata, error)
}
