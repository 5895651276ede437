package badger

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittouploads/internal/logger"
	"github.com/marmos91/dittouploads/pkg/repository"
	"github.com/marmos91/dittouploads/pkg/uploads"
)

// keyPrefix namespaces upload records inside the database:
//
//	upload:<uuid> -> JSON repository.Record
const keyPrefix = "upload:"

func keyUpload(id string) []byte {
	return []byte(keyPrefix + id)
}

// BadgerRepository persists upload records in BadgerDB.
//
// Every mutation runs in its own read-write transaction, so concurrent
// updates of the same record are serialized by Badger's conflict detection;
// the loser gets badger.ErrConflict.
type BadgerRepository struct {
	db *badger.DB
}

// BadgerRepositoryConfig configures a BadgerRepository.
type BadgerRepositoryConfig struct {
	// Path is the database directory. Created if missing.
	// Ignored when InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory keeps the database in memory only (tests).
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`
}

// NewBadgerRepository opens (or creates) a Badger-backed repository.
//
// Parameters:
//   - ctx: Context for cancellation
//   - config: Database location and cache sizes
//
// Returns:
//   - *BadgerRepository: Repository ready for use
//   - error: Error if the database cannot be opened or context is cancelled
func NewBadgerRepository(ctx context.Context, config BadgerRepositoryConfig) (*BadgerRepository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if config.Path == "" && !config.InMemory {
		return nil, fmt.Errorf("badger repository: path is required")
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(config.Path)
	}

	// Records are small JSON documents
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.Path, err)
	}

	logger.Debug("Badger repository opened: path=%s in_memory=%t", config.Path, config.InMemory)

	return &BadgerRepository{db: db}, nil
}

// Create stores a new record under a fresh UUID.
func (r *BadgerRepository) Create(ctx context.Context, loc uploads.Location, meta uploads.Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := repository.NewID()
	data, err := repository.Encode(repository.NewRecord(loc, meta))
	if err != nil {
		return "", err
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyUpload(id), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store upload %s: %w", id, err)
	}

	return id, nil
}

// Update repoints id at loc.
func (r *BadgerRepository) Update(ctx context.Context, id string, loc uploads.Location, meta uploads.Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, id)
		if err != nil {
			return err
		}

		data, err := repository.Encode(rec.Apply(loc, meta))
		if err != nil {
			return err
		}
		return txn.Set(keyUpload(id), data)
	})
	if err != nil {
		return "", err
	}

	return id, nil
}

// Delete removes id.
func (r *BadgerRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(keyUpload(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return repository.NotFound(id)
			}
			return fmt.Errorf("failed to get upload %s: %w", id, err)
		}
		return txn.Delete(keyUpload(id))
	})
}

// GetLocation returns the location of id.
func (r *BadgerRepository) GetLocation(ctx context.Context, id string) (uploads.Location, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return uploads.Location{}, err
	}
	return rec.Location, nil
}

// GetMeta returns the metadata of id.
func (r *BadgerRepository) GetMeta(ctx context.Context, id string) (uploads.Metadata, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Meta, nil
}

// Get returns the full record of id.
func (r *BadgerRepository) Get(ctx context.Context, id string) (repository.Record, error) {
	if err := ctx.Err(); err != nil {
		return repository.Record{}, err
	}

	var rec repository.Record
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		rec, err = getRecord(txn, id)
		return err
	})
	return rec, err
}

// Close closes the database.
func (r *BadgerRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

func getRecord(txn *badger.Txn, id string) (repository.Record, error) {
	item, err := txn.Get(keyUpload(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return repository.Record{}, repository.NotFound(id)
	}
	if err != nil {
		return repository.Record{}, fmt.Errorf("failed to get upload %s: %w", id, err)
	}

	var rec repository.Record
	err = item.Value(func(val []byte) error {
		rec, err = repository.Decode(val)
		return err
	})
	return rec, err
}
