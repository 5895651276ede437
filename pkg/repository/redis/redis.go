package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittouploads/internal/logger"
	"github.com/marmos91/dittouploads/pkg/repository"
	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "dittouploads:upload:"

// RedisRepository stores upload records as JSON strings in Redis, one key per
// upload.
//
// Several processes can share one repository. Update uses WATCH/MULTI so a
// record deleted concurrently is not resurrected; a lost race surfaces as
// redis.TxFailedErr.
type RedisRepository struct {
	client    redis.UniversalClient
	keyPrefix string
	ownClient bool
}

// RedisRepositoryConfig configures a RedisRepository.
type RedisRepositoryConfig struct {
	// URL is a redis:// or rediss:// connection URL.
	// Ignored when Client is set.
	URL string `mapstructure:"url"`

	// KeyPrefix namespaces record keys (default: "dittouploads:upload:").
	KeyPrefix string `mapstructure:"key_prefix"`

	// Client is an existing client. The repository does not close it.
	Client redis.UniversalClient `mapstructure:"-"`
}

// NewRedisRepository connects to Redis and verifies the connection with PING.
func NewRedisRepository(ctx context.Context, config RedisRepositoryConfig) (*RedisRepository, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := config.Client
	ownClient := false
	if client == nil {
		if config.URL == "" {
			return nil, fmt.Errorf("redis repository: url is required")
		}
		opts, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, fmt.Errorf("redis repository: invalid url: %w", err)
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:     []string{opts.Addr},
			Username:  opts.Username,
			Password:  opts.Password,
			DB:        opts.DB,
			TLSConfig: opts.TLSConfig,
		})
		ownClient = true
	}

	if err := client.Ping(ctx).Err(); err != nil {
		if ownClient {
			_ = client.Close()
		}
		return nil, fmt.Errorf("redis repository: ping failed: %w", err)
	}

	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	logger.Debug("Redis repository connected: prefix=%s", prefix)

	return &RedisRepository{client: client, keyPrefix: prefix, ownClient: ownClient}, nil
}

func (r *RedisRepository) key(id string) string {
	return r.keyPrefix + id
}

// Create stores a new record under a fresh UUID.
func (r *RedisRepository) Create(ctx context.Context, loc uploads.Location, meta uploads.Metadata) (string, error) {
	id := repository.NewID()
	data, err := repository.Encode(repository.NewRecord(loc, meta))
	if err != nil {
		return "", err
	}

	ok, err := r.client.SetNX(ctx, r.key(id), data, 0).Result()
	if err != nil {
		return "", fmt.Errorf("failed to store upload %s: %w", id, err)
	}
	if !ok {
		return "", fmt.Errorf("upload %s already exists", id)
	}

	return id, nil
}

// Update repoints id at loc.
func (r *RedisRepository) Update(ctx context.Context, id string, loc uploads.Location, meta uploads.Metadata) (string, error) {
	key := r.key(id)

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := r.get(ctx, tx, id)
		if err != nil {
			return err
		}

		data, err := repository.Encode(rec.Apply(loc, meta))
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return "", err
	}

	return id, nil
}

// Delete removes id.
func (r *RedisRepository) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete upload %s: %w", id, err)
	}
	if n == 0 {
		return repository.NotFound(id)
	}
	return nil
}

// GetLocation returns the location of id.
func (r *RedisRepository) GetLocation(ctx context.Context, id string) (uploads.Location, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return uploads.Location{}, err
	}
	return rec.Location, nil
}

// GetMeta returns the metadata of id.
func (r *RedisRepository) GetMeta(ctx context.Context, id string) (uploads.Metadata, error) {
	rec, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.Meta, nil
}

// Get returns the full record of id.
func (r *RedisRepository) Get(ctx context.Context, id string) (repository.Record, error) {
	return r.get(ctx, r.client, id)
}

// Close closes the client when the repository created it.
func (r *RedisRepository) Close() error {
	if !r.ownClient {
		return nil
	}
	return r.client.Close()
}

func (r *RedisRepository) get(ctx context.Context, c redis.Cmdable, id string) (repository.Record, error) {
	data, err := c.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return repository.Record{}, repository.NotFound(id)
	}
	if err != nil {
		return repository.Record{}, fmt.Errorf("failed to get upload %s: %w", id, err)
	}
	return repository.Decode(data)
}
