package config

import (
	"context"
	"fmt"

	"github.com/marmos91/dittouploads/pkg/repository"
	badgerrepo "github.com/marmos91/dittouploads/pkg/repository/badger"
	"github.com/marmos91/dittouploads/pkg/repository/memory"
	redisrepo "github.com/marmos91/dittouploads/pkg/repository/redis"
	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/mitchellh/mapstructure"
)

// CreateRepository creates a repository based on configuration.
//
// Parameters:
//   - ctx: Context for initialization
//   - cfg: Repository configuration
//
// Returns:
//   - repository.Repository: Initialized repository, owned by the caller
//   - error: Configuration or initialization error
func CreateRepository(ctx context.Context, cfg *RepositoryConfig) (repository.Repository, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewMemoryRepository(), nil
	case "badger":
		return createBadgerRepository(ctx, cfg.Badger)
	case "redis":
		return createRedisRepository(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown repository type: %q", cfg.Type)
	}
}

// createBadgerRepository creates a BadgerDB repository.
func createBadgerRepository(ctx context.Context, options map[string]any) (repository.Repository, error) {
	var badgerCfg badgerrepo.BadgerRepositoryConfig
	if err := mapstructure.Decode(options, &badgerCfg); err != nil {
		return nil, fmt.Errorf("invalid badger config: %w", err)
	}

	repo, err := badgerrepo.NewBadgerRepository(ctx, badgerCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create badger repository: %w", err)
	}
	return repo, nil
}

// createRedisRepository creates a Redis repository.
func createRedisRepository(ctx context.Context, options map[string]any) (repository.Repository, error) {
	var redisCfg redisrepo.RedisRepositoryConfig
	if err := mapstructure.Decode(options, &redisCfg); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	repo, err := redisrepo.NewRedisRepository(ctx, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis repository: %w", err)
	}
	return repo, nil
}

// CreateUploads builds the engine from configuration on top of repo.
//
// Disks are built from cfg.Disks through the disk factory. metrics may be
// nil, in which case nothing is recorded.
func CreateUploads(ctx context.Context, cfg *Config, repo repository.Repository, metrics uploads.Metrics) (*uploads.Uploads[string], error) {
	engine, err := uploads.New(ctx, uploads.Options[string]{
		DiskConfigs:      cfg.Disks,
		Repository:       repo,
		DefaultDisk:      cfg.Uploads.DefaultDisk,
		PathPrefix:       cfg.Uploads.PathPrefix,
		TempDir:          cfg.Uploads.TempDir,
		BatchConcurrency: cfg.Uploads.BatchConcurrency,
		Metrics:          metrics,
		BandwidthLimit:   cfg.Uploads.BandwidthLimit,
		BandwidthBurst:   cfg.Uploads.BandwidthBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create uploads engine: %w", err)
	}
	return engine, nil
}
