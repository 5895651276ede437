// Package factory builds disks from configuration sections keyed by backend
// kind ("memory", "filesystem", "s3").
package factory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittouploads/internal/logger"
	"github.com/marmos91/dittouploads/pkg/disk"
	diskfs "github.com/marmos91/dittouploads/pkg/disk/fs"
	diskmemory "github.com/marmos91/dittouploads/pkg/disk/memory"
	disks3 "github.com/marmos91/dittouploads/pkg/disk/s3"
	"github.com/mitchellh/mapstructure"
)

// Supported disk kinds.
const (
	KindMemory     = "memory"
	KindFilesystem = "filesystem"
	KindS3         = "s3"
)

// Config specifies a single disk.
//
// The Type field determines which implementation is used.
// Only the corresponding type-specific configuration section is used.
type Config struct {
	// Type specifies which disk implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem,omitempty"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory,omitempty"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3,omitempty"`
}

// NewCollection builds every configured disk and registers it under its
// logical name.
//
// Construction stops at the first failing disk; disks already built are not
// closed since none of the bundled kinds hold releasable resources.
func NewCollection(ctx context.Context, configs map[string]Config) (*disk.Collection, error) {
	collection := disk.NewCollection(nil)

	for name, cfg := range configs {
		d, err := New(ctx, name, cfg)
		if err != nil {
			return nil, fmt.Errorf("disk %q: %w", name, err)
		}
		if err := collection.Register(name, d); err != nil {
			return nil, err
		}
	}

	return collection, nil
}

// New creates a disk based on configuration.
//
// This factory function uses the Type field to determine which implementation
// to create, then decodes the type-specific configuration from the
// corresponding map and passes it to the disk's constructor.
//
// Parameters:
//   - ctx: Context for initialization operations
//   - name: Logical disk name (used as the memory disk's canonical name)
//   - cfg: Disk configuration
//
// Returns:
//   - disk.Disk: Initialized disk
//   - error: Configuration or initialization error
func New(ctx context.Context, name string, cfg Config) (disk.Disk, error) {
	switch cfg.Type {
	case KindFilesystem:
		return createFilesystemDisk(ctx, cfg.Filesystem)
	case KindMemory:
		return createMemoryDisk(ctx, name, cfg.Memory)
	case KindS3:
		return createS3Disk(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown disk type: %q", cfg.Type)
	}
}

// createFilesystemDisk creates a filesystem-backed disk.
func createFilesystemDisk(ctx context.Context, options map[string]any) (disk.Disk, error) {
	var diskCfg diskfs.FSDiskConfig
	if err := mapstructure.Decode(options, &diskCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem disk config: %w", err)
	}

	if diskCfg.Path == "" {
		return nil, fmt.Errorf("filesystem disk: path is required")
	}

	d, err := diskfs.NewFSDisk(ctx, diskCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem disk: %w", err)
	}

	logger.Debug("Filesystem disk initialized: path=%s", diskCfg.Path)
	return d, nil
}

// createMemoryDisk creates an in-memory disk.
func createMemoryDisk(ctx context.Context, name string, options map[string]any) (disk.Disk, error) {
	var diskCfg struct {
		Name string `mapstructure:"name"`
	}
	if err := mapstructure.Decode(options, &diskCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory disk config: %w", err)
	}

	if diskCfg.Name == "" {
		diskCfg.Name = "memory:" + name
	}

	return diskmemory.NewMemoryDisk(ctx, diskCfg.Name)
}

// s3DiskOptions mirrors the s3 section of a disk configuration.
type s3DiskOptions struct {
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	PublicURL       string `mapstructure:"public_url"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	PartSize        int64  `mapstructure:"part_size"`
	MaxRetries      int    `mapstructure:"max_retries"`
	SkipBucketCheck bool   `mapstructure:"skip_bucket_check"`
}

// createS3Disk creates an S3-based disk.
func createS3Disk(ctx context.Context, options map[string]any) (disk.Disk, error) {
	var diskCfg s3DiskOptions
	if err := mapstructure.Decode(options, &diskCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 disk config: %w", err)
	}

	if diskCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 disk: bucket is required")
	}

	if diskCfg.Region == "" {
		return nil, fmt.Errorf("S3 disk: region is required")
	}

	client, err := newS3Client(ctx, diskCfg)
	if err != nil {
		return nil, err
	}

	d, err := disks3.NewS3Disk(ctx, disks3.S3DiskConfig{
		Client:          client,
		Bucket:          diskCfg.Bucket,
		KeyPrefix:       diskCfg.KeyPrefix,
		PublicURL:       diskCfg.PublicURL,
		PartSize:        diskCfg.PartSize,
		SkipBucketCheck: diskCfg.SkipBucketCheck,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 disk: %w", err)
	}

	logger.Info("S3 disk initialized: bucket=%s, region=%s, prefix=%s",
		diskCfg.Bucket, diskCfg.Region, diskCfg.KeyPrefix)

	return d, nil
}

// newS3Client builds an S3 client from the decoded options.
func newS3Client(ctx context.Context, diskCfg s3DiskOptions) (*s3.Client, error) {
	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(diskCfg.Region),
	}

	// Set credentials if provided, otherwise use default credential chain
	if diskCfg.AccessKeyID != "" && diskCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			diskCfg.AccessKeyID,
			diskCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts (AWS default is 3)
	maxRetries := diskCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if diskCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(diskCfg.Endpoint)
			o.UsePathStyle = true
		}
		if diskCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}
