package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittouploads/internal/logger"
	"github.com/marmos91/dittouploads/pkg/disk"
)

// S3Disk implements disk.Disk using Amazon S3 or S3-compatible storage.
//
// This implementation provides:
//   - Full disk.Disk support (read, stream, write, delete)
//   - Multipart uploads for content larger than one part
//   - Public URLs when PublicURL is configured (disk.URLGenerator)
//   - Presigned GET URLs (disk.TemporaryURLGenerator)
//
// Path-Based Key Design:
//   - The upload path is used as the object key, without its leading "/"
//   - An optional key prefix is prepended to every key
//   - The bucket mirrors the date-based layout of generated upload paths
//
// Example:
//
//	Path:       "/2025/01/02/120000-17-report.pdf"
//	Key Prefix: "uploads/"
//	S3 Key:     "uploads/2025/01/02/120000-17-report.pdf"
//
// Thread Safety:
// This implementation is safe for concurrent use by multiple goroutines.
// Concurrent writes to the same path result in last-write-wins behavior.
type S3Disk struct {
	client    *s3.Client
	presign   *s3.PresignClient
	bucket    string
	keyPrefix string // Optional prefix for all keys
	publicURL string // Optional public base URL, no trailing slash
	partSize  int64  // Size for multipart upload parts (default: 10MB)
}

// S3DiskConfig contains configuration for an S3 disk.
type S3DiskConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "uploads/" results in keys like "uploads/2025/01/02/..."
	KeyPrefix string

	// PublicURL is the optional public base URL objects are served under
	// (bucket website, CDN). Empty disables URL().
	PublicURL string

	// PartSize is the size of each part for multipart uploads (default: 10MB)
	// Must be between 5MB and 5GB
	PartSize int64

	// SkipBucketCheck disables the HeadBucket check at construction time
	SkipBucketCheck bool
}

const (
	minPartSize     = 5 * 1024 * 1024
	maxPartSize     = 5 * 1024 * 1024 * 1024
	defaultPartSize = 10 * 1024 * 1024
)

// NewS3Disk creates a new S3-based disk.
//
// This verifies bucket access unless SkipBucketCheck is set. The bucket must
// already exist - this function does not create it.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3Disk: Initialized S3 disk
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3Disk(ctx context.Context, cfg S3DiskConfig) (*S3Disk, error) {
	// ========================================================================
	// Step 1: Check context before S3 operations
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Validate configuration
	// ========================================================================

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	partSize := cfg.PartSize
	if partSize == 0 {
		partSize = defaultPartSize
	}

	// Validate part size (S3 limits: 5MB to 5GB)
	if partSize < minPartSize {
		return nil, fmt.Errorf("part size must be at least 5MB, got %d bytes", partSize)
	}
	if partSize > maxPartSize {
		return nil, fmt.Errorf("part size must be at most 5GB, got %d bytes", partSize)
	}

	// ========================================================================
	// Step 3: Verify bucket access
	// ========================================================================

	if !cfg.SkipBucketCheck {
		_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
			Bucket: aws.String(cfg.Bucket),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &S3Disk{
		client:    cfg.Client,
		presign:   s3.NewPresignClient(cfg.Client),
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		partSize:  partSize,
	}, nil
}

// Name returns "s3://<bucket>/<prefix>".
func (d *S3Disk) Name() string {
	return "s3://" + d.bucket + "/" + d.keyPrefix
}

// getObjectKey returns the full S3 object key for a given upload path.
func (d *S3Disk) getObjectKey(path string) string {
	return d.keyPrefix + strings.TrimLeft(path, "/")
}

// isNotFound reports whether err is one of the S3 "missing object" errors.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}

// Write uploads everything read from r to path.
//
// Content up to one part size goes through a single PutObject. Larger content
// is streamed as a multipart upload, so at most one part is held in memory.
func (d *S3Disk) Write(ctx context.Context, path string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := d.getObjectKey(path)

	// Read up to one part to decide between PutObject and multipart
	var first bytes.Buffer
	if _, err := first.ReadFrom(io.LimitReader(r, d.partSize)); err != nil {
		return fmt.Errorf("failed to read content for %s: %w", path, err)
	}

	if int64(first.Len()) < d.partSize {
		return d.putObject(ctx, key, first.Bytes())
	}

	return d.multipartUpload(ctx, key, first.Bytes(), r)
}

func (d *S3Disk) putObject(ctx context.Context, key string, data []byte) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(d.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s: %w", key, err)
	}
	return nil
}

// multipartUpload uploads first followed by the rest of r in partSize chunks.
// The upload is aborted on any failure so no incomplete parts linger.
func (d *S3Disk) multipartUpload(ctx context.Context, key string, first []byte, r io.Reader) (err error) {
	created, err := d.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to create multipart upload: %w", err)
	}
	uploadID := created.UploadId

	defer func() {
		if err == nil {
			return
		}
		_, abortErr := d.client.AbortMultipartUpload(context.WithoutCancel(ctx), &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(d.bucket),
			Key:      aws.String(key),
			UploadId: uploadID,
		})
		var noSuchUpload *types.NoSuchUpload
		if abortErr != nil && !errors.As(abortErr, &noSuchUpload) {
			logger.Warn("S3 multipart abort failed for %s: %v", key, abortErr)
		}
	}()

	var parts []types.CompletedPart
	buf := first
	for partNumber := int32(1); ; partNumber++ {
		result, err := d.client.UploadPart(ctx, &s3.UploadPartInput{
			Bucket:     aws.String(d.bucket),
			Key:        aws.String(key),
			UploadId:   uploadID,
			PartNumber: aws.Int32(partNumber),
			Body:       bytes.NewReader(buf),
		})
		if err != nil {
			return fmt.Errorf("failed to upload part %d: %w", partNumber, err)
		}
		parts = append(parts, types.CompletedPart{
			ETag:       result.ETag,
			PartNumber: aws.Int32(partNumber),
		})

		next := make([]byte, d.partSize)
		n, readErr := io.ReadFull(r, next)
		if n == 0 && (errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF)) {
			break
		}
		if readErr != nil && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			return fmt.Errorf("failed to read content: %w", readErr)
		}
		buf = next[:n]
	}

	_, err = d.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(d.bucket),
		Key:      aws.String(key),
		UploadId: uploadID,
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: parts,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	return nil
}

// Read downloads the full object stored at path.
func (d *S3Disk) Read(ctx context.Context, path string) ([]byte, error) {
	reader, err := d.OpenReader(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

// OpenReader returns the body of the object stored at path.
//
// The S3 GetObject operation respects context cancellation. If the context is
// cancelled during download, the reader will return an error.
func (d *S3Disk) OpenReader(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.getObjectKey(path)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("file %s: %w", path, disk.ErrFileNotFound)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return result.Body, nil
}

// Delete removes the object stored at path.
//
// S3 DeleteObject already succeeds for missing keys, which gives the
// idempotency disk.Disk requires.
func (d *S3Disk) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := d.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.getObjectKey(path)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// URL returns PublicURL joined with the object key, or "" when no public URL
// is configured.
func (d *S3Disk) URL(path string) string {
	if d.publicURL == "" {
		return ""
	}
	return d.publicURL + "/" + d.getObjectKey(path)
}

// TemporaryURL returns a presigned GET URL for the object stored at path.
//
// Presigning is a local signing operation; no request reaches S3 and the
// object's existence is not checked.
func (d *S3Disk) TemporaryURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	req, err := d.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.getObjectKey(path)),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", path, err)
	}
	return req.URL, nil
}
