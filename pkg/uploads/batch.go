package uploads

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
)

// File is one entry of UploadMany.
type File struct {
	Reader io.Reader
	Name   string

	// Meta overrides UploadOptions.Meta for this file when non-nil.
	Meta Metadata
}

// UploadMany uploads files concurrently, at most BatchConcurrency at a time.
//
// Every file is an independent Upload touching its own identifier. The
// returned identifiers follow the order of files. On the first failure the
// remaining uploads are cancelled and the error is returned; uploads that
// already succeeded are kept.
func (u *Uploads[ID]) UploadMany(ctx context.Context, files []File, opts UploadOptions) ([]ID, error) {
	ids := make([]ID, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.batchConcurrency)

	for i, file := range files {
		g.Go(func() (err error) {
			defer u.observe(OpUpload, time.Now(), &err)

			fileOpts := opts
			if file.Meta != nil {
				fileOpts.Meta = file.Meta
			}

			id, err := u.upload(gctx, file.Reader, file.Name, fileOpts)
			if err != nil {
				return fmt.Errorf("upload %q: %w", file.Name, err)
			}
			ids[i] = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return ids, err
	}
	return ids, nil
}
