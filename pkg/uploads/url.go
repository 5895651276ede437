package uploads

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittouploads/pkg/disk"
)

// URL returns the public URL of id, or "" when its disk has none.
func (u *Uploads[ID]) URL(ctx context.Context, id ID) (url string, err error) {
	defer u.observe(OpURL, time.Now(), &err)

	loc, d, err := u.locate(ctx, id)
	if err != nil {
		return "", err
	}
	return disk.URL(d, loc.Path), nil
}

// TemporaryURL returns a URL granting read access to id for expires (zero
// uses disk.DefaultTemporaryURLExpiry).
//
// Disks without temporary URLs yield "", or their public URL when fallback is
// set.
func (u *Uploads[ID]) TemporaryURL(ctx context.Context, id ID, expires time.Duration, fallback bool) (url string, err error) {
	defer u.observe(OpTemporaryURL, time.Now(), &err)

	loc, d, err := u.locate(ctx, id)
	if err != nil {
		return "", err
	}

	url, err = disk.TemporaryURL(ctx, d, loc.Path, expires, fallback)
	if err != nil {
		return "", fmt.Errorf("temporary url for %s on disk %q: %w", loc.Path, loc.Disk, err)
	}
	return url, nil
}
