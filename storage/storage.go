// Package storage holds uploaded file bodies. Buckets are named after the
// workspace kind (see db.BucketForKind); keys are generated by ObjectKey.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Classes of storage failure surfaced to callers.
var (
	ErrPermission = errors.New("storage permission denied")
	ErrIntegrity  = errors.New("storage integrity violation")
)

// ObjectStore is the minimal object API the core needs.
type ObjectStore interface {
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// ObjectKey builds the storage key for an upload: the UTC date of the
// upload, then the epoch milliseconds joined to the base name.
//
//	2025-01-15/1736899200000-report.pdf
func ObjectKey(now time.Time, filename string) string {
	now = now.UTC()
	return fmt.Sprintf("%s/%d-%s", now.Format("2006-01-02"), now.UnixMilli(), baseName(filename))
}

func baseName(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
