package crudboot

import (
	"context"
	"io"
	"time"
)

// FileService stores binary objects next to the relational data, for
// example images of a record keyed by its primary key.
type FileService interface {
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error

	// DownloadURL and UploadURL return presigned URLs valid for expiry.
	DownloadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	UploadURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}
