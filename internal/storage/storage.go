// Package storage abstracts the external image host. The rest of the
// application sees an opaque upload/delete API keyed by an identifier
// and returning a public URL; the production backend is MinIO
// compatible, tests use an in-memory fake.
package storage

import (
	"context"
	"io"
)

// UploadResult describes an object accepted by the image host.
type UploadResult struct {
	// StorageID is the opaque key the host knows the object by.
	StorageID string
	// URL is the publicly reachable address of the object.
	URL string
}

// ImageStore is the boundary to the external image host.
type ImageStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*UploadResult, error)
	Delete(ctx context.Context, key string) error
}
