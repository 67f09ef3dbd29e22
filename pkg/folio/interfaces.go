package folio

import (
	"context"
	"io"
	"time"
)

// Repository is the persistent key-value table holding section documents.
//
// Implementations must make Upsert a single atomic insert-or-overwrite and
// must release any pooled connection on every return path.
type Repository interface {
	// GetAll returns every stored row. An empty table yields no rows and no error.
	GetAll(ctx context.Context) ([]Entry, error)

	// Get returns the row for key, or ErrSectionNotFound.
	Get(ctx context.Context, key string) (Entry, error)

	// Upsert inserts the key or overwrites its value entirely.
	Upsert(ctx context.Context, key string, value []byte) error

	// DeleteAll clears the table. Only the reseed utility calls it.
	DeleteAll(ctx context.Context) error
}

// BlobStore defines the interface for asset storage backends
type BlobStore interface {
	// UploadWithParams stores the payload under params.ObjectKey
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// GetPublicURL returns the URL the public pages use to fetch the object
	GetPublicURL(ctx context.Context, objectKey string) (string, error)

	// Delete deletes an object
	Delete(ctx context.Context, objectKey string) error
}

// KeyResolver is implemented by blob stores that can map one of their own
// public URLs back to its object key.
type KeyResolver interface {
	ObjectKeyForURL(url string) (string, bool)
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// Metrics receives one observation per store operation.
type Metrics interface {
	ObserveOperation(op string, duration time.Duration, err error)
	ObserveUpload(bytes int64, err error)
}
