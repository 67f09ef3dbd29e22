package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/tendant/folio/pkg/folio"
)

// Config options for the in-memory backend
type Config struct {
	URLPrefix string // prefix for public URLs, e.g. "https://cdn.example.com"
}

// Backend is an in-memory implementation of the folio.BlobStore interface
type Backend struct {
	mu              sync.RWMutex
	objects         map[string][]byte
	objectsMimeType map[string]string
	urlPrefix       string
}

// New creates a new in-memory storage backend
func New(config Config) *Backend {
	return &Backend{
		objects:         make(map[string][]byte),
		objectsMimeType: make(map[string]string),
		urlPrefix:       strings.TrimRight(config.URLPrefix, "/"),
	}
}

// UploadWithParams stores the payload and its MIME type
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params folio.UploadParams) error {
	if params.ObjectKey == "" {
		return errors.New("object key is empty")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	mimeType := params.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[params.ObjectKey] = data
	b.objectsMimeType[params.ObjectKey] = mimeType
	return nil
}

// GetPublicURL returns URLPrefix/key. The object need not exist.
func (b *Backend) GetPublicURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", errors.New("object key is empty")
	}
	return b.urlPrefix + "/" + objectKey, nil
}

// ObjectKeyForURL reverses GetPublicURL.
func (b *Backend) ObjectKeyForURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, b.urlPrefix+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Download returns a reader over a stored object
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// MimeType returns the content type recorded at upload time
func (b *Backend) MimeType(objectKey string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	mt, ok := b.objectsMimeType[objectKey]
	return mt, ok
}

// Len reports the number of stored objects.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.objects)
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}

	delete(b.objects, objectKey)
	delete(b.objectsMimeType, objectKey)
	return nil
}
