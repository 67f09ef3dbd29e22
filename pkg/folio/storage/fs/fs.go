package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/tendant/folio/pkg/folio"
)

// Backend is a filesystem implementation of the folio.BlobStore interface
type Backend struct {
	baseDir   string
	urlPrefix string
}

// Config options for the filesystem backend
type Config struct {
	BaseDir   string // Base directory for storing files
	URLPrefix string // URL prefix the directory is served under, e.g. "/assets"
}

// New creates a new filesystem storage backend
func New(config Config) (*Backend, error) {
	// Validate and create base directory if it doesn't exist
	if config.BaseDir == "" {
		return nil, errors.New("base directory is required")
	}

	if err := os.MkdirAll(config.BaseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Backend{
		baseDir:   config.BaseDir,
		urlPrefix: strings.TrimRight(config.URLPrefix, "/"),
	}, nil
}

// BaseDir returns the directory objects are written to.
func (b *Backend) BaseDir() string {
	return b.baseDir
}

// resolve maps an object key to a path inside baseDir.
func (b *Backend) resolve(objectKey string) (string, error) {
	cleaned := filepath.Clean("/" + objectKey)
	if cleaned == "/" {
		return "", errors.New("object key is empty")
	}
	return filepath.Join(b.baseDir, filepath.FromSlash(cleaned)), nil
}

// UploadWithParams writes the payload to the filesystem. The MIME type is not
// stored; the file server detects it on read.
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params folio.UploadParams) error {
	filePath, err := b.resolve(params.ObjectKey)
	if err != nil {
		return err
	}

	// Create directory structure if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(filePath)
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// GetPublicURL returns the URL under which the server exposes the file
func (b *Backend) GetPublicURL(ctx context.Context, objectKey string) (string, error) {
	if _, err := b.resolve(objectKey); err != nil {
		return "", err
	}
	return b.urlPrefix + "/" + strings.TrimLeft(objectKey, "/"), nil
}

// ObjectKeyForURL reverses GetPublicURL. Keys that would resolve outside the
// base directory are refused.
func (b *Backend) ObjectKeyForURL(url string) (string, bool) {
	key, ok := strings.CutPrefix(url, b.urlPrefix+"/")
	if !ok || key == "" || path.Clean("/"+key) != "/"+key {
		return "", false
	}
	return key, true
}

// Delete deletes content from the filesystem
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	filePath, err := b.resolve(objectKey)
	if err != nil {
		return err
	}

	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return errors.New("object not found")
	}

	if err := os.Remove(filePath); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	// Clean up empty directories
	b.cleanupEmptyDirectories(filepath.Dir(filePath))

	return nil
}

// cleanupEmptyDirectories recursively removes empty directories up to baseDir
func (b *Backend) cleanupEmptyDirectories(dir string) {
	if filepath.Clean(dir) == filepath.Clean(b.baseDir) {
		return
	}

	if entries, err := os.ReadDir(dir); err == nil && len(entries) == 0 {
		if os.Remove(dir) == nil {
			b.cleanupEmptyDirectories(filepath.Dir(dir))
		}
	}
}
