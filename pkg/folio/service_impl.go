package folio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// service implements the Service interface
type service struct {
	repository Repository
	blobStore  BlobStore
	metrics    Metrics
	logger     *slog.Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the asset storage backend
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithMetrics sets the operation metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		metrics: NewNoopMetrics(),
		logger:  slog.Default(),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

// Section reads

func (s *service) GetAll(ctx context.Context) (content Content, err error) {
	defer s.observe("get_all", time.Now(), &err)

	rows, err := s.repository.GetAll(ctx)
	if err != nil {
		return nil, storageErr(err)
	}

	content = make(Content, len(rows))
	var badKeys []string
	for _, row := range rows {
		value, decodeErr := decodeValue(row.Value)
		if decodeErr != nil {
			badKeys = append(badKeys, row.Key)
			continue
		}
		content[row.Key] = value
	}

	if len(badKeys) > 0 {
		s.logger.Warn("Undecodable sections skipped", "keys", badKeys)
		return content, &DecodeError{Keys: badKeys}
	}
	return content, nil
}

func (s *service) Get(ctx context.Context, key string) (value json.RawMessage, err error) {
	defer s.observe("get", time.Now(), &err)

	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	row, err := s.repository.Get(ctx, key)
	if err != nil {
		return nil, storageErr(err)
	}

	value, err = decodeValue(row.Value)
	if err != nil {
		return nil, &DecodeError{Keys: []string{key}}
	}
	return value, nil
}

// Section writes

func (s *service) UpsertMany(ctx context.Context, entries map[string]any) (err error) {
	defer s.observe("upsert_many", time.Now(), &err)
	return s.upsertSorted(ctx, "upsert", entries)
}

// upsertSorted writes entries in ascending key order and stops at the first
// failure. Earlier keys stay written.
func (s *service) upsertSorted(ctx context.Context, op string, entries map[string]any) error {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	applied := make([]string, 0, len(keys))
	for _, key := range keys {
		if err := ValidateKey(key); err != nil {
			return &UpsertError{Key: key, Op: op, Applied: applied, Err: err}
		}

		encoded, err := encodeValue(entries[key])
		if err != nil {
			return &UpsertError{Key: key, Op: op, Applied: applied, Err: err}
		}

		if err := s.repository.Upsert(ctx, key, encoded); err != nil {
			s.logger.Error("Failed to upsert section", "key", key, "applied", applied, "error", err)
			return &UpsertError{Key: key, Op: op, Applied: applied, Err: storageErr(err)}
		}
		applied = append(applied, key)
	}

	return nil
}

func (s *service) UpsertSingleMerged(ctx context.Context, key string, partialFields map[string]any) (merged json.RawMessage, err error) {
	defer s.observe("upsert_merged", time.Now(), &err)
	return s.mergeInto(ctx, key, partialFields)
}

func (s *service) mergeInto(ctx context.Context, key string, partialFields map[string]any) (json.RawMessage, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	var existing []byte
	row, err := s.repository.Get(ctx, key)
	switch {
	case err == nil:
		existing = row.Value
	case errors.Is(err, ErrSectionNotFound):
		// absent documents merge as {}
	default:
		return nil, storageErr(err)
	}

	merged, err := ShallowMerge(existing, partialFields)
	if err != nil {
		return nil, &UpsertError{Key: key, Op: "merge", Err: err}
	}

	if err := s.repository.Upsert(ctx, key, merged); err != nil {
		return nil, &UpsertError{Key: key, Op: "merge", Err: storageErr(err)}
	}
	return merged, nil
}

// Asset operations

func (s *service) UploadAsset(ctx context.Context, req UploadAssetRequest) (asset *Asset, err error) {
	defer s.observe("upload_asset", time.Now(), &err)
	return s.upload(ctx, req)
}

func (s *service) AttachAsset(ctx context.Context, req AttachAssetRequest) (asset *Asset, err error) {
	defer s.observe("attach_asset", time.Now(), &err)

	if err := ValidateKey(req.Section); err != nil {
		return nil, err
	}
	if req.Field == "" {
		return nil, fmt.Errorf("field is required")
	}

	previous := s.currentURL(ctx, req.Section, req.Field)

	asset, err = s.upload(ctx, UploadAssetRequest{
		ObjectKey:   req.ObjectKey,
		ContentType: req.ContentType,
		Reader:      req.Reader,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.mergeInto(ctx, req.Section, map[string]any{req.Field: asset.URL}); err != nil {
		s.logger.Error("Uploaded asset could not be attached",
			"section", req.Section, "field", req.Field, "object_key", asset.ObjectKey, "error", err)
		s.discard(ctx, asset.ObjectKey)
		return nil, err
	}

	if oldKey, ok := s.replacedKey(previous, asset.ObjectKey); ok {
		s.discard(ctx, oldKey)
	}

	s.logger.Info("Asset attached", "section", req.Section, "field", req.Field, "object_key", asset.ObjectKey)
	return asset, nil
}

// currentURL returns the string stored under field in the section document,
// or "" when there is none.
func (s *service) currentURL(ctx context.Context, section, field string) string {
	row, err := s.repository.Get(ctx, section)
	if err != nil {
		return ""
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(row.Value, &doc); err != nil {
		return ""
	}
	var url string
	if err := json.Unmarshal(doc[field], &url); err != nil {
		return ""
	}
	return url
}

// replacedKey maps the URL an attach overwrote back to an object key in the
// same blob store. Only keys under the same top-level prefix as the new
// object qualify.
func (s *service) replacedKey(previousURL, newKey string) (string, bool) {
	if previousURL == "" {
		return "", false
	}
	resolver, ok := s.blobStore.(KeyResolver)
	if !ok {
		return "", false
	}
	oldKey, ok := resolver.ObjectKeyForURL(previousURL)
	if !ok || oldKey == newKey {
		return "", false
	}
	oldPrefix, _, _ := strings.Cut(oldKey, "/")
	newPrefix, _, _ := strings.Cut(newKey, "/")
	if oldPrefix != newPrefix {
		return "", false
	}
	return oldKey, true
}

// discard removes an object the store no longer references. Failures are
// logged only.
func (s *service) discard(ctx context.Context, objectKey string) {
	if err := s.blobStore.Delete(context.WithoutCancel(ctx), objectKey); err != nil {
		s.logger.Warn("Failed to delete unreferenced asset", "object_key", objectKey, "error", err)
		return
	}
	s.logger.Info("Deleted unreferenced asset", "object_key", objectKey)
}

func (s *service) upload(ctx context.Context, req UploadAssetRequest) (*Asset, error) {
	if s.blobStore == nil {
		return nil, ErrBlobStoreNotConfigured
	}
	if req.ObjectKey == "" {
		return nil, fmt.Errorf("object key is required")
	}
	if req.Reader == nil {
		return nil, fmt.Errorf("reader is required")
	}

	counter := &countingReader{r: req.Reader}
	err := s.blobStore.UploadWithParams(ctx, counter, UploadParams{
		ObjectKey: req.ObjectKey,
		MimeType:  req.ContentType,
	})
	s.metrics.ObserveUpload(counter.n, err)
	if err != nil {
		return nil, &StorageError{Key: req.ObjectKey, Op: "upload", Err: fmt.Errorf("%w: %v", ErrUploadFailed, err)}
	}

	url, err := s.blobStore.GetPublicURL(ctx, req.ObjectKey)
	if err != nil {
		return nil, &StorageError{Key: req.ObjectKey, Op: "public_url", Err: err}
	}

	return &Asset{ObjectKey: req.ObjectKey, URL: url}, nil
}

func (s *service) Reseed(ctx context.Context, entries map[string]any) (err error) {
	defer s.observe("reseed", time.Now(), &err)

	if err := s.repository.DeleteAll(ctx); err != nil {
		return storageErr(err)
	}
	s.logger.Info("Cleared existing sections")

	return s.upsertSorted(ctx, "reseed", entries)
}

func (s *service) observe(op string, start time.Time, err *error) {
	s.metrics.ObserveOperation(op, time.Since(start), *err)
}

// storageErr tags repository failures as storage-unavailable unless the
// repository already classified them.
func storageErr(err error) error {
	if errors.Is(err, ErrSectionNotFound) || errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrSerialization) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
