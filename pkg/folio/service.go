package folio

import (
	"context"
	"encoding/json"
)

// Service defines the main interface for the folio content store
type Service interface {
	// Section reads
	GetAll(ctx context.Context) (Content, error)
	Get(ctx context.Context, key string) (json.RawMessage, error)

	// Section writes
	UpsertMany(ctx context.Context, entries map[string]any) error
	UpsertSingleMerged(ctx context.Context, key string, partialFields map[string]any) (json.RawMessage, error)

	// Asset operations
	UploadAsset(ctx context.Context, req UploadAssetRequest) (*Asset, error)
	AttachAsset(ctx context.Context, req AttachAssetRequest) (*Asset, error)

	// Reseed clears the table and writes entries. Used by the bulk migration tool only.
	Reseed(ctx context.Context, entries map[string]any) error
}
