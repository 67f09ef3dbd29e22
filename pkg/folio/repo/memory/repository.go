package memory

import (
	"context"
	"sync"

	"github.com/tendant/folio/pkg/folio"
)

// Repository implements folio.Repository using in-memory storage
type Repository struct {
	mu       sync.RWMutex
	sections map[string][]byte
}

// New creates a new in-memory repository
func New() folio.Repository {
	return &Repository{
		sections: make(map[string][]byte),
	}
}

func (r *Repository) GetAll(ctx context.Context) ([]folio.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]folio.Entry, 0, len(r.sections))
	for key, value := range r.sections {
		// Return a copy to prevent external modifications
		entries = append(entries, folio.Entry{Key: key, Value: append([]byte(nil), value...)})
	}
	return entries, nil
}

func (r *Repository) Get(ctx context.Context, key string) (folio.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	value, exists := r.sections[key]
	if !exists {
		return folio.Entry{}, folio.ErrSectionNotFound
	}
	return folio.Entry{Key: key, Value: append([]byte(nil), value...)}, nil
}

func (r *Repository) Upsert(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sections[key] = append([]byte(nil), value...)
	return nil
}

func (r *Repository) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sections = make(map[string][]byte)
	return nil
}
