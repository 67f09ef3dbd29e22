package gormstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tendant/folio/pkg/folio"
	"github.com/tendant/folio/pkg/folio/repo/repotest"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "folio.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return db
}

func TestRepositoryConformance(t *testing.T) {
	repotest.RunConformanceSuite(t, func(t *testing.T) folio.Repository {
		return New(openTestDB(t))
	})
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite("")
	assert.Error(t, err)
}

func TestOpenSQLite_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "folio.db")
	ctx := context.Background()

	db, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, New(db).Upsert(ctx, folio.SectionHero, []byte(`{"heading":"Hi"}`)))
	require.NoError(t, Close(db))

	db, err = OpenSQLite(path)
	require.NoError(t, err)
	defer Close(db)

	entry, err := New(db).Get(ctx, folio.SectionHero)
	require.NoError(t, err)
	assert.JSONEq(t, `{"heading":"Hi"}`, string(entry.Value))
}

func TestRepository_DecodeFailureReported(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	// bypass the service to plant a row that is not JSON
	require.NoError(t, db.Exec(`INSERT INTO config (key, value) VALUES (?, ?)`, "broken", "{oops").Error)
	require.NoError(t, db.Exec(`INSERT INTO config (key, value) VALUES (?, ?)`, folio.SectionHero, `{"heading":"Hi"}`).Error)

	svc, err := folio.New(folio.WithRepository(New(db)))
	require.NoError(t, err)

	content, err := svc.GetAll(ctx)
	require.ErrorIs(t, err, folio.ErrSerialization)

	var decodeErr *folio.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, []string{"broken"}, decodeErr.Keys)
	assert.JSONEq(t, `{"heading":"Hi"}`, string(content[folio.SectionHero]))
	assert.NotContains(t, content, "broken")
}
