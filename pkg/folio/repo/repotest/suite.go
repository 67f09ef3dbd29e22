// Package repotest holds a conformance suite that every folio.Repository
// implementation runs against a fresh store.
package repotest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/folio/pkg/folio"
)

// RepositoryFactory returns an empty repository for one test.
type RepositoryFactory func(t *testing.T) folio.Repository

// RunConformanceSuite runs every conformance test against repositories built by factory.
func RunConformanceSuite(t *testing.T, factory RepositoryFactory) {
	t.Run("EmptyTableRead", func(t *testing.T) { testEmptyTableRead(t, factory) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, factory) })
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, factory) })
	t.Run("Idempotence", func(t *testing.T) { testIdempotence(t, factory) })
	t.Run("LastWriteWins", func(t *testing.T) { testLastWriteWins(t, factory) })
	t.Run("PartialUpdateScope", func(t *testing.T) { testPartialUpdateScope(t, factory) })
	t.Run("MergeAttach", func(t *testing.T) { testMergeAttach(t, factory) })
	t.Run("SeededScenario", func(t *testing.T) { testSeededScenario(t, factory) })
	t.Run("Reseed", func(t *testing.T) { testReseed(t, factory) })
	t.Run("ConcurrentDistinctKeys", func(t *testing.T) { testConcurrentDistinctKeys(t, factory) })
}

func newService(t *testing.T, factory RepositoryFactory) folio.Service {
	t.Helper()
	svc, err := folio.New(folio.WithRepository(factory(t)))
	require.NoError(t, err)
	return svc
}

func testEmptyTableRead(t *testing.T, factory RepositoryFactory) {
	svc := newService(t, factory)

	content, err := svc.GetAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, content)
	assert.Empty(t, content)
}

func testGetMissing(t *testing.T, factory RepositoryFactory) {
	repo := factory(t)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, folio.ErrSectionNotFound)
}

func testRoundTrip(t *testing.T, factory RepositoryFactory) {
	svc := newService(t, factory)
	ctx := context.Background()

	doc := json.RawMessage(`{
		"heading": "Hi, I'm Ada",
		"cards": [{"title": "Engine", "tags": ["math", "steam"], "year": 1843}],
		"nested": {"visible": true, "ratio": 0.75, "empty": null},
		"unicode": "héllo ✓"
	}`)
	require.NoError(t, svc.UpsertMany(ctx, map[string]any{folio.SectionProjects: doc}))

	content, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Contains(t, content, folio.SectionProjects)
	assert.JSONEq(t, string(doc), string(content[folio.SectionProjects]))
}

func testIdempotence(t *testing.T, factory RepositoryFactory) {
	svc := newService(t, factory)
	ctx := context.Background()
	doc := map[string]any{"heading": "Hi", "sub": []string{"a", "b"}}

	require.NoError(t, svc.UpsertMany(ctx, map[string]any{folio.SectionHero: doc}))
	first, err := svc.Get(ctx, folio.SectionHero)
	require.NoError(t, err)

	require.NoError(t, svc.UpsertMany(ctx, map[string]any{folio.SectionHero: doc}))
	second, err := svc.Get(ctx, folio.SectionHero)
	require.NoError(t, err)

	assert.JSONEq(t, string(first), string(second))

	content, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, content, 1)
}

func testLastWriteWins(t *testing.T, factory RepositoryFactory) {
	svc := newService(t, factory)
	ctx := context.Background()

	require.NoError(t, svc.UpsertMany(ctx, map[string]any{folio.SectionAbout: map[string]any{"paragraphs": []string{"one"}, "extra": 1}}))
	require.NoError(t, svc.UpsertMany(ctx, map[string]any{folio.SectionAbout: map[string]any{"paragraphs": []string{"two"}}}))

	content, err := svc.GetAll(ctx)
	require.NoError(t, err)
	// whole-document replace: "extra" from the first write is gone
	assert.JSONEq(t, `{"paragraphs":["two"]}`, string(content[folio.SectionAbout]))
}

func testPartialUpdateScope(t *testing.T, factory RepositoryFactory) {
	svc := newService(t, factory)
	ctx := context.Background()

	require.NoError(t, svc.UpsertMany(ctx, map[string]any{
		folio.SectionFooter: map[string]any{"text": "(c) me"},
		folio.SectionHeader: map[string]any{"links": []string{"about", "projects"}},
	}))
	require.NoError(t, svc.UpsertMany(ctx, map[string]any{folio.SectionFooter: map[string]any{"text": "(c) you"}}))

	content, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"(c) you"}`, string(content[folio.SectionFooter]))
	assert.JSONEq(t, `{"links":["about","projects"]}`, string(content[folio.SectionHeader]))
}

func testMergeAttach(t *testing.T, factory RepositoryFactory) {
	svc := newService(t, factory)
	ctx := context.Background()

	require.NoError(t, svc.UpsertMany(ctx, map[string]any{folio.SectionConnect: map[string]any{"a": 1}}))

	merged, err := svc.UpsertSingleMerged(ctx, folio.SectionConnect, map[string]any{folio.FieldResumeURL: "X"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"resumeUrl":"X"}`, string(merged))

	content, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"resumeUrl":"X"}`, string(content[folio.SectionConnect]))

	// merging into an absent key starts from {}
	merged, err = svc.UpsertSingleMerged(ctx, "fresh", map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, string(merged))
}

func testSeededScenario(t *testing.T, factory RepositoryFactory) {
	repo := factory(t)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, folio.SectionHero, []byte(`{"heading":"Hi"}`)))

	svc, err := folio.New(folio.WithRepository(repo))
	require.NoError(t, err)

	require.NoError(t, svc.UpsertMany(ctx, map[string]any{
		folio.SectionSkills: map[string]any{"skillList": []string{"Go", "Rust"}},
	}))

	content, err := svc.GetAll(ctx)
	require.NoError(t, err)

	got, err := json.Marshal(content)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hero":{"heading":"Hi"},"skills":{"skillList":["Go","Rust"]}}`, string(got))
}

func testReseed(t *testing.T, factory RepositoryFactory) {
	svc := newService(t, factory)
	ctx := context.Background()

	require.NoError(t, svc.UpsertMany(ctx, map[string]any{"stale": true, folio.SectionHero: "old"}))
	require.NoError(t, svc.Reseed(ctx, map[string]any{folio.SectionHero: "new", folio.SectionFooter: "f"}))

	content, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, content, 2)
	assert.NotContains(t, content, "stale")
	assert.JSONEq(t, `"new"`, string(content[folio.SectionHero]))
}

func testConcurrentDistinctKeys(t *testing.T, factory RepositoryFactory) {
	svc := newService(t, factory)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("section-%d", i)
			errs <- svc.UpsertMany(ctx, map[string]any{key: map[string]int{"n": i}})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	content, err := svc.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, content, writers)
}
