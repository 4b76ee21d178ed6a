package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedDoc(t *testing.T, s *MemoryStore, sport, level string, updatedAt time.Time) string {
	t.Helper()
	id, err := s.Create(context.Background(), "athletes", map[string]any{
		"sport":      sport,
		"level":      level,
		"updated_at": updatedAt,
	})
	require.NoError(t, err)
	return id
}

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Create(ctx, "athletes", map[string]any{"name": "John", "sport": "football"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	doc, err := s.Get(ctx, "athletes", id)
	require.NoError(t, err)
	assert.Equal(t, "John", doc.Fields["name"])

	// Merge update leaves omitted fields untouched.
	require.NoError(t, s.Update(ctx, "athletes", id, map[string]any{"sport": "basketball"}))
	doc, err = s.Get(ctx, "athletes", id)
	require.NoError(t, err)
	assert.Equal(t, "John", doc.Fields["name"])
	assert.Equal(t, "basketball", doc.Fields["sport"])

	require.NoError(t, s.Delete(ctx, "athletes", id))
	_, err = s.Get(ctx, "athletes", id)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting an absent document is not an error.
	assert.NoError(t, s.Delete(ctx, "athletes", id))
}

func TestUpdateMissingDocument(t *testing.T) {
	s := NewMemoryStore()
	err := s.Update(context.Background(), "athletes", "nope", map[string]any{"sport": "football"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunQueryFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	seedDoc(t, s, "football", "grassroots", base.Add(1*time.Hour))
	newest := seedDoc(t, s, "football", "semi-pro", base.Add(3*time.Hour))
	seedDoc(t, s, "basketball", "semi-pro", base.Add(2*time.Hour))

	docs, err := s.RunQuery(ctx, Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "sport", Value: "football"}},
		OrderBy:    &Order{Field: "updated_at", Direction: Descending},
	})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, newest, docs[0].ID)
}

func TestRunQueryCursorPagination(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	ids := make([]string, 5)
	for i := range ids {
		ids[i] = seedDoc(t, s, "football", "grassroots", base.Add(time.Duration(i)*time.Hour))
	}

	q := Query{
		Collection: "athletes",
		OrderBy:    &Order{Field: "updated_at", Direction: Descending},
		Limit:      2,
	}
	first, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, ids[4], first[0].ID)
	assert.Equal(t, ids[3], first[1].ID)

	q.StartAfter = first[1].ID
	second, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, second, 2)
	assert.Equal(t, ids[2], second[0].ID)
	assert.Equal(t, ids[1], second[1].ID)

	q.StartAfter = second[1].ID
	last, err := s.RunQuery(ctx, q)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, ids[0], last[0].ID)
}

func TestCountIgnoresLimitAndCursor(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var lastID string
	for i := 0; i < 4; i++ {
		lastID = seedDoc(t, s, "football", "grassroots", base.Add(time.Duration(i)*time.Hour))
	}

	n, err := s.Count(ctx, Query{
		Collection: "athletes",
		OrderBy:    &Order{Field: "updated_at", Direction: Descending},
		Limit:      1,
		StartAfter: lastID,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestStrictIndexesRejectUndeclaredCompoundQueries(t *testing.T) {
	ctx := context.Background()
	set := IndexSet{Indexes: []CompositeIndex{{
		Collection: "athletes",
		Fields:     []string{"sport", "level"},
		OrderBy:    "updated_at",
	}}}
	s := NewMemoryStore(WithStrictIndexes(set))
	seedDoc(t, s, "football", "semi-pro", time.Now())

	order := &Order{Field: "updated_at", Direction: Descending}

	// Simple queries never need an index.
	_, err := s.RunQuery(ctx, Query{Collection: "athletes", OrderBy: order})
	assert.NoError(t, err)

	// Declared compound query is served.
	_, err = s.RunQuery(ctx, Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "sport", Value: "football"}, {Field: "level", Value: "semi-pro"}},
		OrderBy:    order,
	})
	assert.NoError(t, err)

	// Undeclared compound query reports the sentinel.
	_, err = s.RunQuery(ctx, Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "sport", Value: "football"}, {Field: "county", Value: "Bong"}},
		OrderBy:    order,
	})
	assert.ErrorIs(t, err, ErrIndexRequired)

	// Single predicate ordered by a different field is also compound.
	_, err = s.RunQuery(ctx, Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "county", Value: "Bong"}},
		OrderBy:    order,
	})
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = s.Count(ctx, Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "sport", Value: "football"}, {Field: "county", Value: "Bong"}},
		OrderBy:    order,
	})
	assert.ErrorIs(t, err, ErrIndexRequired)
}

func TestBatchCommitsAtomically(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a := seedDoc(t, s, "football", "grassroots", base)
	b := seedDoc(t, s, "football", "grassroots", base)

	batch := s.Batch()
	batch.Update("athletes", a, map[string]any{"level": "semi-pro"})
	batch.Update("athletes", "missing-id", map[string]any{"level": "semi-pro"})
	batch.Update("athletes", b, map[string]any{"level": "semi-pro"})
	require.Error(t, batch.Commit(ctx))

	// Nothing from the rejected batch landed.
	doc, err := s.Get(ctx, "athletes", a)
	require.NoError(t, err)
	assert.Equal(t, "grassroots", doc.Fields["level"])
	doc, err = s.Get(ctx, "athletes", b)
	require.NoError(t, err)
	assert.Equal(t, "grassroots", doc.Fields["level"])

	good := s.Batch()
	good.Update("athletes", a, map[string]any{"level": "semi-pro"})
	good.Delete("athletes", b)
	require.NoError(t, good.Commit(ctx))

	doc, err = s.Get(ctx, "athletes", a)
	require.NoError(t, err)
	assert.Equal(t, "semi-pro", doc.Fields["level"])
	_, err = s.Get(ctx, "athletes", b)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubscribeDeliversSnapshots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seedDoc(t, s, "football", "grassroots", base)

	var snapshots [][]Document
	cancel, err := s.Subscribe(ctx, Query{
		Collection: "athletes",
		OrderBy:    &Order{Field: "updated_at", Direction: Descending},
	}, func(snap Snapshot) {
		snapshots = append(snapshots, snap.Docs)
	})
	require.NoError(t, err)

	// Initial snapshot arrives before Subscribe returns.
	require.Len(t, snapshots, 1)
	assert.Len(t, snapshots[0], 1)

	seedDoc(t, s, "basketball", "semi-pro", base.Add(time.Hour))
	require.Len(t, snapshots, 2)
	assert.Len(t, snapshots[1], 2)

	cancel()
	cancel() // idempotent

	seedDoc(t, s, "football", "professional", base.Add(2*time.Hour))
	assert.Len(t, snapshots, 2)
}

func TestSubscribeStrictIndexes(t *testing.T) {
	s := NewMemoryStore(WithStrictIndexes(IndexSet{}))
	_, err := s.Subscribe(context.Background(), Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "sport", Value: "football"}, {Field: "level", Value: "semi-pro"}},
		OrderBy:    &Order{Field: "updated_at", Direction: Descending},
	}, func(Snapshot) {})
	assert.ErrorIs(t, err, ErrIndexRequired)
}
