package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadIndexSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "indexes.yaml")
	data := `indexes:
  - collection: athletes
    fields: [sport, level]
    order_by: updated_at
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	set, err := LoadIndexSet(path)
	require.NoError(t, err)
	require.Len(t, set.Indexes, 1)
	assert.Equal(t, "athletes", set.Indexes[0].Collection)
	assert.Equal(t, []string{"sport", "level"}, set.Indexes[0].Fields)
	assert.Equal(t, "updated_at", set.Indexes[0].OrderBy)

	empty, err := LoadIndexSet("")
	require.NoError(t, err)
	assert.Empty(t, empty.Indexes)
}

func TestIndexSetCovers(t *testing.T) {
	set := IndexSet{Indexes: []CompositeIndex{{
		Collection: "athletes",
		Fields:     []string{"level", "sport"},
		OrderBy:    "updated_at",
	}}}
	order := &Order{Field: "updated_at", Direction: Descending}

	// Field order in the declaration does not matter.
	assert.True(t, set.Covers(Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "sport", Value: "x"}, {Field: "level", Value: "y"}},
		OrderBy:    order,
	}))

	// Different predicate set is not covered.
	assert.False(t, set.Covers(Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "sport", Value: "x"}, {Field: "county", Value: "y"}},
		OrderBy:    order,
	}))

	// Different sort field is not covered.
	assert.False(t, set.Covers(Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "sport", Value: "x"}, {Field: "level", Value: "y"}},
		OrderBy:    &Order{Field: "created_at", Direction: Descending},
	}))

	// Simple queries are always covered.
	assert.True(t, set.Covers(Query{Collection: "athletes", OrderBy: order}))
	assert.True(t, set.Covers(Query{
		Collection: "athletes",
		Predicates: []Predicate{{Field: "updated_at", Value: "x"}},
		OrderBy:    order,
	}))
}
