// Package docstore defines the contract for the schemaless document database
// backing the directory, plus the adapters that implement it.
//
// Documents are addressed by collection + id and queried with equality
// predicates, a sort order, a limit and an exclusive start-after cursor.
// Backends that cannot serve a compound query without a precomputed index
// report ErrIndexRequired, which callers may use to degrade to client-side
// filtering.
package docstore

import (
	"context"
	"errors"
)

// ErrIndexRequired signals that the query needs a composite index the
// backend does not have. It is an internal signal, not a user-facing error.
var ErrIndexRequired = errors.New("docstore: query requires a composite index")

// ErrNotFound signals that the requested document does not exist.
var ErrNotFound = errors.New("docstore: document not found")

// Document is a schemaless record within a collection.
type Document struct {
	ID     string
	Fields map[string]any
}

// Predicate is an equality constraint on a single field.
type Predicate struct {
	Field string
	Value any
}

// Direction is a sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Order sorts query results by a single field.
type Order struct {
	Field     string
	Direction Direction
}

// Query describes a collection-scoped read.
type Query struct {
	Collection string
	Predicates []Predicate
	OrderBy    *Order

	// Limit caps the number of returned documents (0 means no limit).
	Limit int

	// StartAfter is an exclusive cursor: the id of the last document of the
	// previous page. Empty means start from the beginning.
	StartAfter string
}

// Snapshot is the full current result of a live query. The store delivers
// complete snapshots on every notification, not incremental diffs.
type Snapshot struct {
	Docs []Document
}

// SnapshotFunc receives live query snapshots.
type SnapshotFunc func(Snapshot)

// Batch accumulates writes that commit atomically. Either every operation
// applies or none does.
type Batch interface {
	// Update merges fields into the identified document. Fields absent from
	// the map are left untouched.
	Update(collection, id string, fields map[string]any)

	// Delete removes the identified document.
	Delete(collection, id string)

	// Commit applies all accumulated operations as one atomic unit.
	Commit(ctx context.Context) error
}

// Store is the document database contract consumed by the directory core.
type Store interface {
	// Create inserts a new document and returns its assigned id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Get returns a single document, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// Update merges fields into an existing document. Omitted fields keep
	// their prior values. Returns ErrNotFound for a missing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes a document. Deleting an absent document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// RunQuery executes a query. Returns ErrIndexRequired when the backend
	// lacks the composite index the query needs.
	RunQuery(ctx context.Context, q Query) ([]Document, error)

	// Count returns the number of documents matching the query, ignoring
	// Limit and StartAfter. Subject to the same ErrIndexRequired condition.
	Count(ctx context.Context, q Query) (int, error)

	// Batch starts an atomic write batch.
	Batch() Batch

	// Subscribe opens a live query. The callback receives the current
	// snapshot immediately and again after every change to the collection.
	// The returned cancel func is idempotent and stops all further
	// callbacks. Returns ErrIndexRequired when the filtered query cannot be
	// served without a missing index.
	Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (func(), error)
}

// requiresCompositeIndex reports whether a query is compound: compound
// queries combine multiple equality predicates, or a predicate with a sort
// on a different field, and need a precomputed composite index on backends
// that do not plan such queries on the fly.
func requiresCompositeIndex(q Query) bool {
	if len(q.Predicates) > 1 {
		return true
	}
	if len(q.Predicates) == 1 && q.OrderBy != nil && q.OrderBy.Field != q.Predicates[0].Field {
		return true
	}
	return false
}
