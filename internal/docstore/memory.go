package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store implementation. It backs the test suite
// and local development. With strict indexing enabled it behaves like a
// managed document database: compound queries fail with ErrIndexRequired
// unless a matching composite index was declared.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
	subscribers map[int]*memSubscriber
	nextSubID   int

	strict  bool
	indexes IndexSet
}

type memSubscriber struct {
	query Query
	fn    SnapshotFunc
	once  sync.Once
	done  bool
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithStrictIndexes makes compound queries require a declared composite
// index, mirroring managed-store behavior.
func WithStrictIndexes(set IndexSet) MemoryOption {
	return func(s *MemoryStore) {
		s.strict = true
		s.indexes = set
	}
}

// NewMemoryStore creates an empty in-memory store. Without options every
// query is served regardless of shape.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]map[string]map[string]any),
		subscribers: make(map[int]*memSubscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) checkIndex(q Query) error {
	if s.strict && !s.indexes.Covers(q) {
		return fmt.Errorf("%w: collection %s", ErrIndexRequired, q.Collection)
	}
	return nil
}

// Create inserts a document under a fresh uuid and returns it.
func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	s.mu.Lock()
	col := s.collections[collection]
	if col == nil {
		col = make(map[string]map[string]any)
		s.collections[collection] = col
	}
	col[id] = copyFields(fields)
	s.mu.Unlock()

	s.notify(collection)
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.collections[collection][id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: copyFields(fields)}, nil
}

// Update merges fields into an existing document; omitted fields keep their
// prior values.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	existing, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	for k, v := range copyFields(fields) {
		existing[k] = v
	}
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	delete(s.collections[collection], id)
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *MemoryStore) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	if err := s.checkIndex(q); err != nil {
		return nil, err
	}

	s.mu.RLock()
	docs := s.matchLocked(q)
	s.mu.RUnlock()
	return docs, nil
}

func (s *MemoryStore) Count(ctx context.Context, q Query) (int, error) {
	if err := s.checkIndex(q); err != nil {
		return 0, err
	}

	counting := q
	counting.Limit = 0
	counting.StartAfter = ""

	s.mu.RLock()
	docs := s.matchLocked(counting)
	s.mu.RUnlock()
	return len(docs), nil
}

// matchLocked evaluates the query against current data. Caller holds at
// least a read lock.
func (s *MemoryStore) matchLocked(q Query) []Document {
	var out []Document
	for id, fields := range s.collections[q.Collection] {
		if matchesPredicates(fields, q.Predicates) {
			out = append(out, Document{ID: id, Fields: copyFields(fields)})
		}
	}

	if q.OrderBy != nil {
		sortDocs(out, *q.OrderBy)
	}

	if q.StartAfter != "" {
		start := 0
		for i, d := range out {
			if d.ID == q.StartAfter {
				start = i + 1
				break
			}
		}
		out = out[start:]
	}

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// Subscribe registers a live query. The initial snapshot is delivered before
// Subscribe returns.
func (s *MemoryStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (func(), error) {
	if err := s.checkIndex(q); err != nil {
		return nil, err
	}

	sub := &memSubscriber{query: q, fn: fn}

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = sub
	initial := s.matchLocked(q)
	s.mu.Unlock()

	fn(Snapshot{Docs: initial})

	cancel := func() {
		sub.once.Do(func() {
			s.mu.Lock()
			sub.done = true
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
	return cancel, nil
}

// notify recomputes and delivers snapshots for every subscriber watching the
// collection. Snapshots are computed under the lock, delivered outside it.
func (s *MemoryStore) notify(collection string) {
	type delivery struct {
		fn   SnapshotFunc
		snap Snapshot
	}

	s.mu.RLock()
	var deliveries []delivery
	for _, sub := range s.subscribers {
		if sub.done || sub.query.Collection != collection {
			continue
		}
		deliveries = append(deliveries, delivery{
			fn:   sub.fn,
			snap: Snapshot{Docs: s.matchLocked(sub.query)},
		})
	}
	s.mu.RUnlock()

	for _, d := range deliveries {
		d.fn(d.snap)
	}
}

func (s *MemoryStore) Batch() Batch {
	return &memBatch{store: s}
}

type batchOp struct {
	collection string
	id         string
	fields     map[string]any // nil means delete
}

type memBatch struct {
	store *MemoryStore
	ops   []batchOp
}

func (b *memBatch) Update(collection, id string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, fields: copyFields(fields)})
}

func (b *memBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id})
}

// Commit applies every accumulated operation or none. Updates against
// missing documents reject the whole batch before anything is written.
func (b *memBatch) Commit(ctx context.Context) error {
	b.store.mu.Lock()

	for _, op := range b.ops {
		if op.fields == nil {
			continue
		}
		if _, ok := b.store.collections[op.collection][op.id]; !ok {
			b.store.mu.Unlock()
			return fmt.Errorf("batch commit rejected: document %s/%s does not exist", op.collection, op.id)
		}
	}

	touched := make(map[string]bool)
	for _, op := range b.ops {
		touched[op.collection] = true
		if op.fields == nil {
			delete(b.store.collections[op.collection], op.id)
			continue
		}
		existing := b.store.collections[op.collection][op.id]
		for k, v := range op.fields {
			existing[k] = v
		}
	}
	b.store.mu.Unlock()

	for collection := range touched {
		b.store.notify(collection)
	}
	return nil
}

func matchesPredicates(fields map[string]any, preds []Predicate) bool {
	for _, p := range preds {
		v, ok := fields[p.Field]
		if !ok || !reflect.DeepEqual(v, p.Value) {
			return false
		}
	}
	return true
}

func sortDocs(docs []Document, order Order) {
	sort.SliceStable(docs, func(i, j int) bool {
		less := compareValues(docs[i].Fields[order.Field], docs[j].Fields[order.Field]) < 0
		if order.Direction == Descending {
			return !less && compareValues(docs[i].Fields[order.Field], docs[j].Fields[order.Field]) != 0
		}
		return less
	})
}

// compareValues orders the scalar types the store deals in. Mixed or unknown
// types compare equal so the sort stays stable.
func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case int:
		if bv, ok := b.(int); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	return 0
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch tv := v.(type) {
	case map[string]any:
		return copyFields(tv)
	case []any:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
