package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps documents in a single JSONB table:
//
//	CREATE TABLE documents (
//	    collection text NOT NULL,
//	    id         text NOT NULL,
//	    fields     jsonb NOT NULL,
//	    PRIMARY KEY (collection, id)
//	);
//
// Compound queries are only served when a matching expression index was
// declared in the IndexSet (and provisioned by migration); anything else
// would be an O(table) scan, so the adapter reports ErrIndexRequired the
// way a managed document store would.
type PostgresStore struct {
	pool     *pgxpool.Pool
	indexes  IndexSet
	notifier Notifier
}

// NewPostgresStore wraps an existing pool. The notifier carries change
// signals for live queries.
func NewPostgresStore(pool *pgxpool.Pool, indexes IndexSet, notifier Notifier) *PostgresStore {
	return &PostgresStore{pool: pool, indexes: indexes, notifier: notifier}
}

func (s *PostgresStore) checkIndex(q Query) error {
	if !s.indexes.Covers(q) {
		return fmt.Errorf("%w: collection %s", ErrIndexRequired, q.Collection)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal document: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (collection, id, fields) VALUES ($1, $2, $3)`,
		collection, id, data)
	if err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	s.notifier.Notify(collection)
	return id, nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT fields FROM documents WHERE collection = $1 AND id = $2`,
		collection, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document: %w", err)
	}

	fields, err := decodeFields(data)
	if err != nil {
		return Document{}, err
	}
	return Document{ID: id, Fields: fields}, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to marshal update: %w", err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE documents SET fields = fields || $3 WHERE collection = $1 AND id = $2`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.notifier.Notify(collection)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`,
		collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.notifier.Notify(collection)
	return nil
}

func (s *PostgresStore) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	if err := s.checkIndex(q); err != nil {
		return nil, err
	}

	sql := `SELECT id, fields FROM documents WHERE collection = $1`
	args := []any{q.Collection}

	if len(q.Predicates) > 0 {
		match := make(map[string]any, len(q.Predicates))
		for _, p := range q.Predicates {
			match[p.Field] = p.Value
		}
		data, err := json.Marshal(match)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal predicates: %w", err)
		}
		args = append(args, data)
		sql += fmt.Sprintf(` AND fields @> $%d`, len(args))
	}

	if q.OrderBy != nil {
		orderField := q.OrderBy.Field
		cmp, dir := ">", "ASC"
		if q.OrderBy.Direction == Descending {
			cmp, dir = "<", "DESC"
		}

		if q.StartAfter != "" {
			var cursorVal *string
			err := s.pool.QueryRow(ctx,
				`SELECT fields->>$3 FROM documents WHERE collection = $1 AND id = $2`,
				q.Collection, q.StartAfter, orderField).Scan(&cursorVal)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("failed to resolve cursor: %w", err)
			}
			if cursorVal != nil {
				args = append(args, orderField, *cursorVal, q.StartAfter)
				sql += fmt.Sprintf(` AND (fields->>$%d, id) %s ($%d, $%d)`,
					len(args)-2, cmp, len(args)-1, len(args))
			}
		}

		args = append(args, orderField)
		sql += fmt.Sprintf(` ORDER BY fields->>$%d %s, id %s`, len(args), dir, dir)
	}

	if q.Limit > 0 {
		args = append(args, q.Limit)
		sql += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		fields, err := decodeFields(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, Document{ID: id, Fields: fields})
	}
	return docs, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, q Query) (int, error) {
	if err := s.checkIndex(q); err != nil {
		return 0, err
	}

	sql := `SELECT count(*) FROM documents WHERE collection = $1`
	args := []any{q.Collection}

	if len(q.Predicates) > 0 {
		match := make(map[string]any, len(q.Predicates))
		for _, p := range q.Predicates {
			match[p.Field] = p.Value
		}
		data, err := json.Marshal(match)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal predicates: %w", err)
		}
		args = append(args, data)
		sql += fmt.Sprintf(` AND fields @> $%d`, len(args))
	}

	var count int
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) Batch() Batch {
	return &pgBatch{store: s}
}

type pgBatch struct {
	store *PostgresStore
	ops   []batchOp
}

func (b *pgBatch) Update(collection, id string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, fields: fields})
}

func (b *pgBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id})
}

// Commit runs every operation in one transaction. An update touching a
// missing document aborts the whole batch.
func (b *pgBatch) Commit(ctx context.Context) error {
	tx, err := b.store.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	touched := make(map[string]bool)
	for _, op := range b.ops {
		touched[op.collection] = true
		if op.fields == nil {
			if _, err := tx.Exec(ctx,
				`DELETE FROM documents WHERE collection = $1 AND id = $2`,
				op.collection, op.id); err != nil {
				return fmt.Errorf("batch delete failed: %w", err)
			}
			continue
		}

		data, err := json.Marshal(op.fields)
		if err != nil {
			return fmt.Errorf("failed to marshal batch update: %w", err)
		}
		tag, err := tx.Exec(ctx,
			`UPDATE documents SET fields = fields || $3 WHERE collection = $1 AND id = $2`,
			op.collection, op.id, data)
		if err != nil {
			return fmt.Errorf("batch update failed: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("batch commit rejected: document %s/%s does not exist", op.collection, op.id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}

	for collection := range touched {
		b.store.notifier.Notify(collection)
	}
	return nil
}

func (s *PostgresStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (func(), error) {
	return subscribeViaFeed(ctx, s.RunQuery, s.notifier, q, fn)
}

func decodeFields(data []byte) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document fields: %w", err)
	}
	return fields, nil
}
