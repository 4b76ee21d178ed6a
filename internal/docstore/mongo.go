package docstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore maps the Store contract onto a MongoDB database, one Mongo
// collection per logical collection. Like the Postgres adapter it refuses
// compound queries that have no declared index instead of falling back to a
// collection scan.
type MongoStore struct {
	client   *mongo.Client
	db       *mongo.Database
	indexes  IndexSet
	notifier Notifier
}

// NewMongoStore connects to MongoDB and pings it.
func NewMongoStore(ctx context.Context, uri, database string, indexes IndexSet, notifier Notifier) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoStore{
		client:   client,
		db:       client.Database(database),
		indexes:  indexes,
		notifier: notifier,
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) checkIndex(q Query) error {
	if !s.indexes.Covers(q) {
		return fmt.Errorf("%w: collection %s", ErrIndexRequired, q.Collection)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	id := uuid.NewString()
	doc := bson.M{"_id": id}
	for k, v := range fields {
		doc[k] = v
	}

	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to insert document: %w", err)
	}

	s.notifier.Notify(collection)
	return id, nil
}

func (s *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw bson.M
	err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err == mongo.ErrNoDocuments {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return mongoDocToDocument(raw), nil
}

func (s *MongoStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx,
		bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}

	s.notifier.Notify(collection)
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	s.notifier.Notify(collection)
	return nil
}

func (s *MongoStore) RunQuery(ctx context.Context, q Query) ([]Document, error) {
	if err := s.checkIndex(q); err != nil {
		return nil, err
	}

	filter := mongoFilter(q.Predicates)
	opts := options.Find()

	if q.OrderBy != nil {
		dir := 1
		if q.OrderBy.Direction == Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy.Field, Value: dir}, {Key: "_id", Value: dir}})

		if q.StartAfter != "" {
			rangeFilter, err := s.cursorFilter(ctx, q)
			if err != nil {
				return nil, err
			}
			if rangeFilter != nil {
				filter = bson.M{"$and": bson.A{filter, rangeFilter}}
			}
		}
	}

	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer cur.Close(ctx)

	var docs []Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, mongoDocToDocument(raw))
	}
	return docs, cur.Err()
}

// cursorFilter resolves the start-after document and builds the range
// constraint continuing the sort order past it. A vanished cursor document
// restarts from the beginning.
func (s *MongoStore) cursorFilter(ctx context.Context, q Query) (bson.M, error) {
	var cursorDoc bson.M
	err := s.db.Collection(q.Collection).FindOne(ctx, bson.M{"_id": q.StartAfter}).Decode(&cursorDoc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cursor: %w", err)
	}

	op := "$gt"
	if q.OrderBy.Direction == Descending {
		op = "$lt"
	}
	orderVal := cursorDoc[q.OrderBy.Field]

	return bson.M{"$or": bson.A{
		bson.M{q.OrderBy.Field: bson.M{op: orderVal}},
		bson.M{q.OrderBy.Field: orderVal, "_id": bson.M{op: q.StartAfter}},
	}}, nil
}

func (s *MongoStore) Count(ctx context.Context, q Query) (int, error) {
	if err := s.checkIndex(q); err != nil {
		return 0, err
	}

	n, err := s.db.Collection(q.Collection).CountDocuments(ctx, mongoFilter(q.Predicates))
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) Batch() Batch {
	return &mongoBatch{store: s}
}

type mongoBatch struct {
	store *MongoStore
	ops   []batchOp
}

func (b *mongoBatch) Update(collection, id string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id, fields: fields})
}

func (b *mongoBatch) Delete(collection, id string) {
	b.ops = append(b.ops, batchOp{collection: collection, id: id})
}

// Commit applies the batch inside a multi-document transaction.
func (b *mongoBatch) Commit(ctx context.Context) error {
	sess, err := b.store.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start batch session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		for _, op := range b.ops {
			if op.fields == nil {
				if _, err := b.store.db.Collection(op.collection).DeleteOne(ctx, bson.M{"_id": op.id}); err != nil {
					return nil, fmt.Errorf("batch delete failed: %w", err)
				}
				continue
			}
			res, err := b.store.db.Collection(op.collection).UpdateOne(ctx,
				bson.M{"_id": op.id}, bson.M{"$set": bson.M(op.fields)})
			if err != nil {
				return nil, fmt.Errorf("batch update failed: %w", err)
			}
			if res.MatchedCount == 0 {
				return nil, fmt.Errorf("batch commit rejected: document %s/%s does not exist", op.collection, op.id)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	touched := make(map[string]bool)
	for _, op := range b.ops {
		touched[op.collection] = true
	}
	for collection := range touched {
		b.store.notifier.Notify(collection)
	}
	return nil
}

func (s *MongoStore) Subscribe(ctx context.Context, q Query, fn SnapshotFunc) (func(), error) {
	return subscribeViaFeed(ctx, s.RunQuery, s.notifier, q, fn)
}

func mongoFilter(preds []Predicate) bson.M {
	filter := bson.M{}
	for _, p := range preds {
		filter[p.Field] = p.Value
	}
	return filter
}

// mongoDocToDocument lifts a decoded BSON document into the store's generic
// shape, converting driver types to plain Go values.
func mongoDocToDocument(raw bson.M) Document {
	id, _ := raw["_id"].(string)
	fields := make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "_id" {
			continue
		}
		fields[k] = normalizeBSON(v)
	}
	return Document{ID: id, Fields: fields}
}

func normalizeBSON(v any) any {
	switch tv := v.(type) {
	case bson.M:
		out := make(map[string]any, len(tv))
		for k, e := range tv {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.A:
		out := make([]any, len(tv))
		for i, e := range tv {
			out[i] = normalizeBSON(e)
		}
		return out
	case bson.DateTime:
		return tv.Time().UTC()
	case int32:
		return int(tv)
	case int64:
		return int(tv)
	default:
		return v
	}
}
