package datastore

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStore implements Store on top of a MongoDB collection. Queries are
// translated to BSON and evaluated server-side; records keep their own "id"
// field and the collection's "_id" never leaks out.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a MongoDB-backed record store.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{coll: coll}
}

// Find returns all records matching the query.
func (s *MongoStore) Find(ctx context.Context, q Query) ([]Record, error) {
	cur, err := s.coll.Find(ctx, toBSON(q))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Record
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, fromBSON(doc))
	}
	return out, cur.Err()
}

// First returns a single matching record or ErrNotFound.
func (s *MongoStore) First(ctx context.Context, q Query) (Record, error) {
	var doc bson.M
	err := s.coll.FindOne(ctx, toBSON(q)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(doc), nil
}

// Insert stores a new record, assigning a generated id when missing.
func (s *MongoStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}

	stored := rec.Clone()
	if stored.ID() == "" {
		stored[FieldID] = uuid.NewString()
	}

	if _, err := s.coll.InsertOne(ctx, bson.M(stored)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, errors.Join(ErrDuplicateID, err)
		}
		return nil, err
	}
	return stored, nil
}

// Upsert inserts or replaces the record keyed by its id.
func (s *MongoStore) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}

	stored := rec.Clone()
	if stored.ID() == "" {
		stored[FieldID] = uuid.NewString()
	}

	_, err := s.coll.ReplaceOne(ctx,
		bson.M{FieldID: stored.ID()},
		bson.M(stored),
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// Remove deletes every record matching the query.
func (s *MongoStore) Remove(ctx context.Context, q Query) error {
	_, err := s.coll.DeleteMany(ctx, toBSON(q))
	return err
}

// toBSON translates a Query into its BSON equivalent. The operator subset
// ($lt, $exists, $or) is already MongoDB syntax, so translation is mostly a
// matter of container types.
func toBSON(q Query) bson.M {
	if len(q) == 0 {
		return bson.M{}
	}

	out := make(bson.M, len(q))
	for key, cond := range q {
		if key == OpOr {
			out[key] = orToBSON(cond)
			continue
		}
		switch c := cond.(type) {
		case Query:
			out[key] = toBSON(c)
		case map[string]any:
			out[key] = toBSON(Query(c))
		default:
			out[key] = cond
		}
	}
	return out
}

func orToBSON(cond any) bson.A {
	var branches bson.A
	switch bs := cond.(type) {
	case []Query:
		for _, b := range bs {
			branches = append(branches, toBSON(b))
		}
	case []map[string]any:
		for _, b := range bs {
			branches = append(branches, toBSON(Query(b)))
		}
	case []any:
		for _, raw := range bs {
			switch b := raw.(type) {
			case Query:
				branches = append(branches, toBSON(b))
			case map[string]any:
				branches = append(branches, toBSON(Query(b)))
			}
		}
	}
	return branches
}

// fromBSON converts a decoded document into a Record, dropping the internal
// "_id" and normalizing BSON date values back to time.Time.
func fromBSON(doc bson.M) Record {
	rec := make(Record, len(doc))
	for key, val := range doc {
		if key == "_id" {
			continue
		}
		rec[key] = normalizeBSON(val)
	}
	return rec
}

func normalizeBSON(v any) any {
	switch t := v.(type) {
	case bson.DateTime:
		return t.Time()
	case bson.M:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = normalizeBSON(val)
		}
		return m
	case bson.A:
		a := make([]any, len(t))
		for i, val := range t {
			a[i] = normalizeBSON(val)
		}
		return a
	default:
		return v
	}
}
