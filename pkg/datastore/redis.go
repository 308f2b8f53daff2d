package datastore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "record:"

// RedisStore implements Store on top of Redis. Records are stored as JSON
// values under prefix+id; queries other than a plain id lookup are evaluated
// in-process by scanning the prefix keyspace.
//
// JSON round-trips turn time.Time fields into RFC3339 strings; Query.Match
// and TimeValue handle both representations.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed record store. An empty prefix falls
// back to "record:".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

// Find returns all records matching the query.
func (s *RedisStore) Find(ctx context.Context, q Query) ([]Record, error) {
	var out []Record
	err := s.scan(ctx, func(rec Record) (bool, error) {
		if q.Match(rec) {
			out = append(out, rec)
		}
		return true, nil
	})
	return out, err
}

// First returns a single matching record or ErrNotFound. A plain id equality
// query short-circuits to a direct GET.
func (s *RedisStore) First(ctx context.Context, q Query) (Record, error) {
	if id, ok := q[FieldID].(string); ok && len(q) == 1 {
		return s.get(ctx, id)
	}

	var found Record
	err := s.scan(ctx, func(rec Record) (bool, error) {
		if q.Match(rec) {
			found = rec
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// Insert stores a new record, assigning a generated id when missing.
func (s *RedisStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}

	stored := rec.Clone()
	if stored.ID() == "" {
		stored[FieldID] = uuid.NewString()
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, errors.Join(ErrInvalidRecord, err)
	}

	ok, err := s.client.SetNX(ctx, s.key(stored.ID()), data, 0).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDuplicateID
	}
	return stored, nil
}

// Upsert inserts or replaces the record keyed by its id.
func (s *RedisStore) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}

	stored := rec.Clone()
	if stored.ID() == "" {
		stored[FieldID] = uuid.NewString()
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, errors.Join(ErrInvalidRecord, err)
	}

	if err := s.client.Set(ctx, s.key(stored.ID()), data, 0).Err(); err != nil {
		return nil, err
	}
	return stored, nil
}

// Remove deletes every record matching the query.
func (s *RedisStore) Remove(ctx context.Context, q Query) error {
	if id, ok := q[FieldID].(string); ok && len(q) == 1 {
		return s.client.Del(ctx, s.key(id)).Err()
	}

	var keys []string
	err := s.scan(ctx, func(rec Record) (bool, error) {
		if q.Match(rec) {
			keys = append(keys, s.key(rec.ID()))
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisStore) get(ctx context.Context, id string) (Record, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Join(ErrInvalidRecord, err)
	}
	return rec, nil
}

// scan walks the prefix keyspace and feeds decoded records to fn until fn
// returns false or the iterator is exhausted. Values that vanish between
// SCAN and GET are skipped.
func (s *RedisStore) scan(ctx context.Context, fn func(Record) (bool, error)) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return err
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}

		cont, err := fn(rec)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return iter.Err()
}
