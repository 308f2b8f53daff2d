package datastore

import (
	"context"
	"maps"
	"reflect"
	"time"
)

// FieldID is the record field holding the unique record identifier.
// All stores key their upsert semantics on it.
const FieldID = "id"

// Record is a schemaless persisted document. Field meaning beyond FieldID is
// owned by the caller; this package treats everything else as opaque.
type Record map[string]any

// ID returns the record identifier or an empty string when unset.
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}

// Clone returns a shallow copy of the record so callers and stores never
// share mutable map state.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	c := make(Record, len(r))
	maps.Copy(c, r)
	return c
}

// Store is the persistence contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Find returns all records matching the query.
	Find(ctx context.Context, q Query) ([]Record, error)

	// First returns a single matching record or ErrNotFound.
	First(ctx context.Context, q Query) (Record, error)

	// Insert stores a new record, assigning an id when the caller did not.
	// Returns the stored record.
	Insert(ctx context.Context, rec Record) (Record, error)

	// Upsert atomically inserts or replaces the record keyed by its id,
	// assigning one when missing. Returns the stored record.
	Upsert(ctx context.Context, rec Record) (Record, error)

	// Remove deletes every record matching the query.
	Remove(ctx context.Context, q Query) error
}

// TimeValue coerces a record field into a time.Time. It accepts time.Time
// values directly and RFC3339 strings, which is what records look like after
// a JSON round-trip through the Redis store.
func TimeValue(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func equalValues(a, b any) bool {
	if at, ok := TimeValue(a); ok {
		if bt, ok := TimeValue(b); ok {
			return at.Equal(bt)
		}
		return false
	}
	if af, ok := numberValue(a); ok {
		if bf, ok := numberValue(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func lessThan(a, b any) bool {
	if at, ok := TimeValue(a); ok {
		if bt, ok := TimeValue(b); ok {
			return at.Before(bt)
		}
		return false
	}
	if af, ok := numberValue(a); ok {
		if bf, ok := numberValue(b); ok {
			return af < bf
		}
		return false
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	return aok && bok && as < bs
}
