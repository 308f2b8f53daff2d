package datastore

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore implements Store using in-memory storage. Records are copied on
// the way in and out so callers never observe shared map state.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates a new in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Find returns all records matching the query.
func (m *MemoryStore) Find(ctx context.Context, q Query) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.records {
		if q.Match(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// First returns a single matching record or ErrNotFound.
func (m *MemoryStore) First(ctx context.Context, q Query) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, rec := range m.records {
		if q.Match(rec) {
			return rec.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

// Insert stores a new record, assigning a generated id when missing.
func (m *MemoryStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}

	stored := rec.Clone()
	if stored.ID() == "" {
		stored[FieldID] = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[stored.ID()]; exists {
		return nil, ErrDuplicateID
	}

	m.records[stored.ID()] = stored
	return stored.Clone(), nil
}

// Upsert inserts or replaces the record keyed by its id.
func (m *MemoryStore) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec == nil {
		return nil, ErrInvalidRecord
	}

	stored := rec.Clone()
	if stored.ID() == "" {
		stored[FieldID] = uuid.NewString()
	}

	m.mu.Lock()
	m.records[stored.ID()] = stored
	m.mu.Unlock()

	return stored.Clone(), nil
}

// Remove deletes every record matching the query.
func (m *MemoryStore) Remove(ctx context.Context, q Query) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, rec := range m.records {
		if q.Match(rec) {
			delete(m.records, id)
		}
	}
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
