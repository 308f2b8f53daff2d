package session

import (
	"context"

	"github.com/dmitrymomot/sessionhub/pkg/datastore"
)

// StoreUserLookup adapts a record store holding user documents to the
// UserLookup interface.
type StoreUserLookup struct {
	store datastore.Store
}

// NewStoreUserLookup creates a UserLookup backed by a record store.
func NewStoreUserLookup(store datastore.Store) *StoreUserLookup {
	return &StoreUserLookup{store: store}
}

// FindUser returns a single user record matching the query.
func (l *StoreUserLookup) FindUser(ctx context.Context, query datastore.Query) (datastore.Record, error) {
	return l.store.First(ctx, query)
}

// FindUsers returns all user records matching the query.
func (l *StoreUserLookup) FindUsers(ctx context.Context, query datastore.Query) ([]datastore.Record, error) {
	return l.store.Find(ctx, query)
}
