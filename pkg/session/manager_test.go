package session_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionhub/pkg/datastore"
	"github.com/dmitrymomot/sessionhub/pkg/registry"
	"github.com/dmitrymomot/sessionhub/pkg/session"
)

// countingStore wraps a record store and counts operations.
type countingStore struct {
	datastore.Store

	mu      sync.Mutex
	firsts  int
	upserts int
	removes int
}

func (s *countingStore) First(ctx context.Context, q datastore.Query) (datastore.Record, error) {
	s.mu.Lock()
	s.firsts++
	s.mu.Unlock()
	return s.Store.First(ctx, q)
}

func (s *countingStore) Upsert(ctx context.Context, rec datastore.Record) (datastore.Record, error) {
	s.mu.Lock()
	s.upserts++
	s.mu.Unlock()
	return s.Store.Upsert(ctx, rec)
}

func (s *countingStore) Remove(ctx context.Context, q datastore.Query) error {
	s.mu.Lock()
	s.removes++
	s.mu.Unlock()
	return s.Store.Remove(ctx, q)
}

func (s *countingStore) counts() (firsts, upserts, removes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.firsts, s.upserts, s.removes
}

// failingStore reports the given error from every operation.
type failingStore struct {
	err error
}

func (s *failingStore) Find(ctx context.Context, q datastore.Query) ([]datastore.Record, error) {
	return nil, s.err
}

func (s *failingStore) First(ctx context.Context, q datastore.Query) (datastore.Record, error) {
	return nil, s.err
}

func (s *failingStore) Insert(ctx context.Context, rec datastore.Record) (datastore.Record, error) {
	return nil, s.err
}

func (s *failingStore) Upsert(ctx context.Context, rec datastore.Record) (datastore.Record, error) {
	return nil, s.err
}

func (s *failingStore) Remove(ctx context.Context, q datastore.Query) error {
	return s.err
}

func newTestManager(t *testing.T, store datastore.Store, opts ...session.Option) *session.Manager {
	t.Helper()

	reg := registry.New()
	t.Cleanup(func() { _ = reg.Close() })

	base := []session.Option{
		session.WithCleanupInterval(0), // no background sweep in tests
	}
	mgr := session.New(store, reg, append(base, opts...)...)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestManager_NewSessionID(t *testing.T) {
	t.Parallel()

	mgr := newTestManager(t, datastore.NewMemoryStore())
	format := regexp.MustCompile(`^[0-9a-f]{128}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := mgr.NewSessionID()
		require.NoError(t, err)
		assert.Regexp(t, format, id)

		_, dup := seen[id]
		assert.False(t, dup, "duplicate session id generated")
		seen[id] = struct{}{}
	}
}

func TestManager_CreateSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("empty id yields anonymous without store round-trip", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{Store: datastore.NewMemoryStore()}
		mgr := newTestManager(t, store)

		sess, err := mgr.CreateSession(ctx, "")
		require.NoError(t, err)
		assert.True(t, sess.IsAnonymous())
		assert.Empty(t, sess.ID())

		firsts, upserts, removes := store.counts()
		assert.Zero(t, firsts)
		assert.Zero(t, upserts)
		assert.Zero(t, removes)
	})

	t.Run("unknown id demoted to anonymous", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, datastore.NewMemoryStore())

		sess, err := mgr.CreateSession(ctx, "does-not-exist")
		require.NoError(t, err)
		assert.True(t, sess.IsAnonymous())
		assert.Empty(t, sess.ID())
	})

	t.Run("stale record demoted to anonymous", func(t *testing.T) {
		t.Parallel()
		store := datastore.NewMemoryStore()
		mgr := newTestManager(t, store, session.WithMaxAge(30*24*time.Hour))

		_, err := store.Insert(ctx, datastore.Record{
			"id":         "abc",
			"lastActive": time.Now().Add(-31 * 24 * time.Hour),
		})
		require.NoError(t, err)

		sess, err := mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, sess.IsAnonymous())
		assert.Empty(t, sess.ID())
	})

	t.Run("record without lastActive demoted to anonymous", func(t *testing.T) {
		t.Parallel()
		store := datastore.NewMemoryStore()
		mgr := newTestManager(t, store)

		_, err := store.Insert(ctx, datastore.Record{"id": "abc"})
		require.NoError(t, err)

		sess, err := mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, sess.IsAnonymous())
	})

	t.Run("fresh record builds and indexes session", func(t *testing.T) {
		t.Parallel()
		store := datastore.NewMemoryStore()
		mgr := newTestManager(t, store)

		_, err := store.Insert(ctx, datastore.Record{
			"id":         "abc",
			"uid":        "u1",
			"lastActive": time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		sess, err := mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		assert.False(t, sess.IsAnonymous())
		assert.Equal(t, "abc", sess.ID())
		assert.Equal(t, "u1", sess.UserID())
		assert.Same(t, sess, mgr.GetSession("u1"))
	})

	t.Run("cached session reused", func(t *testing.T) {
		t.Parallel()
		store := datastore.NewMemoryStore()
		mgr := newTestManager(t, store)

		_, err := store.Insert(ctx, datastore.Record{
			"id":         "abc",
			"lastActive": time.Now(),
		})
		require.NoError(t, err)

		first, err := mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		second, err := mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		assert.Same(t, first, second)
	})

	t.Run("activity write throttled inside touch interval", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{Store: datastore.NewMemoryStore()}
		mgr := newTestManager(t, store, session.WithTouchInterval(10*time.Second))

		_, err := store.Store.Upsert(ctx, datastore.Record{
			"id":         "abc",
			"lastActive": time.Now().Add(-time.Hour),
		})
		require.NoError(t, err)

		_, err = mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		_, upserts, _ := store.counts()
		assert.Equal(t, 1, upserts, "first resolution bumps lastActive")

		_, err = mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		_, upserts, _ = store.counts()
		assert.Equal(t, 1, upserts, "second resolution within the window must not write")
	})

	t.Run("store errors propagate unmodified", func(t *testing.T) {
		t.Parallel()
		storeErr := errors.New("store blew up")
		mgr := newTestManager(t, &failingStore{err: storeErr})

		_, err := mgr.CreateSession(ctx, "abc")
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestManager_GetSession(t *testing.T) {
	t.Parallel()
	mgr := newTestManager(t, datastore.NewMemoryStore())

	assert.Nil(t, mgr.GetSession("nobody"))
}

func TestManager_CleanupInactiveSessions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("removes stale and legacy records", func(t *testing.T) {
		t.Parallel()
		store := datastore.NewMemoryStore()
		mgr := newTestManager(t, store, session.WithMaxAge(30*24*time.Hour))

		_, err := store.Insert(ctx, datastore.Record{"id": "fresh", "lastActive": time.Now()})
		require.NoError(t, err)
		_, err = store.Insert(ctx, datastore.Record{"id": "stale", "lastActive": time.Now().Add(-31 * 24 * time.Hour)})
		require.NoError(t, err)
		_, err = store.Insert(ctx, datastore.Record{"id": "legacy"})
		require.NoError(t, err)

		require.NoError(t, mgr.CleanupInactiveSessions(ctx))
		assert.Equal(t, 1, store.Len())

		_, err = store.First(ctx, datastore.Query{"id": "fresh"})
		assert.NoError(t, err)
		assert.False(t, mgr.LastCleanup().IsZero())
	})

	t.Run("advances last-run timestamp even on error", func(t *testing.T) {
		t.Parallel()
		mgr := newTestManager(t, &failingStore{err: errors.New("down")})

		err := mgr.CleanupInactiveSessions(ctx)
		assert.ErrorIs(t, err, session.ErrCleanupFailed)
		assert.False(t, mgr.LastCleanup().IsZero())
	})

	t.Run("periodic sweep runs without traffic", func(t *testing.T) {
		t.Parallel()
		store := datastore.NewMemoryStore()

		_, err := store.Insert(context.Background(), datastore.Record{"id": "stale", "lastActive": time.Now().Add(-48 * time.Hour)})
		require.NoError(t, err)

		reg := registry.New()
		t.Cleanup(func() { _ = reg.Close() })

		mgr := session.New(store, reg,
			session.WithMaxAge(24*time.Hour),
			session.WithCleanupInterval(10*time.Millisecond),
		)
		t.Cleanup(func() { _ = mgr.Close() })

		require.Eventually(t, func() bool {
			return store.Len() == 0
		}, time.Second, 5*time.Millisecond)
	})
}

func TestEndToEndScenarios(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("anonymous save binds user and enters cache", func(t *testing.T) {
		t.Parallel()
		store := datastore.NewMemoryStore()
		mgr := newTestManager(t, store)

		sess, err := mgr.CreateSession(ctx, "")
		require.NoError(t, err)
		require.True(t, sess.IsAnonymous())

		require.NoError(t, sess.Set(datastore.Record{"uid": "u1"}).Save(ctx))

		assert.Regexp(t, `^[0-9a-f]{128}$`, sess.ID())
		assert.Equal(t, "u1", sess.UserID())
		assert.False(t, sess.IsAnonymous())
		assert.Same(t, sess, mgr.GetSession("u1"))

		stored, err := store.First(ctx, datastore.Query{"id": sess.ID()})
		require.NoError(t, err)
		assert.Equal(t, "u1", stored["uid"])
		assert.NotContains(t, stored, "anonymous")
	})

	t.Run("expired identity comes back anonymous", func(t *testing.T) {
		t.Parallel()
		store := datastore.NewMemoryStore()
		mgr := newTestManager(t, store, session.WithMaxAge(30*24*time.Hour))

		_, err := store.Insert(ctx, datastore.Record{
			"id":         "abc",
			"lastActive": time.Now().Add(-31 * 24 * time.Hour),
		})
		require.NoError(t, err)

		sess, err := mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		assert.Empty(t, sess.ID())
	})

	t.Run("rapid re-resolution reuses cache and skips the write", func(t *testing.T) {
		t.Parallel()
		store := &countingStore{Store: datastore.NewMemoryStore()}
		mgr := newTestManager(t, store)

		_, err := store.Store.Upsert(ctx, datastore.Record{
			"id":         "abc",
			"lastActive": time.Now().Add(-time.Minute),
		})
		require.NoError(t, err)

		first, err := mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)
		second, err := mgr.CreateSession(ctx, "abc")
		require.NoError(t, err)

		assert.Same(t, first, second)
		_, upserts, _ := store.counts()
		assert.Equal(t, 1, upserts)
	})
}
