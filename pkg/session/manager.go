package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionhub/pkg/datastore"
	"github.com/dmitrymomot/sessionhub/pkg/registry"
)

// sessionIDBytes of randomness per session id: 64 bytes, hex-encoded to 128
// characters. Collisions are treated as negligible; no check is performed.
const sessionIDBytes = 64

// UserLookup resolves user records for the broadcast helpers. User records
// expose their identifier under "id".
type UserLookup interface {
	FindUser(ctx context.Context, query datastore.Query) (datastore.Record, error)
	FindUsers(ctx context.Context, query datastore.Query) ([]datastore.Record, error)
}

// Manager orchestrates the session lifecycle: creation, cache lookup, id
// generation and the eviction sweep. It owns the id/uid indexes and the
// background sweep goroutine; Close tears both down.
type Manager struct {
	store    datastore.Store
	registry *registry.Registry
	users    UserLookup
	idx      *sessionIndex
	config   Config
	log      *slog.Logger

	cleanupMu   sync.Mutex
	lastCleanup time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// New creates a session manager bound to the record store and connection
// registry. The registry may be nil when no live-connection layer exists;
// sessions then simply never bind. Panics without a store: misconfiguration
// should stop startup.
func New(store datastore.Store, reg *registry.Registry, opts ...Option) *Manager {
	if store == nil {
		panic("session: record store is required")
	}

	m := &Manager{
		store:    store,
		registry: reg,
		idx:      newSessionIndex(),
		config:   DefaultConfig(),
		log:      slog.Default(),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.config.CleanupInterval > 0 {
		go m.cleanupLoop()
	}

	return m
}

// NewSessionID returns a cryptographically random session id: 128 lowercase
// hexadecimal characters from 64 bytes of randomness.
func (m *Manager) NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrIDGeneration, err)
	}
	return hex.EncodeToString(b), nil
}

// CreateSession resolves a session for the given id.
//
// An empty sid yields a fresh anonymous session with no store round-trip. A
// sid whose record is absent, has no usable lastActive or is older than
// MaxAge is silently demoted to a fresh anonymous session — a stale identity
// is never returned and never surfaced as an error. Otherwise the cached
// Session for the id is reused when present, or a new one is built, indexed
// and wired to the connection registry. lastActive is bumped and persisted
// before returning unless it is younger than TouchInterval, which bounds
// write load from busy sessions.
func (m *Manager) CreateSession(ctx context.Context, sid string) (*Session, error) {
	if sid == "" {
		return m.newAnonymousSession(), nil
	}

	rec, err := m.store.First(ctx, datastore.Query{FieldID: sid})
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return m.newAnonymousSession(), nil
		}
		return nil, err
	}

	recActive, ok := datastore.TimeValue(rec[FieldLastActive])
	if !ok || time.Since(recActive) > m.config.MaxAge {
		return m.newAnonymousSession(), nil
	}

	s := m.idx.sessionByID(sid)
	if s == nil {
		s = newSession(m, rec)
		m.idx.putSession(sid, s)
		if uid := s.UserID(); uid != "" {
			m.idx.putUser(uid, s)
		}
	}

	// The cached copy can be fresher than the fetched record after a recent
	// touch from another flow.
	active, ok := s.lastActive()
	if !ok {
		active = recActive
	}
	if time.Since(active) >= m.config.TouchInterval {
		if err := s.touch(ctx); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// GetSession returns the cached session for the user id, nil when no session
// for that user lives in this process's memory. Pure cache lookup, no store
// round-trip.
func (m *Manager) GetSession(uid string) *Session {
	return m.idx.sessionByUser(uid)
}

// CleanupInactiveSessions deletes every record whose lastActive is past the
// MaxAge horizon or missing entirely, which also covers legacy records
// written before activity tracking. The last-run timestamp advances even on
// error so a persistently failing store is not hammered.
func (m *Manager) CleanupInactiveSessions(ctx context.Context) error {
	cutoff := time.Now().Add(-m.config.MaxAge)
	err := m.store.Remove(ctx, datastore.Query{
		datastore.OpOr: []datastore.Query{
			{FieldLastActive: datastore.Query{datastore.OpLessThan: cutoff}},
			{FieldLastActive: datastore.Query{datastore.OpExists: false}},
		},
	})

	m.cleanupMu.Lock()
	m.lastCleanup = time.Now()
	m.cleanupMu.Unlock()

	if err != nil {
		return errors.Join(ErrCleanupFailed, err)
	}
	return nil
}

// LastCleanup returns when the eviction sweep last ran.
func (m *Manager) LastCleanup() time.Time {
	m.cleanupMu.Lock()
	defer m.cleanupMu.Unlock()
	return m.lastCleanup
}

// Close stops the sweep goroutine and releases sessions still waiting for a
// connection to attach.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
	})
	return nil
}

func (m *Manager) newAnonymousSession() *Session {
	return newSession(m, datastore.Record{
		FieldAnonymous: true,
		FieldCreatedOn: time.Now(),
	})
}

// cleanupLoop runs the eviction sweep on a fixed schedule, independent of
// request traffic. Sweep errors are logged, never propagated.
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.CleanupInactiveSessions(context.Background()); err != nil {
				m.log.Error("session eviction sweep failed", "error", err)
			}
		case <-m.done:
			return
		}
	}
}
