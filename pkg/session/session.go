package session

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/sessionhub/pkg/datastore"
)

// Reserved record fields. Everything else is application-defined and opaque
// to this package.
const (
	FieldID         = datastore.FieldID
	FieldUserID     = "uid"
	FieldAnonymous  = "anonymous"
	FieldCreatedOn  = "createdOn"
	FieldLastActive = "lastActive"
)

// Session is the runtime entity bridging a persisted record and a
// possibly-absent live connection. Exactly one Session object exists per
// cached session id; the manager's index hands out the same instance.
type Session struct {
	mgr      *Manager
	conn     *boundConn
	bindOnce sync.Once

	mu   sync.RWMutex
	data datastore.Record
}

func newSession(mgr *Manager, data datastore.Record) *Session {
	s := &Session{
		mgr:  mgr,
		conn: newBoundConn(),
		data: data.Clone(),
	}
	if s.ID() != "" {
		s.startBridge()
	}
	return s
}

// startBridge registers the one-shot wait for this session's live connection.
// Safe to call repeatedly; only the first call with an id takes effect.
func (s *Session) startBridge() {
	s.bindOnce.Do(func() {
		sid := s.ID()
		if sid == "" || s.mgr.registry == nil {
			return
		}
		wait := s.mgr.registry.WaitForConn(sid)
		go func() {
			select {
			case conn, ok := <-wait:
				if ok {
					s.conn.bind(conn)
				}
			case <-s.mgr.done:
			}
		}()
	})
}

// ID returns the session id, empty for anonymous sessions.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.ID()
}

// UserID returns the bound user id, empty when unset.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uid, _ := s.data[FieldUserID].(string)
	return uid
}

// IsAnonymous reports whether the session has not been assigned a durable id.
func (s *Session) IsAnonymous() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	anon, _ := s.data[FieldAnonymous].(bool)
	return anon
}

// Data returns a copy of the in-memory record.
func (s *Session) Data() datastore.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// Set merges the patch into the in-memory record, last write wins per field.
// Returns the session for chaining; nothing is persisted until Save.
func (s *Session) Set(patch datastore.Record) *Session {
	s.mu.Lock()
	for key, val := range patch {
		s.data[key] = val
	}
	s.mu.Unlock()
	return s
}

// Save persists the session. An anonymous session is assigned a fresh id and
// stops being anonymous. lastActive is stamped when absent so a freshly saved
// record is never mistaken for a stale or legacy one. The record is upserted
// atomically by id, the in-memory copy is refreshed from the stored record,
// and the session enters the id index (and the user index when uid is set).
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if anon, _ := s.data[FieldAnonymous].(bool); anon {
		id, err := s.mgr.NewSessionID()
		if err != nil {
			s.mu.Unlock()
			return err
		}
		s.data[FieldID] = id
		delete(s.data, FieldAnonymous)
	}
	if _, ok := s.data[FieldLastActive]; !ok {
		s.data[FieldLastActive] = time.Now()
	}
	rec := s.data.Clone()
	s.mu.Unlock()

	stored, err := s.mgr.store.Upsert(ctx, rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = stored.Clone()
	id := s.data.ID()
	uid, _ := s.data[FieldUserID].(string)
	s.mu.Unlock()

	s.mgr.idx.putSession(id, s)
	if uid != "" {
		s.mgr.idx.putUser(uid, s)
	}
	s.startBridge()
	return nil
}

// Fetch reloads the record from the store and merges it into the in-memory
// copy. Fields deleted server-side since the last save are deliberately kept
// in memory; callers that need a pristine copy should go through
// CreateSession instead.
func (s *Session) Fetch(ctx context.Context) error {
	id := s.ID()
	if id == "" {
		return ErrNotPersisted
	}

	rec, err := s.mgr.store.First(ctx, datastore.Query{FieldID: id})
	if err != nil {
		return err
	}
	s.Set(rec)
	return nil
}

// Remove deletes the session: with no argument its own current record, with
// one the given record. A target without an id succeeds as a no-op without
// contacting the store. Otherwise the id and uid cache entries are purged
// (scoped to this Session object), the registry's socket-index entry is
// dropped and the persisted record is deleted. The object is inert afterward;
// a later Save re-creates it as a new record.
func (s *Session) Remove(ctx context.Context, data ...datastore.Record) error {
	var target datastore.Record
	if len(data) > 0 {
		target = data[0]
	} else {
		target = s.Data()
	}

	id := target.ID()
	if id == "" {
		return nil
	}
	uid, _ := target[FieldUserID].(string)

	s.mgr.idx.removeSession(id, s)
	if uid != "" {
		s.mgr.idx.removeUser(uid, s)
	}
	if s.mgr.registry != nil {
		s.mgr.registry.RemoveConn(id)
	}

	return s.mgr.store.Remove(ctx, datastore.Query{FieldID: id})
}

// On registers a connection event handler. Before a live connection attaches
// the registration is buffered and replayed on attachment.
func (s *Session) On(event string, handler func(args ...any)) {
	s.conn.On(event, handler)
}

// Emit sends a connection event. Before a live connection attaches the emit
// is buffered and replayed, after registered handlers, on attachment.
func (s *Session) Emit(event string, args ...any) error {
	return s.conn.Emit(event, args...)
}

// Connected reports whether a live connection has attached.
func (s *Session) Connected() bool {
	return s.conn.bound()
}

// EmitToUsers broadcasts an event to every user matched by the query whose
// session is currently cached. Offline targets are silently dropped.
func (s *Session) EmitToUsers(ctx context.Context, query datastore.Query, event string, args ...any) error {
	if s.mgr.users == nil {
		return ErrNoUserLookup
	}

	users, err := s.mgr.users.FindUsers(ctx, query)
	if err != nil {
		return err
	}

	for _, user := range users {
		uid, _ := user[FieldID].(string)
		if uid == "" {
			continue
		}
		if target := s.mgr.GetSession(uid); target != nil {
			_ = target.Emit(event, args...)
		}
	}
	return nil
}

// EmitToAll broadcasts an event to every known user with a cached session.
func (s *Session) EmitToAll(ctx context.Context, event string, args ...any) error {
	return s.EmitToUsers(ctx, nil, event, args...)
}

// touch bumps lastActive to now and persists the record.
func (s *Session) touch(ctx context.Context) error {
	s.mu.Lock()
	s.data[FieldLastActive] = time.Now()
	rec := s.data.Clone()
	s.mu.Unlock()

	stored, err := s.mgr.store.Upsert(ctx, rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.data = stored.Clone()
	s.mu.Unlock()
	return nil
}

// lastActive returns the record's lastActive timestamp, if usable.
func (s *Session) lastActive() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return datastore.TimeValue(s.data[FieldLastActive])
}
