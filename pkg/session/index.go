package session

import "sync"

// sessionIndex holds the derived caches mapping session id and user id to
// live Session objects. The record store stays the source of truth; entries
// here may be stale until the next CreateSession revalidates them.
//
// The index is owned by a Manager, constructed and torn down with it, so
// isolated instances (per tenant, per test) never share state.
type sessionIndex struct {
	mu     sync.RWMutex
	byID   map[string]*Session
	byUser map[string]*Session
}

func newSessionIndex() *sessionIndex {
	return &sessionIndex{
		byID:   make(map[string]*Session),
		byUser: make(map[string]*Session),
	}
}

func (idx *sessionIndex) putSession(id string, s *Session) {
	idx.mu.Lock()
	idx.byID[id] = s
	idx.mu.Unlock()
}

func (idx *sessionIndex) putUser(uid string, s *Session) {
	idx.mu.Lock()
	idx.byUser[uid] = s
	idx.mu.Unlock()
}

func (idx *sessionIndex) sessionByID(id string) *Session {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.byID[id]
}

func (idx *sessionIndex) sessionByUser(uid string) *Session {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.byUser[uid]
}

// removeSession drops the id entry only when it still points at s, so
// removing one Session never evicts a newer object cached under the same id.
func (idx *sessionIndex) removeSession(id string, s *Session) {
	idx.mu.Lock()
	if idx.byID[id] == s {
		delete(idx.byID, id)
	}
	idx.mu.Unlock()
}

// removeUser drops the uid entry only when it still points at s. Removal is
// scoped to exact Session identity so another of the user's live sessions
// keeps its cache entry.
func (idx *sessionIndex) removeUser(uid string, s *Session) {
	idx.mu.Lock()
	if idx.byUser[uid] == s {
		delete(idx.byUser, uid)
	}
	idx.mu.Unlock()
}
