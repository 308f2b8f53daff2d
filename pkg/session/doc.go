// Package session maintains an in-memory, connection-aware view of client
// sessions on top of a pluggable record store and a pluggable live-connection
// registry. It binds a durable session identity to a possibly-absent live
// connection, buffers connection-bound events until one attaches, throttles
// activity writes and evicts stale records.
//
// # Architecture
//
// A Manager owns two derived caches — session id → Session and user id →
// Session — plus a background eviction sweep. The record store (see
// pkg/datastore) stays the source of truth; cache entries may be stale until
// the next CreateSession revalidates them against lastActive. Each Session
// carries a connection wrapper with two states: unbound, where On and Emit
// calls queue up in arrival order, and bound, where they pass straight
// through. The transition fires exactly once, when the registry reports a
// connection whose handshake carries this session's id: buffered subscribes
// replay first, then buffered emits, then the buffers are discarded.
//
//	┌────────────┐  cookie "sid"  ┌──────────┐
//	│ Connection │ ─────────────► │ Registry │
//	└────────────┘                └────┬─────┘
//	                                   │ one-shot notify
//	┌─────────┐  CreateSession   ┌─────▼─────┐
//	│ Caller  │ ───────────────► │  Manager  │──► Session ──► conn wrapper
//	└─────────┘                  └─────┬─────┘
//	                                   │ First / Upsert / Remove
//	                             ┌─────▼─────┐
//	                             │ datastore │ (memory, mongo, redis)
//	                             └───────────┘
//
// # Lifecycle
//
// Sessions start anonymous: no id, invisible to both indexes, never
// persisted. The first Save assigns a 128-hex-character random id, drops the
// anonymous flag, upserts the record and enters the indexes. CreateSession
// with a known id reuses the cached Session when present; an id whose record
// is gone or inactive past MaxAge is silently demoted to a fresh anonymous
// session rather than returned as a stale identity. Remove deletes the
// record, purges both cache entries (scoped to the exact Session object) and
// drops the registry's socket-index entry.
//
// Activity writes are throttled: lastActive is persisted at most once per
// TouchInterval (default 10s). The eviction sweep runs on its own schedule
// (default 60s), deleting records past MaxAge (default 30 days) or with no
// lastActive at all; sweep errors are logged and swallowed.
//
// # Usage
//
//	store := datastore.NewMemoryStore()
//	reg := registry.New()
//	mgr := session.New(store, reg)
//	defer mgr.Close()
//
//	sess, err := mgr.CreateSession(ctx, sidFromCookie)
//	if err != nil {
//	    // store failure; stale or unknown ids do NOT error
//	}
//
//	// Queue events before the websocket attaches; they replay on attach.
//	sess.On("ping", func(args ...any) { /* ... */ })
//	_ = sess.Emit("welcome", "hello")
//
//	err = sess.Set(datastore.Record{"uid": "u1"}).Save(ctx)
//
// Store errors on the request path (CreateSession, Save, Fetch, Remove)
// propagate unmodified; there are no retries. A failed Save may leave the
// in-memory copy ahead of the store — Fetch to reconcile.
package session
