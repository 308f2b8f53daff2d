package registry

import (
	"log/slog"
	"sync"
)

// Conn is the live-connection shape the session layer forwards to. The
// websocket adapter implements it; tests plug in fakes.
type Conn interface {
	// On registers a handler for inbound events.
	On(event string, handler func(args ...any))

	// Emit sends an event to the client. Delivery is best-effort.
	Emit(event string, args ...any) error
}

// Handshake exposes cookie-style lookup on connection metadata.
type Handshake interface {
	Get(key string) string
}

// HandshakeMap is a map-backed Handshake, convenient for tests and non-HTTP
// transports.
type HandshakeMap map[string]string

func (h HandshakeMap) Get(key string) string { return h[key] }

const defaultCookieName = "sid"

// Registry owns the socket index (session id → live connection) and the
// one-shot waiter channels bridging "session created" and "connection
// attached".
type Registry struct {
	mu         sync.RWMutex
	conns      map[string]Conn
	waiters    map[string]chan Conn
	closed     bool
	cookieName string
	log        *slog.Logger
}

// Option configures the Registry.
type Option func(*Registry)

// WithCookieName overrides the handshake key the session id is read from.
func WithCookieName(name string) Option {
	return func(r *Registry) {
		if name != "" {
			r.cookieName = name
		}
	}
}

// WithLogger sets the logger used by the websocket adapter.
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a connection registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		conns:      make(map[string]Conn),
		waiters:    make(map[string]chan Conn),
		cookieName: defaultCookieName,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Accept registers a new live connection. The session id is read from the
// handshake; a pending waiter for that id is resolved exactly once.
func (r *Registry) Accept(conn Conn, hs Handshake) (string, error) {
	sid := hs.Get(r.cookieName)
	if sid == "" {
		return "", ErrNoSessionID
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return "", ErrClosed
	}

	r.conns[sid] = conn
	waiter, ok := r.waiters[sid]
	if ok {
		delete(r.waiters, sid)
	}
	r.mu.Unlock()

	if ok {
		// Buffered(1), so this never blocks.
		waiter <- conn
	}

	return sid, nil
}

// WaitForConn returns a channel that delivers the live connection for the
// session id exactly once. When the connection is already registered the
// channel comes pre-filled. A later call for the same id supersedes the
// previous waiter, which is closed without a delivery. The channel is closed
// undelivered when the registry shuts down. A waiter whose connection never
// arrives stays registered until Close; idle-session bridges are only
// reclaimed at shutdown.
func (r *Registry) WaitForConn(sid string) <-chan Conn {
	ch := make(chan Conn, 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		close(ch)
		return ch
	}

	if conn, ok := r.conns[sid]; ok {
		ch <- conn
		return ch
	}

	if prev, ok := r.waiters[sid]; ok {
		close(prev)
	}
	r.waiters[sid] = ch
	return ch
}

// Conn returns the live connection for the session id, if any.
func (r *Registry) Conn(sid string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[sid]
	return conn, ok
}

// RemoveConn drops the socket-index entry for the session id. The connection
// itself is not closed; its owner decides that.
func (r *Registry) RemoveConn(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, sid)
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close shuts the registry down and releases all pending waiters.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	for sid, waiter := range r.waiters {
		close(waiter)
		delete(r.waiters, sid)
	}
	clear(r.conns)
	return nil
}
