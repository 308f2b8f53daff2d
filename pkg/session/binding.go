package session

import (
	"sync"

	"github.com/dmitrymomot/sessionhub/pkg/registry"
)

type subscribeOp struct {
	event   string
	handler func(args ...any)
}

type emitOp struct {
	event string
	args  []any
}

// boundConn is the per-session connection wrapper, an explicit two-state
// machine: unbound it buffers subscribe and emit calls in arrival order;
// once bound it passes everything straight through to the live connection.
//
// The transition drains the buffers exactly once: all subscribes first, then
// all emits, each in original order. Replay happens under the state lock so
// calls racing the transition are ordered after the buffered ones. Binding is
// one-shot per wrapper; later bind calls are ignored.
type boundConn struct {
	mu    sync.Mutex
	conn  registry.Conn
	subs  []subscribeOp
	emits []emitOp
}

func newBoundConn() *boundConn {
	return &boundConn{}
}

// On registers an event handler, buffering it until a connection attaches.
func (b *boundConn) On(event string, handler func(args ...any)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		b.conn.On(event, handler)
		return
	}
	b.subs = append(b.subs, subscribeOp{event: event, handler: handler})
}

// Emit sends an event, buffering it until a connection attaches. Buffered
// emits report no error; delivery is best-effort.
func (b *boundConn) Emit(event string, args ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return b.conn.Emit(event, args...)
	}
	b.emits = append(b.emits, emitOp{event: event, args: args})
	return nil
}

// bind attaches the live connection and drains the buffers.
func (b *boundConn) bind(conn registry.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		return
	}
	b.conn = conn

	for _, op := range b.subs {
		conn.On(op.event, op.handler)
	}
	for _, op := range b.emits {
		_ = conn.Emit(op.event, op.args...)
	}
	b.subs, b.emits = nil, nil
}

func (b *boundConn) bound() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}
