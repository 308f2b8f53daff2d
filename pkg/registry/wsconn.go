package registry

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// frame is the JSON wire format spoken by the websocket adapter.
type frame struct {
	Event string `json:"event"`
	Args  []any  `json:"args,omitempty"`
}

// wsConn adapts a gorilla websocket connection to the Conn interface.
// Writes are mutex-serialized; inbound frames are dispatched to On handlers
// by a single read loop.
type wsConn struct {
	ws  *websocket.Conn
	log *slog.Logger

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handlers  map[string][]func(args ...any)
}

func newWSConn(ws *websocket.Conn, log *slog.Logger) *wsConn {
	c := &wsConn{
		ws:       ws,
		log:      log,
		handlers: make(map[string][]func(args ...any)),
	}
	go c.readLoop()
	return c
}

// On registers a handler for inbound events.
func (c *wsConn) On(event string, handler func(args ...any)) {
	if handler == nil {
		return
	}
	c.handlerMu.Lock()
	c.handlers[event] = append(c.handlers[event], handler)
	c.handlerMu.Unlock()
}

// Emit sends an event frame to the client.
func (c *wsConn) Emit(event string, args ...any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.ws.WriteJSON(frame{Event: event, Args: args})
}

func (c *wsConn) readLoop() {
	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) && !websocket.IsCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.log.Debug("websocket read ended", "error", err)
			}
			return
		}

		c.handlerMu.RLock()
		handlers := make([]func(args ...any), len(c.handlers[f.Event]))
		copy(handlers, c.handlers[f.Event])
		c.handlerMu.RUnlock()

		for _, handler := range handlers {
			handler(f.Args...)
		}
	}
}

// Close closes the underlying websocket.
func (c *wsConn) Close() error {
	return c.ws.Close()
}

// httpHandshake reads handshake values from request cookies.
type httpHandshake struct {
	r *http.Request
}

func (h httpHandshake) Get(key string) string {
	cookie, err := h.r.Cookie(key)
	if err != nil {
		return ""
	}
	return cookie.Value
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// UpgradeHTTP upgrades the request to a websocket, wraps it in a Conn and
// registers it under the session id found in the request cookies. The
// websocket is closed when registration fails.
func (r *Registry) UpgradeHTTP(w http.ResponseWriter, req *http.Request) (string, error) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return "", err
	}

	conn := newWSConn(ws, r.log)
	sid, err := r.Accept(conn, httpHandshake{r: req})
	if err != nil {
		_ = conn.Close()
		return "", err
	}

	r.log.Debug("websocket connection registered", "sid", sid)
	return sid, nil
}
