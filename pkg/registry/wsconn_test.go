package registry_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionhub/pkg/registry"
)

type wsFrame struct {
	Event string `json:"event"`
	Args  []any  `json:"args,omitempty"`
}

func dialWS(t *testing.T, url, sid string) *websocket.Conn {
	t.Helper()

	header := http.Header{}
	header.Set("Cookie", (&http.Cookie{Name: "sid", Value: sid}).String())

	ws, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func TestRegistry_UpgradeHTTP(t *testing.T) {
	reg := registry.New()
	t.Cleanup(func() { _ = reg.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := reg.UpgradeHTTP(w, r); err != nil {
			t.Logf("upgrade failed: %v", err)
		}
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	t.Run("server emit reaches client", func(t *testing.T) {
		ws := dialWS(t, url, "s1")

		conn := receiveConn(t, reg.WaitForConn("s1"))
		require.NoError(t, conn.Emit("greeting", "hello"))

		require.NoError(t, ws.SetReadDeadline(time.Now().Add(time.Second)))
		var f wsFrame
		require.NoError(t, ws.ReadJSON(&f))
		assert.Equal(t, "greeting", f.Event)
		require.Len(t, f.Args, 1)
		assert.Equal(t, "hello", f.Args[0])
	})

	t.Run("client frame dispatched to handler", func(t *testing.T) {
		ws := dialWS(t, url, "s2")

		conn := receiveConn(t, reg.WaitForConn("s2"))

		got := make(chan []any, 1)
		conn.On("ping", func(args ...any) {
			got <- args
		})

		require.NoError(t, ws.WriteJSON(wsFrame{Event: "ping", Args: []any{"pong"}}))

		select {
		case args := <-got:
			require.Len(t, args, 1)
			assert.Equal(t, "pong", args[0])
		case <-time.After(time.Second):
			t.Fatal("handler was not invoked")
		}
	})

	t.Run("missing cookie rejected", func(t *testing.T) {
		header := http.Header{}
		ws, resp, err := websocket.DefaultDialer.Dial(url, header)
		if resp != nil {
			defer resp.Body.Close()
		}
		// The upgrade itself succeeds; registration fails server-side and the
		// socket is closed, so the first read reports the close.
		if err == nil {
			_ = ws.SetReadDeadline(time.Now().Add(time.Second))
			_, _, readErr := ws.ReadMessage()
			assert.Error(t, readErr)
			_ = ws.Close()
		}

		_, ok := reg.Conn("")
		assert.False(t, ok)
	})
}
