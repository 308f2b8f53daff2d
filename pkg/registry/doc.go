// Package registry tracks live client connections keyed by session id and
// notifies waiters when the connection for a given id arrives.
//
// A connection presents a Handshake from which the session id is read under a
// cookie-style key (default "sid"). Accepted connections land in the socket
// index; at most one pending waiter per session id is resolved, exactly once,
// through a buffered channel. Registering a new waiter for the same id
// supersedes the previous one, matching the one-bridge-per-session-object
// lifecycle of the session layer.
//
// The package ships a gorilla/websocket adapter: Registry.UpgradeHTTP turns
// an HTTP request into a registered Conn speaking JSON event frames.
//
// # Usage
//
//	reg := registry.New()
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//	    if _, err := reg.UpgradeHTTP(w, r); err != nil {
//	        // handshake rejected
//	    }
//	})
//
//	select {
//	case conn := <-reg.WaitForConn(sid):
//	    conn.Emit("ready")
//	case <-done:
//	}
package registry
