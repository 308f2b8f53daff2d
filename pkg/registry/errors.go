package registry

import "errors"

var (
	// ErrNoSessionID indicates the handshake carried no session id cookie
	ErrNoSessionID = errors.New("registry.no_session_id")

	// ErrClosed indicates the registry has been shut down
	ErrClosed = errors.New("registry.closed")
)
