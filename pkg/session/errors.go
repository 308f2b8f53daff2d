package session

import "errors"

var (
	// ErrIDGeneration indicates session id generation failed
	ErrIDGeneration = errors.New("session.id_generation_failed")

	// ErrNotPersisted indicates the operation needs a saved, non-anonymous session
	ErrNotPersisted = errors.New("session.not_persisted")

	// ErrNoUserLookup indicates no user lookup collaborator is configured
	ErrNoUserLookup = errors.New("session.no_user_lookup")

	// ErrCleanupFailed indicates the eviction sweep failed
	ErrCleanupFailed = errors.New("session.cleanup_failed")
)
