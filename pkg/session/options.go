package session

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithConfig sets custom configuration
func WithConfig(config Config) Option {
	return func(m *Manager) {
		m.config = config
	}
}

// WithMaxAge sets the activity horizon for eviction and stale-id demotion
func WithMaxAge(maxAge time.Duration) Option {
	return func(m *Manager) {
		m.config.MaxAge = maxAge
	}
}

// WithTouchInterval sets the minimum time between lastActive writes.
// This bounds persistence load from busy sessions.
func WithTouchInterval(interval time.Duration) Option {
	return func(m *Manager) {
		m.config.TouchInterval = interval
	}
}

// WithCleanupInterval sets the eviction sweep interval. Zero disables the
// background sweep; CleanupInactiveSessions can still be called directly.
func WithCleanupInterval(interval time.Duration) Option {
	return func(m *Manager) {
		m.config.CleanupInterval = interval
	}
}

// WithUserLookup sets the collaborator used by the broadcast helpers
func WithUserLookup(users UserLookup) Option {
	return func(m *Manager) {
		m.users = users
	}
}

// WithLogger sets the logger for background maintenance
func WithLogger(log *slog.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}
