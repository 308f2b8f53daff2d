package session

import "time"

// Config holds session manager configuration
type Config struct {
	// MaxAge is the activity horizon: records with lastActive older than this
	// are evicted and supplied ids past it are demoted to anonymous.
	MaxAge time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`

	// TouchInterval is the minimum time between lastActive writes
	TouchInterval time.Duration `env:"SESSION_TOUCH_INTERVAL" envDefault:"10s"`

	// CleanupInterval for the eviction sweep (0 to disable)
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"60s"`
}

// DefaultConfig returns default session configuration
func DefaultConfig() Config {
	return Config{
		MaxAge:          30 * 24 * time.Hour,
		TouchInterval:   10 * time.Second,
		CleanupInterval: 60 * time.Second,
	}
}
