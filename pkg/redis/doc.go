// Package redis provides connection helpers for Redis-backed record stores:
// retrying Connect and a health-check probe. Configuration comes from
// environment variables via the Config struct's `env` tags.
package redis
