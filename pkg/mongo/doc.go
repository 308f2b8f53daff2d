// Package mongo provides connection helpers for MongoDB-backed record
// stores: retrying Connect, database shortcut and a health-check probe.
// Configuration comes from environment variables via the Config struct's
// `env` tags.
package mongo
