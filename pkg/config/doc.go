// Package config loads configuration structs from environment variables via
// github.com/caarlos0/env field tags, transparently picking up a local .env
// file through github.com/joho/godotenv when one exists.
package config
