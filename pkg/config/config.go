package config

import (
	"errors"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer is returned when a nil pointer is provided to Load
	ErrNilPointer = errors.New("config.nil_pointer")

	// ErrParsing is returned when environment variables cannot be parsed
	// into the config struct
	ErrParsing = errors.New("config.parsing_failed")
)

var loadDotEnv sync.Once

// Load populates the config struct from environment variables based on its
// `env` field tags. The default .env file is loaded once per process if
// present; a missing .env file is not an error.
//
// Example:
//
//	type StoreConfig struct {
//	    URL     string        `env:"MONGODB_URL,required"`
//	    Timeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg StoreConfig
//	if err := config.Load(&cfg); err != nil {
//	    // handle error
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	loadDotEnv.Do(func() {
		_ = godotenv.Load()
	})

	if err := env.Parse(v); err != nil {
		return errors.Join(ErrParsing, err)
	}
	return nil
}

// MustLoad works like Load but panics on failure. Useful for configuration
// the application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}
