package file

import (
	"io"
	"log/slog"
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 8192

const defaultMaxOpenFiles = 64

// Option configures a file Manager.
type Option func(*Config)

// Config holds the tunables of a file Manager.
type Config struct {
	// SyncWrites forces an fsync after every page write.
	SyncWrites bool
	// MaxOpenFiles bounds the number of OS file handles kept open at once.
	MaxOpenFiles int
	Logger       *slog.Logger
}

func defaultConfig() Config {
	return Config{
		SyncWrites:   false,
		MaxOpenFiles: defaultMaxOpenFiles,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithSyncWrites makes every page write fsync the file.
func WithSyncWrites(enabled bool) Option {
	return func(config *Config) {
		config.SyncWrites = enabled
	}
}

func WithMaxOpenFiles(n int) Option {
	return func(config *Config) {
		if n > 0 {
			config.MaxOpenFiles = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(config *Config) {
		if logger != nil {
			config.Logger = logger
		}
	}
}
