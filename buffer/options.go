package buffer

import (
	"io"
	"log/slog"

	"bufmgr/file"
)

// Option configures a Manager.
type Option func(*Config)

// Config holds the tunables of a buffer Manager.
type Config struct {
	// PageSize is the size of every frame. Files handed to the Manager must use the same size.
	PageSize int
	Logger   *slog.Logger
}

func defaultConfig() Config {
	return Config{
		PageSize: file.DefaultPageSize,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithPageSize sets the frame size. It defaults to file.DefaultPageSize.
func WithPageSize(pageSize int) Option {
	return func(config *Config) {
		config.PageSize = pageSize
	}
}

// WithLogger sets the logger. A nil logger keeps the default, which discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(config *Config) {
		if logger != nil {
			config.Logger = logger
		}
	}
}
