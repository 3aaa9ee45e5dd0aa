// Package server configures structured logging for the Parley service.
package server

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger for the service. Components derive child
// loggers from it via With().Str("component", ...).
func NewLogger(level string) zerolog.Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo builds a root logger writing to the given sink. Unknown level
// strings fall back to info.
func NewLoggerTo(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
