// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logger used across the service.
type Logger = zerolog.Logger

// New returns a JSON logger on stdout at the given level. APP_ENV=local switches to a console writer.
func New(env, level string) Logger {
	return newWithWriter(env, level, os.Stdout)
}

func newWithWriter(env, level string, w io.Writer) Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	out := w
	if env == "local" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() Logger {
	return zerolog.Nop()
}
