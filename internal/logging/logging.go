package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns the process logger: text on stderr, debug level when debug.
func New(debug bool) *slog.Logger {
	return NewWriter(os.Stderr, debug)
}

func NewWriter(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})).With("app", "meetme")
}
