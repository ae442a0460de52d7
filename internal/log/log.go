// Package log provides the structured logging stack shared by the
// server and client: a slog.Logger wrapped in a RedactingHandler so
// secrets never reach disk or the console, optionally backed by a
// RotatingFile sink.
package log

import (
	"io"
	"log/slog"
	"os"
)

// New builds a slog.Logger writing JSON records to w (os.Stderr if nil)
// at the given level, wrapped in a RedactingHandler.
func New(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewRedactingHandler(base))
}
