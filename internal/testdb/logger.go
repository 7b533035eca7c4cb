package testdb

import (
	"io"
	"log/slog"
)

// quietLogger drops migration chatter below warnings.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
