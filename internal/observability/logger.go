package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the JSON logger used by the API and installs it as slog's default.
func NewLogger(env string) *slog.Logger {
	log := newLogger(os.Stdout, env)
	slog.SetDefault(log)

	return log
}

func newLogger(w io.Writer, env string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler))
}
