//go:build !gcloud

package logging

import (
	"log/slog"
	"os"
)

// NewHandler returns a plain JSON handler for local and container runs.
func NewHandler(level slog.Level) slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})
}
