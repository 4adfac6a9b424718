package logging

import (
	"log/slog"
	"os"
)

// SetupJSON sets slog's default logger to JSON on stdout at level. Every
// record carries the service name; debug level adds the source position.
func SetupJSON(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})

	slog.SetDefault(slog.New(handler).With("service", "playerbank"))
}
