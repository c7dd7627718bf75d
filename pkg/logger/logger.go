package logger

import (
	"log/slog"
	"os"
)

// SetupGlobal installs the process-wide structured logger. Requests and
// backend calls log through slog key-value pairs.
func SetupGlobal(debug bool, jsonFormat bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
