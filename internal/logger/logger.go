package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup installs the global slog logger at the configured level.
func Setup(level string) {
	SetupWriter(level, os.Stdout)
}

func SetupWriter(level string, w io.Writer) {
	var logLevel slog.Level

	switch strings.ToUpper(level) {
	case "DEBUG":
		logLevel = slog.LevelDebug
	case "WARN":
		logLevel = slog.LevelWarn
	case "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))
}
