package logging

import (
	"log/slog"
	"os"
)

// Logger is the application-wide structured logger instance. It starts
// as the slog default so code paths hit before InitLogger still log.
var Logger = slog.Default()

// InitLogger initializes the global logger with the specified level and format.
// level: "debug", "info", "warn", "error" (defaults to "info")
// format: "json" or "text" (defaults to "text")
func InitLogger(level, format string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	Logger = slog.New(handler)
	slog.SetDefault(Logger)
}

// WithChannel returns a logger with channel_id field.
func WithChannel(channelID string) *slog.Logger {
	return Logger.With("channel_id", channelID)
}

// WithInvite returns a logger with invite_id field.
func WithInvite(inviteID string) *slog.Logger {
	return Logger.With("invite_id", inviteID)
}

// WithClient returns a logger with client_public_key field.
func WithClient(publicKey string) *slog.Logger {
	return Logger.With("client_public_key", publicKey)
}

// WithError returns a logger with error field.
func WithError(err error) *slog.Logger {
	return Logger.With("error", err)
}
