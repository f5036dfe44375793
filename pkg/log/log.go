// Package log provides the structured logger used across mcpcore.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Init configures it; until Init is
// called it writes a human-readable console stream to stderr at info level.
var Logger zerolog.Logger

// Level names accepted by Init's Config.Level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls global logger construction.
type Config struct {
	Level  Level
	JSON   bool
	Output io.Writer
}

func init() {
	Init(Config{Level: InfoLevel, JSON: false, Output: os.Stderr})
}

// Init (re)configures the global Logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.JSON {
		Logger = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithSession returns a child logger tagged with a session id.
func WithSession(sessionID string) zerolog.Logger {
	return Logger.With().Str("session_id", sessionID).Logger()
}

// WithTransport returns a child logger tagged with a transport name
// ("stdio" or "http").
func WithTransport(transport string) zerolog.Logger {
	return Logger.With().Str("transport", transport).Logger()
}

// WithMethod returns a child logger tagged with a JSON-RPC method name.
func WithMethod(method string) zerolog.Logger {
	return Logger.With().Str("method", method).Logger()
}
