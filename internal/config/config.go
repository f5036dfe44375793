// Package config holds the process-wide tunables named in the spec as
// fixed numeric constants, so tests can override them without touching
// production call sites.
package config

import "time"

// Config is passed by reference through the dependency graph the same way
// the event bus is: constructed once, never a package-level global.
type Config struct {
	// HTTPPath is the single endpoint path the HTTP transport serves.
	HTTPPath string
	// SessionTimeout is the inactivity window after which a session
	// expires.
	SessionTimeout time.Duration
	// MaxSessions is the session count at which creating a new session
	// first reaps expired ones. It is not a hard cap: the new session is
	// added even if nothing was reaped.
	MaxSessions int
	// SessionReapInterval is how often a background sweep drops
	// inactivity-expired sessions and their SSE connections, independent
	// of the lazy per-request expiry check. Zero disables the sweep.
	SessionReapInterval time.Duration
	// MaxSSEConnections bounds the SSE connection table.
	MaxSSEConnections int
	// KeepaliveInterval is how often idle SSE connections receive a
	// keepalive comment. Zero disables keepalive.
	KeepaliveInterval time.Duration
	// SSEWriteTimeout bounds a single SSE frame write.
	SSEWriteTimeout time.Duration
	// GracefulShutdownTimeout bounds how long shutdown waits for
	// in-flight requests to drain.
	GracefulShutdownTimeout time.Duration
	// GracefulShutdownPoll is the interval between pending-request polls
	// during shutdown.
	GracefulShutdownPoll time.Duration
	// CORSEnabled toggles CORS header handling.
	CORSEnabled bool
	// CORSAllowedOrigins is the origin allow-list, matched
	// case-insensitively; "*" allows any origin.
	CORSAllowedOrigins []string
	// ServerName and ServerVersion populate initialize's serverInfo.
	ServerName    string
	ServerVersion string
}

// Default returns the spec's documented default tunables.
func Default() Config {
	return Config{
		HTTPPath:                "/mcp",
		SessionTimeout:          30 * time.Minute,
		MaxSessions:             10000,
		SessionReapInterval:     1 * time.Minute,
		MaxSSEConnections:       1000,
		KeepaliveInterval:       30 * time.Second,
		SSEWriteTimeout:         1 * time.Second,
		GracefulShutdownTimeout: 5000 * time.Millisecond,
		GracefulShutdownPoll:    50 * time.Millisecond,
		CORSEnabled:             true,
		CORSAllowedOrigins:      []string{"*"},
		ServerName:              "mcpcore",
		ServerVersion:           "0.1.0",
	}
}
