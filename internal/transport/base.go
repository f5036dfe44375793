// Package transport holds the pending-request tracking and
// graceful-shutdown wait-loop shared by the stdio and HTTP transports.
// Grounded on the teacher's ImprovedStreamableServer.Stop in
// internal/mcp/streamable_server_improved.go.
package transport

import (
	"sync"
	"sync/atomic"
	"time"
)

// Base tracks in-flight request count and a shutting-down flag, shared by
// every concrete transport.
type Base struct {
	pending      atomic.Int64
	shuttingDown atomic.Bool
}

// NewBase constructs a zeroed Base.
func NewBase() *Base {
	return &Base{}
}

// BeginRequest increments the pending-request count; call Done on the
// returned function when the request completes.
func (b *Base) BeginRequest() (done func()) {
	b.pending.Add(1)
	var once sync.Once
	return func() {
		once.Do(func() { b.pending.Add(-1) })
	}
}

// Pending returns the current in-flight request count.
func (b *Base) Pending() int64 {
	return b.pending.Load()
}

// ShuttingDown reports whether the transport has entered shutdown.
func (b *Base) ShuttingDown() bool {
	return b.shuttingDown.Load()
}

// BeginShutdown flips the shutting-down flag. New requests must check
// ShuttingDown and reject themselves; BeginShutdown does not itself stop
// anything.
func (b *Base) BeginShutdown() {
	b.shuttingDown.Store(true)
}

// WaitForDrain polls Pending at pollInterval until it reaches zero or
// timeout elapses. Returns true if drained cleanly, false on timeout.
func (b *Base) WaitForDrain(timeout, pollInterval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if b.Pending() == 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}
