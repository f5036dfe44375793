// SSE connection table and broadcast, grounded on the teacher's
// sendSSEEvent/BroadcastNotification in internal/mcp/streamable_server.go
// and the graceful-shutdown-aware keepalive in
// internal/mcp/streamable_server_improved.go. Architectural inspiration
// for the flat connection-table shape (without adopting its Last-Event-ID
// resumption machinery, which this spec does not require) from the
// golang-tools StreamableServerTransport reference implementation.
package httptransport

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/standardbeagle/mcpcore/pkg/log"
)

type sseConnection struct {
	handle       string
	sessionID    string
	establishedAt time.Time
	lastSent     time.Time
	w            http.ResponseWriter
	flusher      http.Flusher
	writeMu      sync.Mutex
	done         chan struct{}
}

func (c *sseConnection) writeFrame(data string, timeout time.Duration) error {
	result := make(chan error, 1)
	go func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		_, err := fmt.Fprint(c.w, data)
		if err == nil {
			c.flusher.Flush()
		}
		result <- err
	}()

	select {
	case err := <-result:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("sse write timeout")
	}
}

type connectionTable struct {
	mu          sync.RWMutex
	connections map[string]*sseConnection
	max         int
	writeTimeout time.Duration
}

func newConnectionTable(max int, writeTimeout time.Duration) *connectionTable {
	return &connectionTable{connections: make(map[string]*sseConnection), max: max, writeTimeout: writeTimeout}
}

// Add registers a new connection. Returns nil, false if the table is at
// capacity.
func (t *connectionTable) Add(sessionID string, w http.ResponseWriter, flusher http.Flusher) (*sseConnection, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.connections) >= t.max {
		return nil, false
	}

	now := time.Now()
	c := &sseConnection{
		handle:        uuid.NewString(),
		sessionID:     sessionID,
		establishedAt: now,
		lastSent:      now,
		w:             w,
		flusher:       flusher,
		done:          make(chan struct{}),
	}
	t.connections[c.handle] = c
	return c, true
}

// Remove drops a connection by handle.
func (t *connectionTable) Remove(handle string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.connections[handle]; ok {
		close(c.done)
		delete(t.connections, handle)
	}
}

// RemoveSession drops every connection bound to sessionID.
func (t *connectionTable) RemoveSession(sessionID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for handle, c := range t.connections {
		if c.sessionID == sessionID {
			close(c.done)
			delete(t.connections, handle)
		}
	}
}

// Count returns the number of live connections.
func (t *connectionTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.connections)
}

func (t *connectionTable) snapshotAll() []*sseConnection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*sseConnection, 0, len(t.connections))
	for _, c := range t.connections {
		out = append(out, c)
	}
	return out
}

// BroadcastAll writes data to every live connection.
func (t *connectionTable) BroadcastAll(data string) {
	for _, c := range t.snapshotAll() {
		t.writeOrRemove(c, data)
	}
}

func (t *connectionTable) writeOrRemove(c *sseConnection, data string) {
	if err := c.writeFrame(data, t.writeTimeout); err != nil {
		log.WithTransport("http").Debug().Str("connection", c.handle).Err(err).Msg("sse write failed, removing connection")
		t.Remove(c.handle)
		return
	}
	t.mu.Lock()
	c.lastSent = time.Now()
	t.mu.Unlock()
}

// runKeepalive sends a keepalive comment to every connection whose
// last-sent tick is at least interval old. Intended to run in its own
// goroutine, woken every interval, until stop is closed.
func (t *connectionTable) runKeepalive(interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := time.Now()
			for _, c := range t.snapshotAll() {
				t.mu.RLock()
				last := c.lastSent
				t.mu.RUnlock()
				if now.Sub(last) >= interval {
					t.writeOrRemove(c, ": keepalive\r\n\r\n")
				}
			}
		}
	}
}
