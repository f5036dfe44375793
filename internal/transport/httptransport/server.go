// Package httptransport implements the HTTP Streamable Transport: a single
// configured endpoint accepting POST (JSON-RPC), GET (SSE upgrade), DELETE
// (session teardown) and OPTIONS (CORS preflight), with session and SSE
// connection tables, a keepalive loop, and graceful shutdown. Grounded on
// the teacher's setupRoutes/handleRequest/handleStreamingConnection in
// internal/mcp/streamable_server.go and the Stop() sequence in
// internal/mcp/streamable_server_improved.go.
package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/standardbeagle/mcpcore/internal/capabilities/core"
	"github.com/standardbeagle/mcpcore/internal/config"
	"github.com/standardbeagle/mcpcore/internal/dispatch"
	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/internal/transport"
	"github.com/standardbeagle/mcpcore/pkg/events"
	"github.com/standardbeagle/mcpcore/pkg/log"
)

// Server is the HTTP transport.
type Server struct {
	*transport.Base
	cfg         config.Config
	router      *mux.Router
	processor   *dispatch.Processor
	bus         *events.Bus
	core        *core.Manager
	sessions    *sessionTable
	connections *connectionTable
	httpServer  *http.Server

	keepaliveStop chan struct{}
	reapStop      chan struct{}
}

// New constructs a Server. It does not start listening; call
// ListenAndServe.
func New(cfg config.Config, processor *dispatch.Processor, bus *events.Bus, coreMgr *core.Manager) *Server {
	s := &Server{
		Base:          transport.NewBase(),
		cfg:           cfg,
		processor:     processor,
		bus:           bus,
		core:          coreMgr,
		sessions:      newSessionTable(cfg.MaxSessions, cfg.SessionTimeout),
		connections:   newConnectionTable(cfg.MaxSSEConnections, cfg.SSEWriteTimeout),
		keepaliveStop: make(chan struct{}),
		reapStop:      make(chan struct{}),
	}
	s.setupRoutes()
	s.setupEventBroadcasting()
	go s.connections.runKeepalive(cfg.KeepaliveInterval, s.keepaliveStop)
	go s.runSessionReaper(cfg.SessionReapInterval, s.reapStop)
	return s
}

// reapExpiredSessions drops every inactivity-expired session and, per
// §4.11.2 step 4, every SSE connection bound to it — sessions.ReapExpired
// only forgets the session record, so callers must drop its connections
// themselves.
func (s *Server) reapExpiredSessions() {
	for _, id := range s.sessions.ReapExpired() {
		s.connections.RemoveSession(id)
	}
}

// runSessionReaper periodically sweeps for inactivity-expired sessions so a
// session that goes quiet without ever being touched again still has its
// SSE connections dropped, not just left to die on the next failed write.
func (s *Server) runSessionReaper(interval time.Duration, stop <-chan struct{}) {
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
			s.reapExpiredSessions()
		}
	}
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	r.HandleFunc(s.cfg.HTTPPath, s.handleMCP).Methods(http.MethodOptions, http.MethodGet, http.MethodPost, http.MethodDelete)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "not found"})
	})
	s.router = r
}

var broadcastEventTypes = []string{
	events.ToolsListChanged,
	events.ResourcesListChanged,
	events.ResourcesUpdated,
	events.PromptsListChanged,
	events.Message,
	events.Progress,
	events.Cancelled,
	events.Shutdown,
}

// setupEventBroadcasting subscribes every standard notification event type
// and fans each published event out to every live SSE connection. The
// resources-manager subscription model is not session-scoped, so — as the
// teacher's own BroadcastNotification does — delivery is to every
// currently live connection, not filtered by the subscribing session.
func (s *Server) setupEventBroadcasting() {
	for _, eventType := range broadcastEventTypes {
		et := eventType
		s.bus.Subscribe(et, func(payload any) {
			notif := protocol.NewNotification(et, payload)
			data, err := json.Marshal(notif)
			if err != nil {
				return
			}
			s.connections.BroadcastAll(fmt.Sprintf("data: %s\r\n\r\n", data))
		})
	}
}

// ListenAndServe starts the HTTP listener on addr, blocking until it stops.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	return s.httpServer.ListenAndServe()
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		s.handleOptions(w, r)
		return
	}

	if s.cfg.CORSEnabled {
		if origin := r.Header.Get("Origin"); origin != "" {
			if !corsAllowed(origin, s.cfg.CORSAllowedOrigins) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
	}

	if v := r.Header.Get("Mcp-Protocol-Version"); v != "" && !protocol.IsSupportedVersion(v) {
		s.writeJSONRPCError(w, nil, protocol.CodeServerError,
			"Unsupported protocol version: "+v+". Supported versions: "+strings.Join(protocol.SupportedVersions, ", "))
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGet(w, r)
	case http.MethodPost:
		s.handlePost(w, r)
	case http.MethodDelete:
		s.handleDelete(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	}
	if s.cfg.CORSEnabled && !corsAllowed(origin, s.cfg.CORSAllowedOrigins) {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Mcp-Session-Id, Mcp-Protocol-Version")
	w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id, Mcp-Protocol-Version")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusOK)
}

func corsAllowed(origin string, allowList []string) bool {
	for _, a := range allowList {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if !strings.Contains(accept, "text/event-stream") {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name":    s.cfg.ServerName,
			"version": s.cfg.ServerVersion,
		})
		return
	}

	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if s.sessions.Get(sessionID) == nil {
		// The id is either unknown or was just reaped as expired; either
		// way drop any SSE connections still bound to it rather than
		// waiting for a keepalive write to fail.
		s.connections.RemoveSession(sessionID)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	conn, ok := s.connections.Add(sessionID, w, flusher)
	if !ok {
		log.WithTransport("http").Warn().Msg("SSE connection table at capacity, rejecting connect")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": sse accepted\r\n\r\n")
	flusher.Flush()

	select {
	case <-r.Context().Done():
		s.connections.Remove(conn.handle)
	case <-conn.done:
	}
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	if s.ShuttingDown() {
		s.writeJSONRPCError(w, nil, protocol.CodeServerError, "Server is shutting down")
		return
	}

	done := s.BeginRequest()
	defer done()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeJSONRPCError(w, nil, protocol.CodeParseError, "Failed to read request body")
		return
	}

	var req protocol.Request
	parseErr := json.Unmarshal(body, &req)
	sessionID := r.Header.Get("Mcp-Session-Id")

	if parseErr == nil {
		requiresSession := req.Method != "initialize" && req.Method != "notifications/initialized"
		if requiresSession {
			if sessionID == "" {
				s.writeJSONRPCError(w, req.ID, protocol.CodeInvalidRequest, "Mcp-Session-Id header required")
				return
			}
			if s.sessions.Get(sessionID) == nil {
				s.connections.RemoveSession(sessionID)
				s.writeJSONRPCError(w, req.ID, protocol.CodeInvalidRequest, "Invalid or expired session ID")
				return
			}
			s.sessions.Touch(sessionID)
		}
	}

	ctx := dispatch.WithCancelledChecker(r.Context(), s.core)
	reply := s.processor.Process(ctx, body)

	if parseErr == nil && req.Method == "notifications/initialized" {
		if sessionID != "" {
			s.sessions.MarkInitialized(sessionID)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if parseErr == nil && req.Method == "initialize" && reply != nil {
		var peek struct {
			Result struct {
				SessionID       string `json:"sessionId"`
				ProtocolVersion string `json:"protocolVersion"`
			} `json:"result"`
			Error *protocol.Error `json:"error"`
		}
		if json.Unmarshal(reply, &peek) == nil && peek.Error == nil && peek.Result.SessionID != "" {
			s.sessions.Create(peek.Result.SessionID, peek.Result.ProtocolVersion)
			sessionID = peek.Result.SessionID
		}
	}

	if sessionID != "" {
		w.Header().Set("Mcp-Session-Id", sessionID)
	}

	if reply == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "data: %s\r\n\r\n", reply)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(reply)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get("Mcp-Session-Id")
	if sessionID == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Mcp-Session-Id header required"})
		return
	}

	if !s.sessions.Delete(sessionID) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	s.connections.RemoveSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeJSONRPCError(w http.ResponseWriter, id protocol.RequestID, code int, message string) {
	resp := protocol.NewErrorResponse(id, protocol.NewError(code, message))
	b, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

// Stop runs the graceful-shutdown sequence: mark shuttingDown, best-effort
// notify every SSE connection, wait up to the configured timeout for
// in-flight requests to drain, then tear down the keepalive loop,
// connections, sessions, and listener. Returns false if drain timed out.
func (s *Server) Stop(ctx context.Context) bool {
	s.BeginShutdown()
	s.bus.Publish(events.Shutdown, map[string]any{"reason": "server_shutdown"})

	drained := s.WaitForDrain(s.cfg.GracefulShutdownTimeout, s.cfg.GracefulShutdownPoll)

	close(s.keepaliveStop)
	close(s.reapStop)
	for _, c := range s.connections.snapshotAll() {
		s.connections.Remove(c.handle)
	}
	s.sessions.mu.Lock()
	s.sessions.sessions = make(map[string]*Session)
	s.sessions.mu.Unlock()

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}

	return drained
}
