// Package core implements the Core Capability Manager: initialize, ping,
// and the two bare notifications every session starts with. Grounded on
// the teacher's handleInitialize in internal/mcp/streamable_server.go,
// generalised to negotiate between the two accepted protocol versions
// instead of the teacher's single hardcoded one.
package core

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

// ServerInfo identifies this server to a client during initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// CancelledRequest records one notifications/cancelled observation.
type CancelledRequest struct {
	Reason string
}

// Manager implements registry.Manager for the core namespace.
type Manager struct {
	bus       *events.Bus
	info      ServerInfo
	mu        sync.Mutex
	cancelled map[any]CancelledRequest
}

// New constructs a core Manager publishing change notifications on bus.
func New(bus *events.Bus, info ServerInfo) *Manager {
	return &Manager{
		bus:       bus,
		info:      info,
		cancelled: make(map[any]CancelledRequest),
	}
}

func (m *Manager) Name() string { return "core" }

func (m *Manager) Claims(method string) bool {
	switch method {
	case "initialize", "ping", "notifications/initialized", "notifications/cancelled":
		return true
	default:
		return false
	}
}

type initializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	ClientInfo      json.RawMessage `json:"clientInfo"`
}

type capabilities struct {
	Tools       toolsCap       `json:"tools"`
	Resources   resourcesCap   `json:"resources"`
	Prompts     promptsCap     `json:"prompts"`
	Logging     map[string]any `json:"logging"`
	Completions map[string]any `json:"completions"`
}

type toolsCap struct {
	ListChanged bool `json:"listChanged"`
}

type resourcesCap struct {
	Subscribe   bool `json:"subscribe"`
	ListChanged bool `json:"listChanged"`
}

type promptsCap struct {
	ListChanged bool `json:"listChanged"`
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	SessionID       string       `json:"sessionId"`
	ServerInfo      ServerInfo   `json:"serverInfo"`
}

type cancelledParams struct {
	RequestID any    `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

func (m *Manager) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "initialize":
		return m.initialize(params)
	case "ping":
		return struct{}{}, nil
	case "notifications/initialized":
		return nil, nil
	case "notifications/cancelled":
		return nil, m.cancel(params)
	default:
		return nil, protocol.NewError(protocol.CodeMethodNotFound, "Method ["+method+"] not found")
	}
}

func (m *Manager) initialize(params json.RawMessage) (any, error) {
	var p initializeParams
	if len(params) > 0 {
		_ = json.Unmarshal(params, &p)
	}
	version := p.ProtocolVersion
	if version == "" || !protocol.IsSupportedVersion(version) {
		version = protocol.VersionLatest
	}

	sessionID := protocol.NewSessionID()

	return initializeResult{
		ProtocolVersion: version,
		Capabilities: capabilities{
			Tools:       toolsCap{ListChanged: true},
			Resources:   resourcesCap{Subscribe: true, ListChanged: true},
			Prompts:     promptsCap{ListChanged: true},
			Logging:     map[string]any{},
			Completions: map[string]any{},
		},
		SessionID:  sessionID,
		ServerInfo: m.info,
	}, nil
}

func (m *Manager) cancel(params json.RawMessage) error {
	var p cancelledParams
	if len(params) > 0 {
		_ = json.Unmarshal(params, &p)
	}
	m.mu.Lock()
	m.cancelled[p.RequestID] = CancelledRequest{Reason: p.Reason}
	m.mu.Unlock()

	m.bus.Publish(events.Cancelled, map[string]any{
		"requestId": p.RequestID,
		"reason":    p.Reason,
	})
	return nil
}

// IsCancelled reports whether requestID was cancelled via
// notifications/cancelled. It is the context-visible hook handlers use to
// cooperatively abort (spec §9 Open Question 2).
func (m *Manager) IsCancelled(requestID any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.cancelled[requestID]
	return ok
}
