// Package tools implements the Tools Capability Manager. Handler shapes are
// grounded on the teacher's handleToolsList/handleToolCall in
// internal/mcp/tools.go.
package tools

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

// Content is one item of a tool call result, e.g. {"type":"text","text":...}.
type Content map[string]any

// TextContent builds a text content item.
func TextContent(text string) Content {
	return Content{"type": "text", "text": text}
}

// Result is the envelope every tool call returns.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

// Handler executes a tool call. ctx carries cancellation visibility via
// the dispatch package's cancellation helpers.
type Handler func(ctx context.Context, arguments json.RawMessage) (Result, error)

// Tool is one registered tool.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     Handler
}

// Manager implements registry.Manager for tools/*.
type Manager struct {
	bus   *events.Bus
	mu    sync.Mutex
	order []string
	byName map[string]Tool
}

// New constructs an empty tools Manager.
func New(bus *events.Bus) *Manager {
	return &Manager{bus: bus, byName: make(map[string]Tool)}
}

func (m *Manager) Name() string { return "tools" }

func (m *Manager) Claims(method string) bool {
	return method == "tools/list" || method == "tools/call"
}

// Register adds a tool. Re-registering an existing name is a silent no-op
// and does not publish list_changed, per the spec's idempotent-register
// invariant.
func (m *Manager) Register(t Tool) {
	m.mu.Lock()
	if _, exists := m.byName[t.Name]; exists {
		m.mu.Unlock()
		return
	}
	m.byName[t.Name] = t
	m.order = append(m.order, t.Name)
	m.mu.Unlock()

	m.bus.Publish(events.ToolsListChanged, struct{}{})
}

// Unregister removes a tool by name. No-op if absent.
func (m *Manager) Unregister(name string) {
	m.mu.Lock()
	if _, exists := m.byName[name]; !exists {
		m.mu.Unlock()
		return
	}
	delete(m.byName, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.mu.Unlock()

	m.bus.Publish(events.ToolsListChanged, struct{}{})
}

func (m *Manager) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "tools/list":
		return m.list(), nil
	case "tools/call":
		return m.call(ctx, params)
	default:
		return nil, protocol.NewError(protocol.CodeMethodNotFound, "Method ["+method+"] not found")
	}
}

type listedTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

func (m *Manager) list() any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]listedTool, 0, len(m.order))
	for _, name := range m.order {
		t := m.byName[name]
		out = append(out, listedTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return struct {
		Tools []listedTool `json:"tools"`
	}{Tools: out}
}

type callParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (m *Manager) call(ctx context.Context, params json.RawMessage) (any, error) {
	var p callParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "Invalid params: "+err.Error())
	}

	m.mu.Lock()
	t, ok := m.byName[p.Name]
	m.mu.Unlock()
	if !ok {
		return nil, protocol.NewError(protocol.CodeInternalError, "Tool not found: "+p.Name)
	}

	result, err := func() (result Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				result = Result{Content: []Content{TextContent("panic in tool handler")}, IsError: true}
				err = nil
			}
		}()
		return t.Handler(ctx, p.Arguments)
	}()
	if err != nil {
		return Result{Content: []Content{TextContent(err.Error())}, IsError: true}, nil
	}
	return result, nil
}
