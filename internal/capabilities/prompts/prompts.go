// Package prompts implements the Prompts Capability Manager.
// Handler shapes grounded on the teacher's internal/mcp/prompts.go.
package prompts

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

// Argument describes one prompt argument.
type Argument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

// Role is a prompt message role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentItem is one message content entry. Exactly one variant is
// populated, matching the wire union {text|image|audio|resource}.
type ContentItem map[string]any

func TextItem(text string) ContentItem {
	return ContentItem{"type": "text", "text": text}
}

func ImageItem(mimeType, base64Data string) ContentItem {
	return ContentItem{"type": "image", "mimeType": mimeType, "data": base64Data}
}

func AudioItem(mimeType, base64Data string) ContentItem {
	return ContentItem{"type": "audio", "mimeType": mimeType, "data": base64Data}
}

func ResourceItem(uri, mimeType, text string) ContentItem {
	resource := map[string]any{"uri": uri}
	if mimeType != "" {
		resource["mimeType"] = mimeType
	}
	if text != "" {
		resource["text"] = text
	}
	return ContentItem{"type": "resource", "resource": resource}
}

// Message is one entry in a prompt's built sequence.
type Message struct {
	Role    Role          `json:"role"`
	Content []ContentItem `json:"content"`
}

// Builder produces the message sequence for a prompts/get call given
// free-form JSON arguments.
type Builder func(ctx context.Context, arguments json.RawMessage) ([]Message, string, error)

// Prompt is one registered prompt.
type Prompt struct {
	Name        string
	Description string
	Arguments   []Argument
	Builder     Builder
}

// Manager implements registry.Manager for prompts/*.
type Manager struct {
	bus    *events.Bus
	mu     sync.Mutex
	order  []string
	byName map[string]Prompt
}

// New constructs an empty prompts Manager.
func New(bus *events.Bus) *Manager {
	return &Manager{bus: bus, byName: make(map[string]Prompt)}
}

func (m *Manager) Name() string { return "prompts" }

func (m *Manager) Claims(method string) bool {
	return method == "prompts/list" || method == "prompts/get"
}

// Register adds a prompt. Re-registering an existing name is a silent
// no-op.
func (m *Manager) Register(p Prompt) {
	m.mu.Lock()
	if _, exists := m.byName[p.Name]; exists {
		m.mu.Unlock()
		return
	}
	m.byName[p.Name] = p
	m.order = append(m.order, p.Name)
	m.mu.Unlock()

	m.bus.Publish(events.PromptsListChanged, struct{}{})
}

// Unregister removes a prompt by name. No-op if absent.
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

	m.bus.Publish(events.PromptsListChanged, struct{}{})
}

func (m *Manager) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case "prompts/list":
		return m.list(), nil
	case "prompts/get":
		return m.get(ctx, params)
	default:
		return nil, protocol.NewError(protocol.CodeMethodNotFound, "Method ["+method+"] not found")
	}
}

type listedPrompt struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Arguments   []Argument `json:"arguments,omitempty"`
}

func (m *Manager) list() any {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]listedPrompt, 0, len(m.order))
	for _, name := range m.order {
		p := m.byName[name]
		out = append(out, listedPrompt{Name: p.Name, Description: p.Description, Arguments: p.Arguments})
	}
	return struct {
		Prompts []listedPrompt `json:"prompts"`
	}{Prompts: out}
}

type getParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (m *Manager) get(ctx context.Context, params json.RawMessage) (any, error) {
	var p getParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "Invalid params: "+err.Error())
	}

	m.mu.Lock()
	prompt, ok := m.byName[p.Name]
	m.mu.Unlock()
	if !ok {
		return nil, protocol.NewError(protocol.CodeInternalError, "Prompt not found: "+p.Name)
	}

	var messages []Message
	var description string
	var err error
	if prompt.Builder != nil {
		messages, description, err = prompt.Builder(ctx, p.Arguments)
		if err != nil {
			return nil, protocol.NewError(protocol.CodeInternalError, err.Error())
		}
	}
	if description == "" {
		description = prompt.Description
	}

	return struct {
		Messages    []Message `json:"messages"`
		Description string    `json:"description,omitempty"`
	}{Messages: messages, Description: description}, nil
}
