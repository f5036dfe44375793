// Package completion implements the Completion Capability Manager.
package completion

import (
	"context"
	"encoding/json"

	"github.com/standardbeagle/mcpcore/internal/protocol"
)

const maxValues = 100

// Provider supplies completion candidates for a prompt argument or
// resource URI argument. It returns the full candidate list (possibly
// longer than maxValues — the manager truncates and reports hasMore).
type Provider func(ctx context.Context, refType, refName, argumentName, argumentValue string, ctxArgs json.RawMessage) ([]string, error)

// Manager implements registry.Manager for completion/complete.
type Manager struct {
	provider Provider
}

// New constructs a completion Manager. A nil provider yields empty results
// for every request, matching the spec's "pluggable provider absent ⇒
// empty" rule.
func New(provider Provider) *Manager {
	return &Manager{provider: provider}
}

func (m *Manager) Name() string { return "completion" }

func (m *Manager) Claims(method string) bool {
	return method == "completion/complete"
}

type ref struct {
	Type string `json:"type"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type argument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type completeParams struct {
	Ref      ref             `json:"ref"`
	Argument argument        `json:"argument"`
	Context  json.RawMessage `json:"context"`
}

func (m *Manager) Handle(ctx context.Context, method string, params json.RawMessage) (any, error) {
	if method != "completion/complete" {
		return nil, protocol.NewError(protocol.CodeMethodNotFound, "Method ["+method+"] not found")
	}

	var p completeParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, protocol.NewError(protocol.CodeInvalidParams, "Invalid params: "+err.Error())
	}

	var refName string
	switch p.Ref.Type {
	case "ref/prompt":
		refName = p.Ref.Name
	case "ref/resource":
		refName = p.Ref.URI
	default:
		return nil, protocol.NewError(protocol.CodeInvalidParams, "Invalid completion ref type: "+p.Ref.Type)
	}

	var values []string
	if m.provider != nil {
		var err error
		values, err = m.provider(ctx, p.Ref.Type, refName, p.Argument.Name, p.Argument.Value, p.Context)
		if err != nil {
			return nil, protocol.NewError(protocol.CodeInternalError, err.Error())
		}
	}

	hasMore := len(values) > maxValues
	total := len(values)
	if hasMore {
		values = values[:maxValues]
	}

	return struct {
		Completion struct {
			Values  []string `json:"values"`
			Total   int      `json:"total,omitempty"`
			HasMore bool     `json:"hasMore,omitempty"`
		} `json:"completion"`
	}{
		Completion: struct {
			Values  []string `json:"values"`
			Total   int      `json:"total,omitempty"`
			HasMore bool     `json:"hasMore,omitempty"`
		}{Values: values, Total: total, HasMore: hasMore},
	}, nil
}
