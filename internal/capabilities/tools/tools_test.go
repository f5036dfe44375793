package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

func echoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "echoes the message argument",
		InputSchema: json.RawMessage(`{"type":"object"}`),
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var a struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(args, &a)
			return Result{Content: []Content{TextContent("Echo: " + a.Message)}, IsError: false}, nil
		},
	}
}

func TestToolsCallEcho(t *testing.T) {
	m := New(events.New())
	m.Register(echoTool())

	params, _ := json.Marshal(map[string]any{"name": "echo", "arguments": map[string]any{"message": "hi"}})
	result, err := m.Handle(context.Background(), "tools/call", params)
	require.NoError(t, err)

	r := result.(Result)
	assert.Equal(t, []Content{{"type": "text", "text": "Echo: hi"}}, r.Content)
	assert.False(t, r.IsError)
}

func TestToolsListReturnsRegistrationOrder(t *testing.T) {
	m := New(events.New())
	m.Register(Tool{Name: "a"})
	m.Register(Tool{Name: "b"})

	result, err := m.Handle(context.Background(), "tools/list", nil)
	require.NoError(t, err)

	listed := result.(struct {
		Tools []listedTool `json:"tools"`
	})
	require.Len(t, listed.Tools, 2)
	assert.Equal(t, "a", listed.Tools[0].Name)
	assert.Equal(t, "b", listed.Tools[1].Name)
}

func TestUnknownToolIsInternalError(t *testing.T) {
	m := New(events.New())
	params, _ := json.Marshal(map[string]any{"name": "nope"})
	_, err := m.Handle(context.Background(), "tools/call", params)
	require.Error(t, err)
	pErr := err.(*protocol.Error)
	assert.Equal(t, protocol.CodeInternalError, pErr.Code)
	assert.Equal(t, "Tool not found: nope", pErr.Message)
}

func TestToolExceptionBecomesIsErrorResult(t *testing.T) {
	m := New(events.New())
	m.Register(Tool{
		Name: "boom",
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			return Result{}, errors.New("kaboom")
		},
	})

	params, _ := json.Marshal(map[string]any{"name": "boom"})
	result, err := m.Handle(context.Background(), "tools/call", params)
	require.NoError(t, err)

	r := result.(Result)
	assert.True(t, r.IsError)
	assert.Equal(t, "kaboom", r.Content[0]["text"])
}

func TestRegisterIsIdempotentAndSilentOnDuplicateName(t *testing.T) {
	bus := events.New()
	m := New(bus)

	changeCount := 0
	bus.Subscribe(events.ToolsListChanged, func(any) { changeCount++ })

	m.Register(Tool{Name: "dup", Description: "first"})
	m.Register(Tool{Name: "dup", Description: "second"})

	assert.Equal(t, 1, changeCount)

	params, _ := json.Marshal(map[string]any{"name": "dup"})
	result, _ := m.Handle(context.Background(), "tools/list", params)
	listed := result.(struct {
		Tools []listedTool `json:"tools"`
	})
	require.Len(t, listed.Tools, 1)
	assert.Equal(t, "first", listed.Tools[0].Description)
}
