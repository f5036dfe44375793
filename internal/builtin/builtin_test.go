package builtin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mcpcore/internal/capabilities/logging"
	"github.com/standardbeagle/mcpcore/internal/capabilities/prompts"
	"github.com/standardbeagle/mcpcore/internal/capabilities/resources"
	"github.com/standardbeagle/mcpcore/internal/capabilities/tools"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

func TestEchoToolRoundTrips(t *testing.T) {
	bus := events.New()
	mgr := tools.New(bus)
	RegisterTools(mgr, logging.New(bus))

	result, err := mgr.Handle(context.Background(), "tools/call", rawJSON(t, map[string]any{
		"name":      "echo",
		"arguments": map[string]any{"message": "hi there"},
	}))
	require.NoError(t, err)
	res := result.(tools.Result)
	require.Len(t, res.Content, 1)
	assert.Equal(t, "Echo: hi there", res.Content[0]["text"])
	assert.False(t, res.IsError)
}

func TestSleepToolCompletesQuickly(t *testing.T) {
	bus := events.New()
	mgr := tools.New(bus)
	RegisterTools(mgr, logging.New(bus))

	result, err := mgr.Handle(context.Background(), "tools/call", rawJSON(t, map[string]any{
		"name":      "sleep",
		"arguments": map[string]any{"milliseconds": 100},
	}))
	require.NoError(t, err)
	res := result.(tools.Result)
	assert.False(t, res.IsError)
}

func TestBuiltinResourcesReadable(t *testing.T) {
	bus := events.New()
	mgr := resources.New(bus)
	RegisterResources(mgr)

	result, err := mgr.Handle(context.Background(), "resources/read", rawJSON(t, map[string]any{"uri": "docs://readme"}))
	require.NoError(t, err)
	b, _ := json.Marshal(result)
	assert.Contains(t, string(b), "mcpcore")

	result2, err := mgr.Handle(context.Background(), "resources/read", rawJSON(t, map[string]any{"uri": "data://logo"}))
	require.NoError(t, err)
	b2, _ := json.Marshal(result2)
	assert.Contains(t, string(b2), "\"blob\"")
}

func TestGreetingPromptBuilds(t *testing.T) {
	bus := events.New()
	mgr := prompts.New(bus)
	RegisterPrompts(mgr)

	result, err := mgr.Handle(context.Background(), "prompts/get", rawJSON(t, map[string]any{
		"name":      "greeting",
		"arguments": map[string]any{"name": "Ada"},
	}))
	require.NoError(t, err)
	b, _ := json.Marshal(result)
	assert.Contains(t, string(b), "Ada")
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
