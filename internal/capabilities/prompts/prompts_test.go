package prompts

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/pkg/events"
)

func greetingPrompt() Prompt {
	return Prompt{
		Name:        "greeting",
		Description: "says hello",
		Arguments:   []Argument{{Name: "name", Required: true}},
		Builder: func(ctx context.Context, args json.RawMessage) ([]Message, string, error) {
			var a struct {
				Name string `json:"name"`
			}
			_ = json.Unmarshal(args, &a)
			return []Message{
				{Role: RoleUser, Content: []ContentItem{TextItem("Hello, " + a.Name)}},
			}, "", nil
		},
	}
}

func TestPromptsGetBuildsMessages(t *testing.T) {
	m := New(events.New())
	m.Register(greetingPrompt())

	params, _ := json.Marshal(map[string]any{"name": "greeting", "arguments": map[string]any{"name": "Ada"}})
	result, err := m.Handle(context.Background(), "prompts/get", params)
	require.NoError(t, err)

	r := result.(struct {
		Messages    []Message `json:"messages"`
		Description string    `json:"description,omitempty"`
	})
	require.Len(t, r.Messages, 1)
	assert.Equal(t, RoleUser, r.Messages[0].Role)
	assert.Equal(t, "Hello, Ada", r.Messages[0].Content[0]["text"])
}

func TestPromptsListPreservesRegistrationOrder(t *testing.T) {
	m := New(events.New())
	m.Register(Prompt{Name: "a"})
	m.Register(Prompt{Name: "b"})

	result, err := m.Handle(context.Background(), "prompts/list", nil)
	require.NoError(t, err)
	r := result.(struct {
		Prompts []listedPrompt `json:"prompts"`
	})
	require.Len(t, r.Prompts, 2)
	assert.Equal(t, "a", r.Prompts[0].Name)
}

func TestUnknownPromptErrors(t *testing.T) {
	m := New(events.New())
	params, _ := json.Marshal(map[string]any{"name": "nope"})
	_, err := m.Handle(context.Background(), "prompts/get", params)
	require.Error(t, err)
	pErr := err.(*protocol.Error)
	assert.Equal(t, "Prompt not found: nope", pErr.Message)
}
