package builtin

import (
	"context"
	"encoding/json"

	"github.com/standardbeagle/mcpcore/internal/capabilities/prompts"
)

type greetingArgs struct {
	Name string `json:"name"`
}

// RegisterPrompts adds the greeting example prompt.
func RegisterPrompts(mgr *prompts.Manager) {
	mgr.Register(prompts.Prompt{
		Name:        "greeting",
		Description: "Builds a short user-role greeting addressed to the given name.",
		Arguments: []prompts.Argument{
			{Name: "name", Description: "Who to greet.", Required: true},
		},
		Builder: func(ctx context.Context, arguments json.RawMessage) ([]prompts.Message, string, error) {
			var a greetingArgs
			if len(arguments) > 0 {
				_ = json.Unmarshal(arguments, &a)
			}
			if a.Name == "" {
				a.Name = "there"
			}
			messages := []prompts.Message{
				{
					Role:    prompts.RoleUser,
					Content: []prompts.ContentItem{prompts.TextItem("Say hello to " + a.Name + ".")},
				},
			}
			return messages, "", nil
		},
	})
}
