// Package builtin registers a small set of working example tools,
// resources, templates, and prompts against the capability managers so a
// fresh server has something to call end to end. Grounded on the
// teacher's own demo handlers in internal/mcp/tools.go (an echo-shaped
// handler was the teacher's first registered tool too).
package builtin

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/standardbeagle/mcpcore/internal/capabilities/logging"
	"github.com/standardbeagle/mcpcore/internal/capabilities/tools"
	"github.com/standardbeagle/mcpcore/internal/dispatch"
)

// RegisterTools adds the echo and sleep example tools.
func RegisterTools(mgr *tools.Manager, logMgr *logging.Manager) {
	mgr.Register(echoTool())
	mgr.Register(sleepTool(logMgr))
}

type echoArgs struct {
	Message string `json:"message"`
}

func echoTool() tools.Tool {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string"},
		},
		"required": []string{"message"},
	})
	return tools.Tool{
		Name:        "echo",
		Description: "Echoes the message argument back as text content.",
		InputSchema: schema,
		Handler: func(ctx context.Context, arguments json.RawMessage) (tools.Result, error) {
			var a echoArgs
			if err := json.Unmarshal(arguments, &a); err != nil {
				return tools.Result{}, errors.New("invalid arguments: " + err.Error())
			}
			return tools.Result{Content: []tools.Content{tools.TextContent("Echo: " + a.Message)}}, nil
		},
	}
}

type sleepArgs struct {
	Milliseconds int    `json:"milliseconds"`
	ProgressToken string `json:"progressToken"`
}

// sleepTool sleeps in small steps, emitting progress and checking
// cooperative cancellation between steps so a client can exercise
// notifications/cancelled against a genuinely long-running call.
func sleepTool(logMgr *logging.Manager) tools.Tool {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"milliseconds":  map[string]any{"type": "integer"},
			"progressToken": map[string]any{"type": "string"},
		},
	})
	return tools.Tool{
		Name:        "sleep",
		Description: "Sleeps for the requested duration, reporting progress and honoring cancellation.",
		InputSchema: schema,
		Handler: func(ctx context.Context, arguments json.RawMessage) (tools.Result, error) {
			var a sleepArgs
			if len(arguments) > 0 {
				_ = json.Unmarshal(arguments, &a)
			}
			if a.Milliseconds <= 0 {
				a.Milliseconds = 2000
			}

			const step = 100 * time.Millisecond
			elapsed := time.Duration(0)
			total := float64(a.Milliseconds)
			for elapsed < time.Duration(a.Milliseconds)*time.Millisecond {
				if dispatch.IsCancelled(ctx, dispatch.RequestID(ctx)) {
					return tools.Result{Content: []tools.Content{tools.TextContent("cancelled")}, IsError: true}, nil
				}
				time.Sleep(step)
				elapsed += step
				if logMgr != nil && a.ProgressToken != "" {
					logMgr.EmitProgress(a.ProgressToken, float64(elapsed.Milliseconds()), &total)
				}
			}
			return tools.Result{Content: []tools.Content{tools.TextContent("done")}}, nil
		},
	}
}

