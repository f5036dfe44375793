// Package registry implements the ordered Capability Manager Registry:
// first-match dispatch of JSON-RPC method strings to the manager that
// claims them. Generalised from the teacher's hardcoded processMessage
// switch in internal/mcp/streamable_server.go into a registrable-manager
// list, per the spec's interface-typed-managers design note.
package registry

import (
	"context"
	"encoding/json"
)

// Manager is the capability-manager interface every MCP namespace
// implements.
type Manager interface {
	// Name identifies the manager for logging/diagnostics.
	Name() string
	// Claims reports whether this manager handles method.
	Claims(method string) bool
	// Handle executes method with the given raw params and returns the
	// JSON-RPC result value (nil for notifications). A returned error is
	// wrapped by the caller into a JSON-RPC error reply.
	Handle(ctx context.Context, method string, params json.RawMessage) (any, error)
}

// Registry is an ordered collection of Managers. Lookup returns the first
// manager (in registration order) that claims a method; collisions are not
// errors, the first registrant silently wins.
type Registry struct {
	managers []Manager
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register adds a manager. Registering the identical manager instance
// twice is a no-op.
func (r *Registry) Register(m Manager) {
	for _, existing := range r.managers {
		if existing == m {
			return
		}
	}
	r.managers = append(r.managers, m)
}

// Lookup returns the first manager claiming method, or nil if none does.
func (r *Registry) Lookup(method string) Manager {
	for _, m := range r.managers {
		if m.Claims(method) {
			return m
		}
	}
	return nil
}
