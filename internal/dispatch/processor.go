// Package dispatch implements the Request Processor: the glue that parses
// a raw JSON-RPC frame, looks up a capability manager, invokes it, and
// formats the reply. Grounded on the teacher's processMessage in
// internal/mcp/streamable_server.go, generalised from a hardcoded switch
// to drive an injected registry.Registry.
package dispatch

import (
	"context"
	"encoding/json"

	"github.com/standardbeagle/mcpcore/internal/protocol"
	"github.com/standardbeagle/mcpcore/internal/registry"
)

// Processor parses JSON-RPC frames and drives a registry.Registry.
type Processor struct {
	registry *registry.Registry
}

// New constructs a Processor over reg.
func New(reg *registry.Registry) *Processor {
	return &Processor{registry: reg}
}

// Process decodes one raw JSON-RPC frame and returns the encoded reply
// frame, or nil if no reply should be written (a notification, or a
// handler that itself returned no value). ctx is passed to the invoked
// manager with the request id attached (see RequestID); callers attach
// cancellation-set visibility before calling Process.
func (p *Processor) Process(ctx context.Context, raw []byte) []byte {
	var req protocol.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		resp := protocol.NewErrorResponse(nil, protocol.NewError(protocol.CodeParseError, "Parse error: "+err.Error()))
		return encode(resp)
	}

	if req.Method == "notifications/initialized" {
		p.invoke(ctx, req.Method, req.Params)
		return nil
	}

	manager := p.registry.Lookup(req.Method)
	if manager == nil {
		if req.IsNotification() {
			return nil
		}
		resp := protocol.NewErrorResponse(req.ID, protocol.NewError(protocol.CodeMethodNotFound, "Method ["+req.Method+"] not found"))
		return encode(resp)
	}

	result, err := manager.Handle(withRequestID(ctx, req.ID), req.Method, req.Params)
	if req.IsNotification() {
		return nil
	}
	if err != nil {
		var pErr *protocol.Error
		if e, ok := err.(*protocol.Error); ok {
			pErr = e
		} else {
			pErr = protocol.NewError(protocol.CodeInternalError, err.Error())
		}
		return encode(protocol.NewErrorResponse(req.ID, pErr))
	}
	if result == nil {
		return nil
	}
	return encode(protocol.NewResponse(req.ID, result))
}

func (p *Processor) invoke(ctx context.Context, method string, params json.RawMessage) {
	manager := p.registry.Lookup(method)
	if manager == nil {
		return
	}
	_, _ = manager.Handle(ctx, method, params)
}

func encode(resp *protocol.Response) []byte {
	b, err := json.Marshal(resp)
	if err != nil {
		b, _ = json.Marshal(protocol.NewErrorResponse(resp.ID, protocol.NewError(protocol.CodeInternalError, "failed to encode response")))
	}
	return b
}

// CancelledChecker is implemented by the core capability manager; the
// dispatch package depends only on this narrow interface so transports can
// thread cancellation visibility onto a context without an import cycle.
type CancelledChecker interface {
	IsCancelled(requestID any) bool
}

type cancelledKey struct{}

type requestIDKey struct{}

// withRequestID attaches the in-flight request's id to ctx so a long-running
// handler can later ask IsCancelled about itself without the caller having
// to thread the id through by hand.
func withRequestID(ctx context.Context, id protocol.RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the JSON-RPC request id the processor attached to ctx,
// or nil if none is present (e.g. a notification, or a context built
// outside Process).
func RequestID(ctx context.Context) protocol.RequestID {
	return ctx.Value(requestIDKey{})
}

// WithCancelledChecker attaches checker to ctx so IsCancelled can consult
// it later, e.g. from inside a tools/call handler.
func WithCancelledChecker(ctx context.Context, checker CancelledChecker) context.Context {
	return context.WithValue(ctx, cancelledKey{}, checker)
}

// IsCancelled reports whether requestID was cancelled, per the
// CancelledChecker attached to ctx by WithCancelledChecker. Returns false
// if none was attached.
func IsCancelled(ctx context.Context, requestID any) bool {
	checker, ok := ctx.Value(cancelledKey{}).(CancelledChecker)
	if !ok {
		return false
	}
	return checker.IsCancelled(requestID)
}
