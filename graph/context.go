package graph

import (
	"context"
	"sync"
)

// contextKey is a private type for context value keys, following the
// standard library's guidance so fngraph's keys never collide with keys
// from other packages sharing the same context.Context.
type contextKey string

const invocationContextKey contextKey = "fngraph.invocation_context"

// InvocationContext is the per-invocation handle available to every
// running function body: its invocation id, the graph it belongs to, and
// a process-local key/value scratch store shared across all nodes of that
// invocation (§4.6).
//
// InvocationContext is attached to the context.Context passed to
// FunctionBody/RouterFunc via task-local state (context.WithValue), never
// through a package-global or goroutine-local variable, so nested or
// concurrent tasks from different invocations each observe their own
// context even when running in the same process.
type InvocationContext struct {
	InvocationID string
	GraphName    string
	GraphVersion string

	mu      sync.Mutex
	scratch map[string]any
}

func newInvocationContext(invocationID, graphName, graphVersion string) *InvocationContext {
	return &InvocationContext{
		InvocationID: invocationID,
		GraphName:    graphName,
		GraphVersion: graphVersion,
		scratch:      make(map[string]any),
	}
}

// SetStateKey stores v under k in this invocation's scratch store. Visible
// to any node of the same invocation that calls GetStateKey afterwards,
// regardless of which goroutine set it.
func (c *InvocationContext) SetStateKey(k string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scratch[k] = v
}

// GetStateKey returns the value stored under k, or nil if k was never set
// for this invocation. A nil return is not an error: it is the scratch
// store's absence value, exactly as spec'd.
func (c *InvocationContext) GetStateKey(k string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scratch[k]
}

// withInvocationContext returns a child context carrying ic, for passing
// to a task's FunctionBody/RouterFunc invocation.
func withInvocationContext(ctx context.Context, ic *InvocationContext) context.Context {
	return context.WithValue(ctx, invocationContextKey, ic)
}

// FromContext retrieves the InvocationContext attached to ctx by the
// scheduler. Returns nil if ctx was not produced by a running invocation
// (e.g. a unit test calling a FunctionBody directly without going through
// Graph.Run) — callers that need ctx should guard against a nil return.
func FromContext(ctx context.Context) *InvocationContext {
	ic, _ := ctx.Value(invocationContextKey).(*InvocationContext)
	return ic
}
