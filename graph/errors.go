// Package graph implements the core of a function-graph execution engine:
// a validated DAG of typed function/router descriptors, and a scheduler
// that drives one invocation of that graph end-to-end.
package graph

import "fmt"

// Sentinel errors for the six error kinds named by the graph's error
// taxonomy. Concrete error values returned by this package wrap one of
// these via errors.Is-compatible Is methods, so callers can write
//
//	if errors.Is(err, graph.ErrUnknownRoute) { ... }
//
// regardless of the human-readable message attached to a given occurrence.
var (
	// ErrInvalidEncoder: a node's encoder tag is not registered at submit time.
	ErrInvalidEncoder = fmt.Errorf("invalid encoder")

	// ErrTypeMismatch: edge endpoints have incompatible types.
	ErrTypeMismatch = fmt.Errorf("type mismatch")

	// ErrUnknownNode: an edge or route references an id not in the graph.
	ErrUnknownNode = fmt.Errorf("unknown node")

	// ErrUnknownRoute: a router returned an id not in its candidate set.
	ErrUnknownRoute = fmt.Errorf("unknown route")

	// ErrNoResults: output() was asked for a function that did not execute.
	ErrNoResults = fmt.Errorf("no results found")

	// ErrInvocationFailed: a function body failed with an unhandled error.
	ErrInvocationFailed = fmt.Errorf("invocation failed")
)

// InvalidEncoderError reports that nodeID declared an encoder tag that is
// not registered in the codec Registry.
type InvalidEncoderError struct {
	NodeID string
	Tag    string
}

func (e *InvalidEncoderError) Error() string {
	return fmt.Sprintf("node %q: encoder %q is not registered", e.NodeID, e.Tag)
}

// Is reports whether target is ErrInvalidEncoder, so errors.Is works.
func (e *InvalidEncoderError) Is(target error) bool { return target == ErrInvalidEncoder }

// TypeMismatchError reports an edge whose producer output type does not
// match its consumer's expected parameter type.
type TypeMismatchError struct {
	From, To string
	Reason   string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("edge %s -> %s: type mismatch: %s", e.From, e.To, e.Reason)
}

func (e *TypeMismatchError) Is(target error) bool { return target == ErrTypeMismatch }

// UnknownNodeError reports a reference to a node id the graph has never
// registered.
type UnknownNodeError struct {
	NodeID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.NodeID)
}

func (e *UnknownNodeError) Is(target error) bool { return target == ErrUnknownNode }

// UnknownRouteError reports that a router returned a target id outside its
// declared candidate set.
type UnknownRouteError struct {
	RouterID string
	Target   string
}

func (e *UnknownRouteError) Error() string {
	return fmt.Sprintf("router %q returned unknown target %q", e.RouterID, e.Target)
}

func (e *UnknownRouteError) Is(target error) bool { return target == ErrUnknownRoute }

// NoResultsError is returned by Graph.Output when functionID never
// produced output under invocationID. The message format matches the
// original system's wording exactly.
type NoResultsError struct {
	FunctionID string
	GraphName  string
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("no results found for fn %s on graph %s", e.FunctionID, e.GraphName)
}

func (e *NoResultsError) Is(target error) bool { return target == ErrNoResults }

// InvocationFailedError wraps the first unhandled error a function body
// raised during an invocation. Partial outputs recorded before the
// failure remain retrievable via Graph.Output.
type InvocationFailedError struct {
	NodeID string
	Cause  error
}

func (e *InvocationFailedError) Error() string {
	return fmt.Sprintf("invocation failed in node %q: %v", e.NodeID, e.Cause)
}

func (e *InvocationFailedError) Unwrap() error { return e.Cause }

func (e *InvocationFailedError) Is(target error) bool { return target == ErrInvocationFailed }
