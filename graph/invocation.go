package graph

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Invocation tracks one submitted run of a Graph from dispatch of its
// start node to terminal success or InvocationFailedError (§4.4, §6).
type Invocation struct {
	ID        string
	GraphName string

	ctx *InvocationContext

	mu     sync.Mutex
	done   bool
	err    error
	doneCh chan struct{}
}

func (inv *Invocation) fail(err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.done {
		return
	}
	inv.done = true
	inv.err = err
	close(inv.doneCh)
}

func (inv *Invocation) succeed() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	if inv.done {
		return
	}
	inv.done = true
	close(inv.doneCh)
}

// Wait blocks until the invocation reaches a terminal state and returns
// its error, if any.
func (inv *Invocation) Wait() error {
	<-inv.doneCh
	return inv.err
}

// Status reports whether the invocation has reached a terminal state yet
// without blocking, and its error if it has. Used by a remote peer to
// poll an async invocation's completion instead of holding the request
// open for its whole duration.
func (inv *Invocation) Status() (done bool, err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.done, inv.err
}

// Run submits start_kwargs to G's start node and mints an invocation_id
// (§4.4: "Submission of run(**start_kwargs) seeds the queue with one task
// (start_node, start_kwargs) and mints invocation_id"). If blockUntilDone,
// Run does not return until the invocation is terminal (§4.8).
func (g *Graph) Run(ctx context.Context, blockUntilDone bool, startKwargs InputBundle) (string, error) {
	if err := g.validate(); err != nil {
		return "", err
	}
	if err := g.validateEncoders(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	inv := &Invocation{
		ID:        id,
		GraphName: g.Name,
		ctx:       newInvocationContext(id, g.Name, g.Version),
		doneCh:    make(chan struct{}),
	}

	g.invocationsMu.Lock()
	g.invocations[id] = inv
	g.invocationsMu.Unlock()

	g.logger.invocationSubmitted(id, g.Name)

	sched := newScheduler(ctx, g, inv)
	sched.Start(startKwargs)

	if blockUntilDone {
		if err := inv.Wait(); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Output returns the ordered list of recorded outputs for functionID
// under invocationID (§4.4). If functionID names a node never registered
// on the graph, UnknownNodeError is returned; if it is a registered node
// that did not execute in this invocation (e.g. a router chose a
// different branch), NoResultsError is returned.
func (g *Graph) Output(invocationID, functionID string) ([]any, error) {
	if _, ok := g.entryByID(functionID); !ok {
		return nil, &UnknownNodeError{NodeID: functionID}
	}
	vals, ok := g.store.Outputs(invocationID, functionID)
	if !ok {
		return nil, &NoResultsError{FunctionID: functionID, GraphName: g.Name}
	}
	return vals, nil
}

// Status reports whether invocationID has reached a terminal state yet,
// without blocking. The bool return is false if invocationID was never
// submitted on this graph.
func (g *Graph) Status(invocationID string) (done bool, err error, ok bool) {
	g.invocationsMu.Lock()
	inv, ok := g.invocations[invocationID]
	g.invocationsMu.Unlock()
	if !ok {
		return false, nil, false
	}
	done, err = inv.Status()
	return done, err, true
}

// validateEncoders checks that every registered node's encoder tag is
// known to the graph's codec registry before any task runs (§4.2:
// InvalidEncoderError is fatal at submission, not mid-run).
func (g *Graph) validateEncoders() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, e := range g.nodes {
		tag := e.encoder()
		if _, ok := g.registry.Lookup(tag); !ok {
			return &InvalidEncoderError{NodeID: id, Tag: tag}
		}
	}
	return nil
}
