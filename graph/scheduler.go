package graph

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mitchellh/copystructure"
	"github.com/oklog/ulid/v2"
	"github.com/zclconf/go-cty/cty"
)

// dispatchJob is one schedulable unit of work: a batch of individual
// values arriving at nodeID's data parameter. elems is nil for the start
// node, whose InputBundle is the invocation's kwargs rather than a
// fanned-out element.
type dispatchJob struct {
	nodeID string
	elems  []any
}

// scheduler drives one invocation's execution: a bounded worker pool of
// dispatch jobs, each processed synchronously within its own goroutine
// (so reducer folds within one job are always strictly sequential, per
// §5), with independent jobs for distinct nodes free to run concurrently
// up to the graph's configured concurrency limit.
type scheduler struct {
	g   *Graph
	inv *Invocation

	sem chan struct{}
	wg  sync.WaitGroup

	pending atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	failed  bool
	failErr error

	started time.Time
}

func newScheduler(ctx context.Context, g *Graph, inv *Invocation) *scheduler {
	cctx, cancel := context.WithCancel(ctx)
	return &scheduler{
		g:       g,
		inv:     inv,
		sem:     make(chan struct{}, g.maxConcurrent),
		ctx:     cctx,
		cancel:  cancel,
		started: time.Now(),
	}
}

// Start seeds the queue with one task (start_node, start_kwargs) and mints
// the queue draining goroutine, matching spec.md §4.4's submission model.
func (s *scheduler) Start(kwargs InputBundle) {
	s.submit(func() { s.runStart(kwargs) })
	go func() {
		s.wg.Wait()
		s.finish()
	}()
}

func (s *scheduler) submit(fn func()) {
	s.mu.Lock()
	failed := s.failed
	s.mu.Unlock()
	if failed {
		return
	}

	s.wg.Add(1)
	s.pending.Add(1)
	s.g.metrics.UpdateQueueDepth(int(s.pending.Load()))

	go func() {
		defer s.wg.Done()
		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			s.pending.Add(-1)
			s.g.metrics.UpdateQueueDepth(int(s.pending.Load()))
			return
		}
		defer func() {
			<-s.sem
			s.g.metrics.UpdateInflightTasks(len(s.sem))
		}()

		s.pending.Add(-1)
		s.g.metrics.UpdateQueueDepth(int(s.pending.Load()))
		s.g.metrics.UpdateInflightTasks(len(s.sem))

		if s.ctx.Err() != nil {
			return
		}
		fn()
	}()
}

func (s *scheduler) fail(nodeID string, err error) {
	s.mu.Lock()
	if !s.failed {
		s.failed = true
		s.failErr = &InvocationFailedError{NodeID: nodeID, Cause: err}
	}
	s.mu.Unlock()
	s.g.logger.taskError(s.inv.ID, nodeID, err)
	s.g.metrics.RecordTask(nodeID, "error")
	s.cancel()
}

func (s *scheduler) finish() {
	s.mu.Lock()
	failErr := s.failErr
	failed := s.failed
	s.mu.Unlock()

	outcome := "success"
	if failed {
		outcome = "error"
	}
	s.g.metrics.RecordInvocation(s.g.Name, outcome, time.Since(s.started))
	s.g.logger.invocationDone(s.inv.ID, s.g.Name, failed)

	if failed {
		s.inv.fail(failErr)
		return
	}
	s.inv.succeed()
}

func (s *scheduler) taskContext() context.Context {
	return withInvocationContext(s.ctx, s.inv.ctx)
}

// runStart executes the graph's start node once with the invocation's
// kwargs as its full InputBundle (the start node is never fed a single
// fanned-out element — it is the origin of the invocation).
func (s *scheduler) runStart(kwargs InputBundle) {
	e, ok := s.g.entryByID(s.g.start.nodeID())
	if !ok {
		s.fail(s.g.start.nodeID(), fmt.Errorf("fngraph: start node %q not registered", s.g.start.nodeID()))
		return
	}
	if e.isRouter() {
		s.runRouter(e, []any{kwargs[e.dataParamName()]})
		return
	}
	produced, err := s.runEntry(e, kwargs)
	if err != nil {
		s.fail(e.id(), err)
		return
	}
	s.g.metrics.RecordTask(e.id(), "success")
	s.recordAndFanOut(e.id(), produced)
}

// runJob executes one dispatch job: nodeID's entry, invoked once per
// element in elems (or as a single reducer fold across all of them). A
// plain function's per-element results are collected across the whole
// batch before recording/fan-out, so every element one upstream task
// produced together reaches a reducer successor as a single job — a
// reducer must see its entire upstream sequence in one fold, not one
// fold per element (§4.4, §8 scenario 4).
func (s *scheduler) runJob(job dispatchJob) {
	e, ok := s.g.entryByID(job.nodeID)
	if !ok {
		s.fail(job.nodeID, fmt.Errorf("fngraph: %w: %q", ErrUnknownNode, job.nodeID))
		return
	}
	taskID := ulid.Make().String()
	s.g.logger.taskDispatch(s.inv.ID, job.nodeID, taskID, len(job.elems))

	if e.isRouter() {
		s.runRouter(e, job.elems)
		return
	}
	if e.hasAccumulator() {
		s.runReducer(e, job.elems)
		return
	}

	var produced []any
	for _, elem := range job.elems {
		in := InputBundle{e.dataParamName(): elem}
		out, err := s.runEntry(e, in)
		if err != nil {
			s.fail(e.id(), err)
			return
		}
		produced = append(produced, out...)
	}
	s.g.metrics.RecordTask(e.id(), "success")
	s.recordAndFanOut(e.id(), produced)
}

// runEntry runs one function task and returns its projected output
// values, without recording or fanning them out — callers batch that
// themselves so a whole dispatch job's worth of elements can be recorded
// and fanned out together.
func (s *scheduler) runEntry(e *entry, in InputBundle) ([]any, error) {
	result, err := e.fn.run(s.taskContext(), in)
	if err != nil {
		return nil, err
	}
	return projectOutput(e.outputType(), result), nil
}

// recordAndFanOut appends produced to nodeID's recorded outputs and
// schedules it onward to nodeID's successors.
func (s *scheduler) recordAndFanOut(nodeID string, produced []any) {
	for _, v := range produced {
		s.g.store.Append(s.inv.ID, nodeID, v)
	}
	s.fanOut(nodeID, produced)
}

// runReducer folds elems sequentially into a single accumulator, seeded
// once per batch, and records only the final value (§5, §8: "intermediate
// outputs are not observable through output() except as the final
// recorded list").
func (s *scheduler) runReducer(e *entry, elems []any) {
	acc := e.fn.seed()
	accName := e.fn.params[0].Name
	dataName := e.dataParamName()

	for _, elem := range elems {
		in := InputBundle{accName: acc, dataName: elem}
		result, err := e.fn.run(s.taskContext(), in)
		if err != nil {
			s.fail(e.id(), err)
			return
		}
		acc = result
	}
	s.g.metrics.RecordTask(e.id(), "success")
	s.recordAndFanOut(e.id(), []any{acc})
}

// runRouter dispatches each input element to the target node ids its body
// returns, re-sending the SAME element that flowed in (not a transformed
// value) — a router forwards, it does not transform (§3, §8 scenario 5).
func (s *scheduler) runRouter(e *entry, elems []any) {
	dataName := e.dataParamName()
	for _, elem := range elems {
		in := InputBundle{dataName: elem}
		targets, err := e.rt.run(s.taskContext(), in)
		if err != nil {
			s.fail(e.id(), err)
			return
		}
		s.g.logger.routeDecision(s.inv.ID, e.id(), targets)

		for _, target := range targets {
			if !s.g.isValidRouteTarget(e.id(), target) {
				s.fail(e.id(), &UnknownRouteError{RouterID: e.id(), Target: target})
				return
			}
			targetEntry, ok := s.g.entryByID(target)
			if !ok {
				s.fail(e.id(), fmt.Errorf("fngraph: %w: %q", ErrUnknownNode, target))
				return
			}
			converted, cerr := s.convertValue(e.id(), e.encoder(), target, targetEntry.encoder(), elem)
			if cerr != nil {
				s.fail(e.id(), cerr)
				return
			}
			s.submit(func(target string, v any) func() {
				return func() { s.runJob(dispatchJob{nodeID: target, elems: []any{v}}) }
			}(target, converted))
		}
	}
	s.g.metrics.RecordTask(e.id(), "success")
}

// fanOut schedules a dispatch job per declared successor of nodeID. Every
// value crossing the edge is converted from the producer's encoder tag
// to the successor's via convertValue; when more than one successor will
// receive the same produced batch, the values sent over each same-tag edge
// after the first are additionally deep-copied with copystructure (a
// cross-tag edge already gets a decoded copy from convertValue), so
// mutation by one downstream branch cannot leak
// into another (§7's isolation guarantee, adapted from the teacher's
// parallel-branch state copies).
func (s *scheduler) fanOut(nodeID string, produced []any) {
	if len(produced) == 0 {
		return
	}
	producerEntry, ok := s.g.entryByID(nodeID)
	if !ok {
		s.fail(nodeID, fmt.Errorf("fngraph: %w: %q", ErrUnknownNode, nodeID))
		return
	}
	producerTag := producerEntry.encoder()

	successors := s.g.successorsOf(nodeID)
	for i, succID := range successors {
		succEntry, ok := s.g.entryByID(succID)
		if !ok {
			s.fail(nodeID, fmt.Errorf("fngraph: %w: %q", ErrUnknownNode, succID))
			return
		}
		succTag := succEntry.encoder()

		batch := make([]any, len(produced))
		for j, v := range produced {
			cv, err := s.convertValue(nodeID, producerTag, succID, succTag, v)
			if err != nil {
				s.fail(nodeID, err)
				return
			}
			batch[j] = cv
		}
		if i > 0 && producerTag == succTag {
			batch = deepCopyAll(batch)
		}

		succID := succID
		s.submit(func() { s.runJob(dispatchJob{nodeID: succID, elems: batch}) })
	}
}

// convertValue is the only defined interop path between two differently
// -tagged nodes (§4.1): it round-trips v through fromTag's codec (encode,
// then decode) and then through toTag's codec, so a value crossing
// an edge between nodes with different encoder tags is genuinely
// constrained by both tags — including tag-induced lossy conversions
// (e.g. a `json`-tagged consumer only ever observes JSON-representable
// values) — rather than merely labeled by them. A same-tag edge is a
// no-op: v is returned unchanged.
func (s *scheduler) convertValue(fromNodeID, fromTag, toNodeID, toTag string, v any) (any, error) {
	if fromTag == toTag || v == nil {
		return v, nil
	}

	fromCodec, ok := s.g.registry.Lookup(fromTag)
	if !ok {
		return nil, &InvalidEncoderError{NodeID: fromNodeID, Tag: fromTag}
	}
	toCodec, ok := s.g.registry.Lookup(toTag)
	if !ok {
		return nil, &InvalidEncoderError{NodeID: toNodeID, Tag: toTag}
	}

	b, err := fromCodec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("fngraph: edge %s -> %s: encoding with %q codec: %w", fromNodeID, toNodeID, fromTag, err)
	}
	ptr := reflect.New(reflect.TypeOf(v))
	if err := fromCodec.Decode(b, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("fngraph: edge %s -> %s: decoding with %q codec: %w", fromNodeID, toNodeID, fromTag, err)
	}
	if b, err = toCodec.Encode(ptr.Elem().Interface()); err != nil {
		return nil, fmt.Errorf("fngraph: edge %s -> %s: encoding with %q codec: %w", fromNodeID, toNodeID, toTag, err)
	}
	ptr = reflect.New(reflect.TypeOf(v))
	if err := toCodec.Decode(b, ptr.Interface()); err != nil {
		return nil, fmt.Errorf("fngraph: edge %s -> %s: decoding with %q codec: %w", fromNodeID, toNodeID, toTag, err)
	}
	return ptr.Elem().Interface(), nil
}

func deepCopyAll(vals []any) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		cp, err := copystructure.Copy(v)
		if err != nil {
			out[i] = v
			continue
		}
		out[i] = cp
	}
	return out
}

// projectOutput expands a function's raw return value into the individual
// elements recorded in the output store and propagated downstream: a
// Seq<T>-declared output is flattened one entry per slice element, a
// SkipValue (or any Skip element within a Seq<T>) is filtered out
// entirely, and anything else is returned as the sole element (§3, §9).
func projectOutput(outputType cty.Type, result any) []any {
	if isSkip(result) {
		return nil
	}
	if !IsSeq(outputType) {
		return []any{result}
	}

	rv := reflect.ValueOf(result)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		if isSkip(result) {
			return nil
		}
		return []any{result}
	}

	out := make([]any, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		v := rv.Index(i).Interface()
		if isSkip(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
