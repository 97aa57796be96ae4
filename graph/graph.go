package graph

import (
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fngraph/fngraph/graph/store"
)

// Graph is a typed DAG of Function/Router descriptors with a distinguished
// start node and declared edges (§3). It validates structural
// well-formedness incrementally as edges/routes are added, and validates
// weak connectivity from its start node once, lazily, before its first
// invocation.
type Graph struct {
	Name        string
	Version     string
	Description string

	mu            sync.RWMutex
	nodes         map[string]*entry
	successors    map[string][]string        // node id -> ordered successor ids (function nodes only)
	routerTargets map[string]map[string]bool // router id -> declared candidate set
	start         Node

	registry *Registry
	store    store.Store
	logger   *Logger
	metrics  *Metrics

	maxConcurrent int

	validateOnce sync.Once
	validateErr  error

	invocations   map[string]*Invocation
	invocationsMu sync.Mutex
}

// GraphOption configures a Graph at construction time.
type GraphOption func(*Graph)

// WithVersion sets the graph's version string (default "").
func WithVersion(v string) GraphOption { return func(g *Graph) { g.Version = v } }

// WithRegistry overrides the codec registry used to validate node
// encoders. Default: NewRegistry() (the two built-in codecs only).
func WithRegistry(r *Registry) GraphOption { return func(g *Graph) { g.registry = r } }

// WithOutputStore overrides the output store backing Graph.Output.
// Default: an in-memory store.MemStore.
func WithOutputStore(s store.Store) GraphOption { return func(g *Graph) { g.store = s } }

// WithMaxConcurrentTasks bounds how many independent dispatch jobs the
// scheduler runs in parallel. Default: 4. Set to 1 for strict FIFO
// single-threaded execution.
func WithMaxConcurrentTasks(n int) GraphOption {
	return func(g *Graph) {
		if n > 0 {
			g.maxConcurrent = n
		}
	}
}

// WithLogger overrides the graph's structured logger. Default: a
// production zap logger.
func WithLogger(l *Logger) GraphOption { return func(g *Graph) { g.logger = l } }

// WithMetrics overrides the graph's Prometheus metrics collector. Default:
// metrics registered against a fresh registry private to this graph.
func WithMetrics(m *Metrics) GraphOption { return func(g *Graph) { g.metrics = m } }

// NewGraph constructs a Graph with the given start node. Matches
// spec.md's `Graph(name, description, start_node) -> G`.
func NewGraph(name, description string, start Node, opts ...GraphOption) *Graph {
	g := &Graph{
		Name:          name,
		Description:   description,
		nodes:         make(map[string]*entry),
		successors:    make(map[string][]string),
		routerTargets: make(map[string]map[string]bool),
		start:         start,
		registry:      NewRegistry(),
		maxConcurrent: 4,
		invocations:   make(map[string]*Invocation),
	}
	g.registerNode(start)
	for _, o := range opts {
		o(g)
	}
	if g.store == nil {
		g.store = store.NewMemStore()
	}
	if g.logger == nil {
		g.logger = NewProductionLogger()
	}
	if g.metrics == nil {
		g.metrics = NewMetrics(prometheus.NewRegistry())
	}
	g.logger.graphBuilt(g.Name, g.Version, len(g.nodes))
	return g
}

// registerNode adds n to the graph's node table if not already present.
// Returns an error if n's id is already registered as the other kind of
// node (a function cannot also be a router): "no node is both a router
// and a data function" (§3 invariant).
func (g *Graph) registerNode(n Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registerNodeLocked(n)
}

func (g *Graph) registerNodeLocked(n Node) error {
	id := n.nodeID()
	existing, ok := g.nodes[id]
	if !ok {
		switch v := n.(type) {
		case *FunctionDescriptor:
			g.nodes[id] = newFunctionEntry(v)
		case *RouterDescriptor:
			g.nodes[id] = newRouterEntry(v)
		default:
			return fmt.Errorf("fngraph: unsupported node type for %q", id)
		}
		return nil
	}
	if existing.isRouter() != n.isRouterNode() {
		return fmt.Errorf("fngraph: node %q is registered as both a router and a function", id)
	}
	return nil
}

// AddEdge appends v to u's successor list and validates type
// compatibility between them (§4.3). Fatal TypeMismatchError at the first
// incompatibility; both endpoints are registered as nodes if not already
// known.
func (g *Graph) AddEdge(u, v Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.registerNodeLocked(u); err != nil {
		return err
	}
	if err := g.registerNodeLocked(v); err != nil {
		return err
	}

	srcEntry := g.nodes[u.nodeID()]
	succEntry := g.nodes[v.nodeID()]

	if err := checkEdgeTypes(srcEntry, succEntry); err != nil {
		return err
	}

	g.successors[u.nodeID()] = append(g.successors[u.nodeID()], v.nodeID())
	return nil
}

// Route declares r's candidate target set (§4.3). r and every candidate
// are registered as nodes if not already known, so a router may be
// declared purely via Route (e.g. as the graph's start node) without ever
// appearing in an AddEdge call.
func (g *Graph) Route(r Node, candidates []Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !r.isRouterNode() {
		return fmt.Errorf("fngraph: Route called on non-router node %q", r.nodeID())
	}
	if err := g.registerNodeLocked(r); err != nil {
		return err
	}

	ids := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if err := g.registerNodeLocked(c); err != nil {
			return err
		}
		ids[c.nodeID()] = true
	}
	g.routerTargets[r.nodeID()] = ids
	return nil
}

// validate performs the remaining build-time invariant checks that can
// only be done once the graph is otherwise complete: every node reachable
// from start (weak connectivity), and collects every problem found via
// go-multierror instead of stopping at the first. Runs once, memoized.
func (g *Graph) validate() error {
	g.validateOnce.Do(func() {
		g.validateErr = g.doValidate()
	})
	return g.validateErr
}

func (g *Graph) doValidate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var result *multierror.Error

	// Build an undirected adjacency view (edges + router candidate links)
	// and BFS from start.
	undirected := make(map[string]map[string]bool)
	link := func(a, b string) {
		if undirected[a] == nil {
			undirected[a] = make(map[string]bool)
		}
		if undirected[b] == nil {
			undirected[b] = make(map[string]bool)
		}
		undirected[a][b] = true
		undirected[b][a] = true
	}
	for from, tos := range g.successors {
		for _, to := range tos {
			link(from, to)
		}
	}
	for router, candidates := range g.routerTargets {
		for cand := range candidates {
			link(router, cand)
		}
	}

	seen := map[string]bool{g.start.nodeID(): true}
	queue := []string{g.start.nodeID()}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for nbr := range undirected[cur] {
			if !seen[nbr] {
				seen[nbr] = true
				queue = append(queue, nbr)
			}
		}
	}
	for id := range g.nodes {
		if !seen[id] {
			result = multierror.Append(result, fmt.Errorf("fngraph: node %q is not reachable from start node %q", id, g.start.nodeID()))
		}
	}

	if result != nil {
		return result.ErrorOrNil()
	}
	return nil
}

// entryByID returns the registered entry for id, or (nil, false).
func (g *Graph) entryByID(id string) (*entry, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.nodes[id]
	return e, ok
}

func (g *Graph) successorsOf(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s := g.successors[id]
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func (g *Graph) isValidRouteTarget(routerID, target string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.routerTargets[routerID][target]
}
