package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/fngraph/fngraph/graph"
)

// ReferenceServer is a minimal HTTP peer exercising the remote adapter's
// server-side contract against graphs registered in-process. It is a
// reference/test implementation, not a production supervisor: graphs
// carry Go closures as function bodies and so cannot themselves travel
// over the wire, which is why Register takes a live *graph.Graph rather
// than a serialized description.
type ReferenceServer struct {
	mu     sync.RWMutex
	graphs map[string]*graph.Graph

	router *mux.Router
}

// NewReferenceServer builds a ReferenceServer with its routes wired.
func NewReferenceServer() *ReferenceServer {
	s := &ReferenceServer{graphs: make(map[string]*graph.Graph)}

	r := mux.NewRouter()
	r.HandleFunc("/graphs/{name}", s.handleGetGraph).Methods(http.MethodGet)
	r.HandleFunc("/graphs/{name}/run", s.handleRun).Methods(http.MethodPost)
	r.HandleFunc("/graphs/{name}/invocations/{invocationID}/output/{functionID}", s.handleOutput).Methods(http.MethodGet)
	r.HandleFunc("/graphs/{name}/invocations/{invocationID}/status", s.handleStatus).Methods(http.MethodGet)
	s.router = r

	return s
}

// Register makes g available under name to subsequent Deploy/ByName
// client calls.
func (s *ReferenceServer) Register(name string, g *graph.Graph) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[name] = g
}

// ServeHTTP lets ReferenceServer be used directly with net/http.Server or
// httptest.Server.
func (s *ReferenceServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *ReferenceServer) lookup(name string) (*graph.Graph, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[name]
	return g, ok
}

func (s *ReferenceServer) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if _, ok := s.lookup(name); !ok {
		http.Error(w, "unknown graph", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *ReferenceServer) handleRun(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	g, ok := s.lookup(name)
	if !ok {
		http.Error(w, "unknown graph", http.StatusNotFound)
		return
	}

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The invocation must outlive this request: a Handle that wants
	// blocking semantics polls the status endpoint below rather than
	// holding this connection open, so Run is always started detached
	// from r.Context() and never awaited here, regardless of
	// req.BlockUntilDone.
	id, err := g.Run(context.Background(), false, graph.InputBundle(req.Kwargs))
	if err != nil {
		writeJSON(w, statusForErr(err), runResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, runResponse{InvocationID: id})
}

func (s *ReferenceServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	g, ok := s.lookup(vars["name"])
	if !ok {
		http.Error(w, "unknown graph", http.StatusNotFound)
		return
	}

	done, err, ok := g.Status(vars["invocationID"])
	if !ok {
		http.Error(w, "unknown invocation", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSON(w, http.StatusOK, statusResponse{Done: done, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Done: done})
}

func (s *ReferenceServer) handleOutput(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	g, ok := s.lookup(vars["name"])
	if !ok {
		http.Error(w, "unknown graph", http.StatusNotFound)
		return
	}

	values, err := g.Output(vars["invocationID"], vars["functionID"])
	if err != nil {
		writeJSON(w, statusForErr(err), outputResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, outputResponse{Values: values})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusForErr maps fngraph's error taxonomy onto HTTP status codes so a
// Client can distinguish "not found" conditions from genuine failures
// without parsing error text.
func statusForErr(err error) int {
	switch {
	case errors.Is(err, graph.ErrUnknownNode), errors.Is(err, graph.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, graph.ErrInvalidEncoder), errors.Is(err, graph.ErrTypeMismatch), errors.Is(err, graph.ErrUnknownRoute):
		return http.StatusBadRequest
	case errors.Is(err, graph.ErrInvocationFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
