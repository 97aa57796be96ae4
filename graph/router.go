package graph

import (
	"context"

	"github.com/zclconf/go-cty/cty"
)

// RouterBody is the typed callable a RouterDescriptor invokes. It returns
// one or more target function identifiers (drawn from the router's
// declared candidate set, checked at dispatch time) rather than a data
// value.
type RouterBody func(ctx context.Context, in InputBundle) ([]string, error)

// RouterDescriptor is a specialization of FunctionDescriptor whose body
// returns target node ids instead of a data value (§3).
type RouterDescriptor struct {
	id      string
	param   ParamSpec
	encoder string
	body    RouterBody
}

// NewRouter registers a Router Descriptor: id, its single input parameter,
// and its body. The candidate set a router may dispatch to is declared
// separately via Graph.Route.
func NewRouter(id string, param ParamSpec, body RouterBody, opts ...FuncOption) (*RouterDescriptor, error) {
	cfg, id := applyOptions(id, opts)
	return &RouterDescriptor{
		id:      id,
		param:   param,
		encoder: cfg.encoder,
		body:    body,
	}, nil
}

// ID returns the router's registered identifier.
func (r *RouterDescriptor) ID() string { return r.id }

func (r *RouterDescriptor) nodeID() string          { return r.id }
func (r *RouterDescriptor) outputTypeTag() cty.Type { return cty.NilType }
func (r *RouterDescriptor) isRouterNode() bool      { return true }
func (r *RouterDescriptor) encoderTag() string      { return r.encoder }
func (r *RouterDescriptor) dataParam() ParamSpec    { return r.param }

func (r *RouterDescriptor) run(ctx context.Context, in InputBundle) ([]string, error) {
	return r.body(ctx, in)
}
