package graph

import "github.com/zclconf/go-cty/cty"

// Node is the common interface satisfied by both *FunctionDescriptor and
// *RouterDescriptor, letting Graph construction accept either wherever the
// spec's data model allows "F ∪ R, keyed by id" (§3).
type Node interface {
	nodeID() string
	outputTypeTag() cty.Type
	isRouterNode() bool
	encoderTag() string
	dataParam() ParamSpec
}

var (
	_ Node = (*FunctionDescriptor)(nil)
	_ Node = (*RouterDescriptor)(nil)
)

// entry is the graph's internal record for one registered node.
type entry struct {
	fn *FunctionDescriptor // nil if this entry is a router
	rt *RouterDescriptor   // nil if this entry is a function
}

func newFunctionEntry(f *FunctionDescriptor) *entry { return &entry{fn: f} }
func newRouterEntry(r *RouterDescriptor) *entry     { return &entry{rt: r} }

func (e *entry) id() string {
	if e.rt != nil {
		return e.rt.id
	}
	return e.fn.id
}

func (e *entry) isRouter() bool { return e.rt != nil }

func (e *entry) hasAccumulator() bool {
	return e.fn != nil && e.fn.accumulate
}

func (e *entry) outputType() cty.Type {
	if e.rt != nil {
		return cty.NilType
	}
	return e.fn.outputType
}

func (e *entry) encoder() string {
	if e.rt != nil {
		return e.rt.encoder
	}
	return e.fn.encoder
}

func (e *entry) dataParamName() string {
	if e.rt != nil {
		return e.rt.param.Name
	}
	return e.fn.dataParam().Name
}
