package graph

import "github.com/zclconf/go-cty/cty"

// edgeTargetType returns the type tag an edge's successor expects its
// incoming element to satisfy: the router/function's data parameter type
// (the first parameter, or the second when the successor is a reducer —
// see FunctionDescriptor.dataParam).
func edgeTargetType(succ *entry) cty.Type {
	if succ.rt != nil {
		return succ.rt.param.Type
	}
	return succ.fn.dataParam().Type
}

// edgeSourceType returns the type tag a producer puts onto an edge: its
// element type if its declared output is Seq<T>, otherwise its output type
// directly (§3: "producer's output_type (or element type, if Seq<T>) must
// match the successor's first parameter type").
func edgeSourceType(src *entry) cty.Type {
	t := src.outputType()
	if IsSeq(t) {
		return ElemType(t)
	}
	return t
}

// checkEdgeTypes validates that src may flow into succ, returning a
// *TypeMismatchError describing the incompatibility if not. Routers have
// no output type of their own (they forward whatever value flowed into
// them), so only Function producers are type-checked here. A router's
// candidates are not type-checked against its parameter at all: at
// dispatch time only membership of each returned target in the router's
// candidate set is checked (UnknownRouteError).
func checkEdgeTypes(src, succ *entry) error {
	if src.isRouter() {
		return nil
	}
	want := edgeTargetType(succ)
	got := edgeSourceType(src)
	if !typesCompatible(got, want) {
		return &TypeMismatchError{
			From:   src.id(),
			To:     succ.id(),
			Reason: got.FriendlyName() + " does not match expected " + want.FriendlyName(),
		}
	}
	return nil
}
