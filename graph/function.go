package graph

import (
	"context"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// InputBundle is the resolved set of argument values for one task
// dispatch, keyed by parameter name. For the start node it holds every
// keyword argument the caller passed to Graph.Run; for every other node it
// holds exactly the parameters that node declares (the upstream element
// under its data parameter name, plus the running accumulator under its
// first parameter name if the node is a reducer).
type InputBundle map[string]any

// FuncBody is the typed callable a FunctionDescriptor invokes for one
// task. It returns the produced value (a scalar, a slice for a Seq<T>
// output, or SkipValue to filter this element) or an error, which halts
// the invocation with InvocationFailedError.
type FuncBody func(ctx context.Context, in InputBundle) (any, error)

// FunctionDescriptor is a registered unit of computation: an identifier,
// an ordered input parameter schema, an output type tag, an encoder tag,
// an optional accumulator seed (making it a reducer), and a callable body.
type FunctionDescriptor struct {
	id         string
	params     []ParamSpec
	outputType cty.Type
	encoder    string

	accumulate      bool
	accumulatorType cty.Type
	seed            func() any

	body FuncBody
}

// FuncOption configures a FunctionDescriptor or RouterDescriptor at
// registration time.
type FuncOption func(*funcConfig)

type funcConfig struct {
	encoder         string
	name            string
	accumulate      bool
	accumulatorType cty.Type
	seed            func() any
}

// WithEncoder selects the codec tag used for this node's outputs and
// inputs. Default: DefaultEncoderTag ("cloudpickle").
func WithEncoder(tag string) FuncOption {
	return func(c *funcConfig) { c.encoder = tag }
}

// WithAccumulate declares a reducer: the node's first parameter carries
// the running accumulator, initialized by calling seed() once per
// upstream sequence. seedType is the accumulator's type tag, used to
// validate the first parameter's declared type against it.
func WithAccumulate(seedType cty.Type, seed func() any) FuncOption {
	return func(c *funcConfig) {
		c.accumulate = true
		c.accumulatorType = seedType
		c.seed = seed
	}
}

// WithName overrides the identifier a function or router registers under.
func WithName(name string) FuncOption {
	return func(c *funcConfig) { c.name = name }
}

func applyOptions(id string, opts []FuncOption) (funcConfig, string) {
	cfg := funcConfig{encoder: DefaultEncoderTag}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.name != "" {
		id = cfg.name
	}
	return cfg, id
}

// NewFunction registers a Function Descriptor: id, its ordered input
// schema, its declared output type (use Seq(elem) for a fan-out-producing
// node), and its body.
//
// If WithAccumulate is given, params[0] must describe the accumulator
// (its Type must equal the seed type) and the node's real data
// parameter is params[1]; this matches the original system's convention
// that a reducer's first positional parameter receives the running
// accumulator.
func NewFunction(id string, params []ParamSpec, outputType cty.Type, body FuncBody, opts ...FuncOption) (*FunctionDescriptor, error) {
	cfg, id := applyOptions(id, opts)
	if cfg.accumulate && len(params) < 2 {
		return nil, fmt.Errorf("fngraph: reducer %q must declare an accumulator parameter plus at least one data parameter", id)
	}
	if cfg.accumulate && !params[0].Type.Equals(cfg.accumulatorType) {
		return nil, fmt.Errorf("fngraph: reducer %q: accumulator parameter %q type does not match the seed type", id, params[0].Name)
	}
	return &FunctionDescriptor{
		id:              id,
		params:          params,
		outputType:      outputType,
		encoder:         cfg.encoder,
		accumulate:      cfg.accumulate,
		accumulatorType: cfg.accumulatorType,
		seed:            cfg.seed,
		body:            body,
	}, nil
}

// ID returns the function's registered identifier.
func (f *FunctionDescriptor) ID() string { return f.id }

func (f *FunctionDescriptor) nodeID() string       { return f.id }
func (f *FunctionDescriptor) outputTypeTag() cty.Type { return f.outputType }
func (f *FunctionDescriptor) isRouterNode() bool   { return false }
func (f *FunctionDescriptor) encoderTag() string   { return f.encoder }

// dataParam returns the parameter an upstream single element
// is bound to: the first parameter, or the second when this function is a
// reducer (whose first parameter is the accumulator).
func (f *FunctionDescriptor) dataParam() ParamSpec {
	if f.accumulate {
		return f.params[1]
	}
	return f.params[0]
}

func (f *FunctionDescriptor) run(ctx context.Context, in InputBundle) (any, error) {
	return f.body(ctx, in)
}
