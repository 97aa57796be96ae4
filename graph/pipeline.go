package graph

// Pipeline is thin linear sugar over Graph (§8 of spec.md): AddStep(s) is
// equivalent to AddEdge(previous_step, s), and the first step becomes the
// graph's start node. Graph construction is deferred until the first step
// is added, since Graph requires a start node up front.
type Pipeline struct {
	name        string
	description string
	opts        []GraphOption

	g    *Graph
	prev Node
}

// NewPipeline returns a Pipeline that will build its underlying Graph from
// the first step passed to AddStep.
func NewPipeline(name, description string, opts ...GraphOption) *Pipeline {
	return &Pipeline{name: name, description: description, opts: opts}
}

// AddStep appends s after the previously added step, or establishes s as
// the pipeline's start node if this is the first call.
func (p *Pipeline) AddStep(s Node) error {
	if p.g == nil {
		p.g = NewGraph(p.name, p.description, s, p.opts...)
		p.prev = s
		return nil
	}
	if err := p.g.AddEdge(p.prev, s); err != nil {
		return err
	}
	p.prev = s
	return nil
}

// Graph returns the Pipeline's underlying Graph. Nil until the first
// AddStep call.
func (p *Pipeline) Graph() *Graph { return p.g }
