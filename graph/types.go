package graph

import "github.com/zclconf/go-cty/cty"

// ParamSpec is one entry of a function's ordered input schema: a parameter
// name paired with its declared type tag.
//
// Type tags are represented with cty.Type (github.com/zclconf/go-cty), the
// ecosystem's dynamic type-system library: a Seq<T> output is simply
// cty.List(T), so edge validation (producer output/element type must equal
// successor's first data parameter type) reduces to cty.Type equality plus
// cty's own IsListType/ElementType helpers instead of a bespoke type-tag
// algebra.
type ParamSpec struct {
	Name string
	Type cty.Type
}

// Seq builds the type tag for a sequence-valued output Seq<T>.
func Seq(elem cty.Type) cty.Type { return cty.List(elem) }

// IsSeq reports whether t was declared with Seq, i.e. a node whose
// output_type fans out per §4.5.
func IsSeq(t cty.Type) bool { return t.IsListType() }

// ElemType returns the element type of a Seq<T> type tag. Panics if t is
// not a Seq type; callers should guard with IsSeq first.
func ElemType(t cty.Type) cty.Type { return t.ElementType() }

// typesCompatible reports whether a producer's type tag may flow into a
// consumer's declared parameter type tag. cty.Type equality is structural,
// so two independently-built cty.Object shapes with the same attributes
// compare equal.
func typesCompatible(producer, consumer cty.Type) bool {
	return producer.Equals(consumer)
}

// File is the built-in value type a graph input may carry: either raw
// bytes or text, plus free-form metadata. Declared with an object-shaped
// type tag (FileType) so it participates in the same edge-validation path
// as any other value.
type File struct {
	Data     []byte
	Text     string
	Metadata map[string]any
}

// FileType is the cty.Type shape used to declare a File-typed parameter or
// output. It is intentionally permissive (DynamicPseudoType for Metadata)
// since Metadata values are caller-defined and not known at graph-build
// time.
var FileType = cty.Object(map[string]cty.Type{
	"data":     cty.String,
	"text":     cty.String,
	"metadata": cty.DynamicPseudoType,
})

// Skip is the sentinel value a FunctionBody returns in place of a normal
// output to signal "drop this element": it is neither recorded in the
// output store nor dispatched to successors. This is the typed
// replacement for a dynamic-language None/null filtering convention (see
// SPEC_FULL.md Design Notes): a function that legitimately wants to
// produce a nil pointer or zero value is never mistaken for one that wants
// to filter.
type Skip struct{}

// SkipValue is the canonical Skip instance; FunctionBody implementations
// return this (not a zero-value Skip{} built elsewhere, though that is
// equally valid) to filter an element.
var SkipValue = Skip{}

func isSkip(v any) bool {
	_, ok := v.(Skip)
	return ok
}
