package graph

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/zclconf/go-cty/cty"
)

// These cover the eight literal end-to-end scenarios named in §8.

func TestScenarioSimpleScalar(t *testing.T) {
	f, err := NewFunction("f", []ParamSpec{{Name: "x", Type: cty.String}}, cty.String,
		func(_ context.Context, in InputBundle) (any, error) {
			return in["x"].(string) + "b", nil
		})
	if err != nil {
		t.Fatal(err)
	}
	g := NewGraph("simple_scalar", "", f)

	id, err := g.Run(context.Background(), true, InputBundle{"x": "a"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Output(id, "f")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != "ab" {
		t.Fatalf("got %v, want [ab]", out)
	}
}

func TestScenarioMultiInputScalar(t *testing.T) {
	f, err := NewFunction("f",
		[]ParamSpec{{Name: "x", Type: cty.String}, {Name: "y", Type: cty.Number}},
		cty.String,
		func(_ context.Context, in InputBundle) (any, error) {
			y := in["y"].(int)
			return in["x"].(string) + strings.Repeat("b", y), nil
		})
	if err != nil {
		t.Fatal(err)
	}
	g := NewGraph("multi_input_scalar", "", f)

	id, err := g.Run(context.Background(), true, InputBundle{"x": "a", "y": 10})
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Output(id, "f")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != "abbbbbbbbbb" {
		t.Fatalf("got %v, want [abbbbbbbbbb]", out)
	}
}

func TestScenarioMapThenSquare(t *testing.T) {
	genSeq, err := NewFunction("generate_seq", []ParamSpec{{Name: "n", Type: cty.Number}}, Seq(cty.Number),
		func(_ context.Context, in InputBundle) (any, error) {
			n := in["n"].(int)
			out := make([]any, n)
			for i := 0; i < n; i++ {
				out[i] = i
			}
			return out, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	square, err := NewFunction("square", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(_ context.Context, in InputBundle) (any, error) {
			x := in["x"].(int)
			return x * x, nil
		})
	if err != nil {
		t.Fatal(err)
	}

	g := NewGraph("map_square", "", genSeq)
	if err := g.AddEdge(genSeq, square); err != nil {
		t.Fatal(err)
	}

	id, err := g.Run(context.Background(), true, InputBundle{"n": 3})
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Output(id, "square")
	if err != nil {
		t.Fatal(err)
	}
	got := intsOf(t, out)
	sort.Ints(got)
	if !equalInts(got, []int{0, 1, 4}) {
		t.Fatalf("got %v, want [0 1 4]", got)
	}
}

// Sum is the accumulator type for the map+reduce+stringify scenario.
type Sum struct{ Val int }

var sumType = cty.Object(map[string]cty.Type{"val": cty.Number})

func TestScenarioMapReduceStringify(t *testing.T) {
	genSeq, _ := NewFunction("generate_seq", []ParamSpec{{Name: "n", Type: cty.Number}}, Seq(cty.Number),
		func(_ context.Context, in InputBundle) (any, error) {
			n := in["n"].(int)
			out := make([]any, n)
			for i := 0; i < n; i++ {
				out[i] = i
			}
			return out, nil
		})
	square, _ := NewFunction("square", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(_ context.Context, in InputBundle) (any, error) {
			x := in["x"].(int)
			return x * x, nil
		})
	sumOfSquares, err := NewFunction("sum_of_squares",
		[]ParamSpec{{Name: "acc", Type: sumType}, {Name: "x", Type: cty.Number}},
		sumType,
		func(_ context.Context, in InputBundle) (any, error) {
			acc := in["acc"].(Sum)
			return Sum{Val: acc.Val + in["x"].(int)}, nil
		},
		WithAccumulate(sumType, func() any { return Sum{Val: 0} }),
	)
	if err != nil {
		t.Fatal(err)
	}
	makeItString, err := NewFunction("make_it_string", []ParamSpec{{Name: "sum", Type: sumType}}, cty.String,
		func(_ context.Context, in InputBundle) (any, error) {
			return itoa(in["sum"].(Sum).Val), nil
		})
	if err != nil {
		t.Fatal(err)
	}

	g := NewGraph("map_reduce_stringify", "", genSeq)
	must(t, g.AddEdge(genSeq, square))
	must(t, g.AddEdge(square, sumOfSquares))
	must(t, g.AddEdge(sumOfSquares, makeItString))

	id, err := g.Run(context.Background(), true, InputBundle{"n": 3})
	if err != nil {
		t.Fatal(err)
	}

	strOut, err := g.Output(id, "make_it_string")
	if err != nil {
		t.Fatal(err)
	}
	if len(strOut) != 1 || strOut[0] != "5" {
		t.Fatalf("make_it_string = %v, want [5]", strOut)
	}

	sumOut, err := g.Output(id, "sum_of_squares")
	if err != nil {
		t.Fatal(err)
	}
	if len(sumOut) != 1 || sumOut[0].(Sum) != (Sum{Val: 5}) {
		t.Fatalf("sum_of_squares = %v, want [{5}]", sumOut)
	}
}

func TestScenarioRouterByParity(t *testing.T) {
	addTwo, _ := NewFunction("add_two", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(_ context.Context, in InputBundle) (any, error) { return in["x"].(int) + 2, nil })
	addThree, _ := NewFunction("add_three", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(_ context.Context, in InputBundle) (any, error) { return in["x"].(int) + 3, nil })
	routeIfEven, err := NewRouter("route_if_even", ParamSpec{Name: "val", Type: cty.Number},
		func(_ context.Context, in InputBundle) ([]string, error) {
			if in["val"].(int)%2 == 0 {
				return []string{"add_three"}, nil
			}
			return []string{"add_two"}, nil
		})
	if err != nil {
		t.Fatal(err)
	}

	g := NewGraph("router_parity", "", routeIfEven)
	must(t, g.Route(routeIfEven, []Node{addTwo, addThree}))

	id, err := g.Run(context.Background(), true, InputBundle{"val": 2})
	if err != nil {
		t.Fatal(err)
	}

	addThreeOut, err := g.Output(id, "add_three")
	if err != nil {
		t.Fatal(err)
	}
	if len(addThreeOut) != 1 || addThreeOut[0] != 5 {
		t.Fatalf("add_three = %v, want [5]", addThreeOut)
	}

	_, err = g.Output(id, "add_two")
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected NoResults for add_two, got %v", err)
	}
}

func TestScenarioNoneFilterMap(t *testing.T) {
	genSeq, _ := NewFunction("gen_seq", []ParamSpec{{Name: "n", Type: cty.Number}}, Seq(cty.Number),
		func(_ context.Context, in InputBundle) (any, error) {
			n := in["n"].(int)
			out := make([]any, n)
			for i := 0; i < n; i++ {
				out[i] = i
			}
			return out, nil
		})
	filterEven, _ := NewFunction("filter_even", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(_ context.Context, in InputBundle) (any, error) {
			x := in["x"].(int)
			if x%2 != 0 {
				return SkipValue, nil
			}
			return x, nil
		})
	plusTwo, err := NewFunction("plus_two", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(_ context.Context, in InputBundle) (any, error) { return in["x"].(int) + 2, nil })
	if err != nil {
		t.Fatal(err)
	}

	g := NewGraph("none_filter_map", "", genSeq)
	must(t, g.AddEdge(genSeq, filterEven))
	must(t, g.AddEdge(filterEven, plusTwo))

	id, err := g.Run(context.Background(), true, InputBundle{"n": 5})
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Output(id, "plus_two")
	if err != nil {
		t.Fatal(err)
	}
	got := intsOf(t, out)
	sort.Ints(got)
	if !equalInts(got, []int{2, 4, 6}) {
		t.Fatalf("got %v, want [2 4 6]", got)
	}
}

func TestScenarioInvalidEncoder(t *testing.T) {
	f, err := NewFunction("f", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(_ context.Context, in InputBundle) (any, error) { return in["x"], nil },
		WithEncoder("invalid"),
	)
	if err != nil {
		t.Fatal(err)
	}
	g := NewGraph("invalid_encoder", "", f)

	_, err = g.Run(context.Background(), true, InputBundle{"x": 1})
	if !errors.Is(err, ErrInvalidEncoder) {
		t.Fatalf("expected InvalidEncoder, got %v", err)
	}
}

func TestScenarioContextPropagation(t *testing.T) {
	nodeA, _ := NewFunction("A", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(ctx context.Context, in InputBundle) (any, error) {
			ic := FromContext(ctx)
			ic.SetStateKey("my_key", 10)
			return in["x"], nil
		})
	nodeB, err := NewFunction("B", []ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(ctx context.Context, in InputBundle) (any, error) {
			ic := FromContext(ctx)
			return ic.GetStateKey("my_key").(int) + 1, nil
		})
	if err != nil {
		t.Fatal(err)
	}

	g := NewGraph("context_propagation", "", nodeA)
	must(t, g.AddEdge(nodeA, nodeB))

	id, err := g.Run(context.Background(), true, InputBundle{"x": 0})
	if err != nil {
		t.Fatal(err)
	}
	out, err := g.Output(id, "B")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0] != 11 {
		t.Fatalf("got %v, want [11]", out)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func intsOf(t *testing.T, vals []any) []int {
	t.Helper()
	out := make([]int, len(vals))
	for i, v := range vals {
		out[i] = v.(int)
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
