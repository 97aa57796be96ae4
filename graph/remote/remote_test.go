package remote

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/zclconf/go-cty/cty"

	"github.com/fngraph/fngraph/graph"
)

func buildDoublerGraph(t *testing.T) *graph.Graph {
	t.Helper()
	f, err := graph.NewFunction("double", []graph.ParamSpec{{Name: "x", Type: cty.Number}}, cty.Number,
		func(_ context.Context, in graph.InputBundle) (any, error) {
			// kwargs reach the server JSON-decoded, so numbers are float64.
			return in["x"].(float64) * 2, nil
		})
	if err != nil {
		t.Fatal(err)
	}
	return graph.NewGraph("doubler", "", f)
}

func TestClientServerRunAndOutput(t *testing.T) {
	srv := NewReferenceServer()
	srv.Register("doubler", buildDoublerGraph(t))

	ts := httptest.NewServer(srv)
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL})
	if err != nil {
		t.Fatal(err)
	}

	h, err := c.Deploy(context.Background(), "doubler")
	if err != nil {
		t.Fatal(err)
	}

	invID, err := h.Run(context.Background(), true, graph.InputBundle{"x": 21})
	if err != nil {
		t.Fatal(err)
	}
	if invID == "" {
		t.Fatal("expected a non-empty invocation id")
	}

	out, err := h.Output(context.Background(), invID, "double")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("got %v, want one value", out)
	}
	n, ok := out[0].(float64) // JSON numbers decode as float64
	if !ok || n != 42 {
		t.Fatalf("got %v, want 42", out[0])
	}
}

func TestClientDeployUnknownGraph(t *testing.T) {
	srv := NewReferenceServer()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Deploy(context.Background(), "nope"); err == nil {
		t.Fatal("expected an error deploying an unregistered graph")
	}
}

func TestClientOutputUnknownFunction(t *testing.T) {
	srv := NewReferenceServer()
	srv.Register("doubler", buildDoublerGraph(t))

	ts := httptest.NewServer(srv)
	defer ts.Close()

	c, err := NewClient(Config{BaseURL: ts.URL})
	if err != nil {
		t.Fatal(err)
	}
	h := c.ByName("doubler")

	invID, err := h.Run(context.Background(), true, graph.InputBundle{"x": 1})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Output(context.Background(), invID, "does-not-exist"); err == nil {
		t.Fatal("expected an error for an unregistered function id")
	}
}
