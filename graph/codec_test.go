package graph

import "testing"

func TestCodecRoundTripCloudpickle(t *testing.T) {
	r := NewRegistry()
	c, ok := r.Lookup(DefaultEncoderTag)
	if !ok {
		t.Fatal("cloudpickle codec not registered by default")
	}

	type payload struct {
		Name  string
		Count int
	}
	in := payload{Name: "widget", Count: 7}

	b, err := c.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	var out payload
	if err := c.Decode(b, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestCodecRoundTripJSON(t *testing.T) {
	r := NewRegistry()
	c, ok := r.Lookup("json")
	if !ok {
		t.Fatal("json codec not registered by default")
	}

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	in := payload{Name: "widget", Count: 7}

	b, err := c.Encode(in)
	if err != nil {
		t.Fatal(err)
	}
	var out payload
	if err := c.Decode(b, &out); err != nil {
		t.Fatal(err)
	}
	if out != in {
		t.Fatalf("got %+v, want %+v", out, in)
	}
}

func TestCodecJSONDecodeRepairsTrailingComma(t *testing.T) {
	r := NewRegistry()
	c, _ := r.Lookup("json")

	malformed := []byte(`{"name":"widget","count":7,}`)
	var out map[string]any
	if err := c.Decode(malformed, &out); err != nil {
		t.Fatalf("expected repair pass to recover malformed json, got %v", err)
	}
	if out["name"] != "widget" {
		t.Fatalf("got %+v", out)
	}
}

func TestCodecLookupUnknownTag(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("does-not-exist"); ok {
		t.Fatal("expected Lookup to fail for an unregistered tag")
	}
}
