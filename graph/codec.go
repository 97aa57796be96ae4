package graph

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonrepair"
)

// Codec is a named pair of (encode, decode) functions used at every edge
// crossing and for invocation inputs (§4.1).
type Codec interface {
	// Tag is the encoder tag this codec registers under (e.g. "json").
	Tag() string
	// Encode serializes v to bytes.
	Encode(v any) ([]byte, error)
	// Decode deserializes b into *out, where out is a pointer to the
	// destination value.
	Decode(b []byte, out any) error
}

// Registry maps an encoder tag to its Codec. It is read-only after
// process init in normal operation: built-in codecs are registered once
// by NewRegistry, and user registration (Register) is expected to
// happen during program setup, before any Graph.Run.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns a Registry pre-populated with the two built-in
// codecs: "cloudpickle" (the default; binary, schema-less, via
// encoding/gob) and "json" (UTF-8 text, via encoding/json).
func NewRegistry() *Registry {
	r := &Registry{codecs: make(map[string]Codec)}
	r.Register(gobCodec{})
	r.Register(jsonCodec{})
	return r
}

// Register adds or replaces the codec for its own Tag().
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[c.Tag()] = c
}

// Lookup returns the codec registered for tag, or false if none is
// registered — the caller is expected to surface InvalidEncoderError.
func (r *Registry) Lookup(tag string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[tag]
	return c, ok
}

// DefaultEncoderTag is the encoder tag used by a node that did not pass
// WithEncoder.
const DefaultEncoderTag = "cloudpickle"

// gobCodec implements the default "cloudpickle" tag: binary, schema-less
// in the sense that any gob-encodable Go value round-trips without a
// separately declared schema. Named "cloudpickle" to match the original
// system's default tag, even though the on-wire format is Go's own binary
// encoding rather than Python's pickle.
type gobCodec struct{}

func (gobCodec) Tag() string { return DefaultEncoderTag }

func (gobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("cloudpickle encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (gobCodec) Decode(b []byte, out any) error {
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(out); err != nil {
		return fmt.Errorf("cloudpickle decode: %w", err)
	}
	return nil
}

// jsonCodec implements the "json" tag: UTF-8 text, requires
// JSON-representable values.
type jsonCodec struct{}

func (jsonCodec) Tag() string { return "json" }

func (jsonCodec) Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	return b, nil
}

// Decode first tries a strict unmarshal; only if that fails does it run a
// best-effort repair pass over b and unmarshal the result, so near-miss
// JSON crossing an edge from a loosely-typed peer (trailing commas,
// unquoted keys) still decodes. Well-formed JSON never goes through the
// repair pass, so round-trip correctness for valid input is unaffected.
func (jsonCodec) Decode(b []byte, out any) error {
	if err := json.Unmarshal(b, out); err == nil {
		return nil
	}
	repaired, rerr := jsonrepair.JSONRepair(string(b))
	if rerr != nil {
		return fmt.Errorf("json decode: %w", rerr)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("json decode: %w", err)
	}
	return nil
}
