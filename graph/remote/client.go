package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/worldline-go/klient"

	"github.com/fngraph/fngraph/graph"
)

// Client is the remote adapter's client side: it talks to a
// ReferenceServer (or any server implementing the same contract) over
// HTTP via klient, exposing the same run/output surface as a local Graph.
type Client struct {
	http *klient.Client
	cfg  Config
}

// NewClient builds a Client against cfg.BaseURL. A zero-value
// Timeout/PollInterval (e.g. a Config built by hand rather than via
// LoadConfig) falls back to the same defaults LoadConfig applies, so
// every Client has a real request deadline and poll cadence.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	httpClient, err := klient.New(
		klient.WithBaseURL(cfg.BaseURL),
		klient.WithDisableRetry(true),
	)
	if err != nil {
		return nil, fmt.Errorf("fngraph/remote: building client: %w", err)
	}
	return &Client{http: httpClient, cfg: cfg}, nil
}

// Handle is a reference to one named graph deployed on the remote server,
// matching the original adapter's handle.run/handle.output surface.
type Handle struct {
	client *Client
	name   string
}

// withTimeout bounds ctx by the client's configured Timeout, the way
// klient itself offers no per-request timeout option among its real
// usages in the wild (only WithBaseURL/WithDisableRetry and similar dial
// options) — so the deadline is applied at the request-context layer
// instead.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

// Deploy verifies a graph named name is registered on the remote server
// and returns a Handle to it. The graph itself is never serialized over
// the wire (its function bodies are Go closures); the server must have
// registered it locally via ReferenceServer.Register first.
func (c *Client) Deploy(ctx context.Context, name string) (*Handle, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "/graphs/"+name, nil)
	if err != nil {
		return nil, err
	}
	var status int
	if err := c.http.Do(req, func(r *http.Response) error {
		status = r.StatusCode
		return nil
	}); err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("fngraph/remote: graph %q not found on server (status %d)", name, status)
	}
	return &Handle{client: c, name: name}, nil
}

// ByName returns a Handle to name without a round trip; the name is
// validated lazily on the first Run/Output call.
func (c *Client) ByName(name string) *Handle {
	return &Handle{client: c, name: name}
}

// Run submits kwargs to the remote graph's start node and returns the
// minted invocation id. The server always starts the invocation detached
// from the triggering request and returns the id immediately; if
// blockUntilDone, Run then polls the invocation's status endpoint at the
// client's configured PollInterval until it is terminal, bounded by the
// client's configured Timeout (§4.8).
func (h *Handle) Run(ctx context.Context, blockUntilDone bool, kwargs graph.InputBundle) (string, error) {
	body, err := json.Marshal(runRequest{BlockUntilDone: false, Kwargs: kwargs})
	if err != nil {
		return "", err
	}

	reqCtx, cancel := h.client.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, "/graphs/"+h.name+"/run", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var out runResponse
	if err := h.client.http.Do(req, decodeJSONInto(&out)); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("fngraph/remote: %s", out.Error)
	}

	if !blockUntilDone {
		return out.InvocationID, nil
	}
	if err := h.awaitDone(ctx, out.InvocationID); err != nil {
		return out.InvocationID, err
	}
	return out.InvocationID, nil
}

// awaitDone polls the remote invocation's status endpoint every
// PollInterval until it reports done, the caller's ctx is canceled, or the
// client's Timeout elapses.
func (h *Handle) awaitDone(ctx context.Context, invocationID string) error {
	deadlineCtx, cancel := h.client.withTimeout(ctx)
	defer cancel()

	ticker := time.NewTicker(h.client.cfg.PollInterval)
	defer ticker.Stop()

	for {
		status, err := h.status(deadlineCtx, invocationID)
		if err != nil {
			return err
		}
		if status.Done {
			if status.Error != "" {
				return fmt.Errorf("fngraph/remote: %s", status.Error)
			}
			return nil
		}

		select {
		case <-deadlineCtx.Done():
			return deadlineCtx.Err()
		case <-ticker.C:
		}
	}
}

func (h *Handle) status(ctx context.Context, invocationID string) (statusResponse, error) {
	path := fmt.Sprintf("/graphs/%s/invocations/%s/status", h.name, invocationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return statusResponse{}, err
	}

	var out statusResponse
	if err := h.client.http.Do(req, decodeJSONInto(&out)); err != nil {
		return statusResponse{}, err
	}
	return out, nil
}

// Output returns the recorded outputs for functionID under invocationID
// on the remote graph.
func (h *Handle) Output(ctx context.Context, invocationID, functionID string) ([]any, error) {
	ctx, cancel := h.client.withTimeout(ctx)
	defer cancel()

	path := fmt.Sprintf("/graphs/%s/invocations/%s/output/%s", h.name, invocationID, functionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out outputResponse
	if err := h.client.http.Do(req, decodeJSONInto(&out)); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("fngraph/remote: %s", out.Error)
	}
	return out.Values, nil
}

func decodeJSONInto(v any) func(*http.Response) error {
	return func(r *http.Response) error {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, v)
	}
}
