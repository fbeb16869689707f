// Package remote provides the HTTP client for the quiz backend's intent
// classification service.
//
// The client issues a single attempt per call — no internal retry or
// backoff. Failures are classified into two recoverable categories that the
// router uses to decide on degradation: [ErrTransport] for network-level
// failures (unreachable host, timeout) and [ErrProtocol] for non-success
// status codes and unparsable response bodies.
//
// Usage:
//
//	c, err := remote.New("http://localhost:8000/api/intent-router",
//	    remote.WithTimeout(3*time.Second),
//	)
//	result, err := c.ParseOne(ctx, "next question")
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/quizvox/quizvox/internal/intent"
)

// Failure categories. Wrapped into every error returned by ParseOne,
// ParseBatch, and SupportedIntents; match with [errors.Is].
var (
	// ErrTransport marks network-level failures: connection refused, DNS,
	// transport-level timeout.
	ErrTransport = errors.New("remote classifier unreachable")

	// ErrProtocol marks a reachable service that misbehaved: non-2xx status
	// or a response body that does not decode.
	ErrProtocol = errors.New("remote classifier protocol error")
)

const defaultTimeout = 5 * time.Second

// knownBackends are the constituent backends of the remote classifier,
// reported as "unknown" when the health endpoint cannot be reached.
var knownBackends = []string{"grammar", "gemini", "perplexity"}

// Option is a functional option for [New].
type Option func(*Client)

// WithTimeout sets the per-request timeout. The timeout is the only bound on
// a call; there is no internal retry. Defaults to 5s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Intended for tests
// that substitute deterministic transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client talks to the intent classification service. Safe for concurrent
// use.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a Client for the service rooted at baseURL (e.g.
// "http://localhost:8000/api/intent-router"). baseURL must be non-empty; a
// trailing slash is stripped.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("remote: baseURL must not be empty")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ---- wire types ----

// parseRequest is the body of POST /parse/.
type parseRequest struct {
	Text string `json:"text"`
}

// parseResponse mirrors the classification service's single-parse response.
type parseResponse struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Slots      map[string]any `json:"slots"`
	Backend    string         `json:"backend_used"`
	LatencyMs  *int64         `json:"latency_ms"`
	Warning    string         `json:"warning"`
}

// batchRequest is the body of POST /batch_parse/.
type batchRequest struct {
	Texts []string `json:"texts"`
}

// batchItem is one entry of the batch response; order matches the request.
type batchItem struct {
	Text       string         `json:"text"`
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Slots      map[string]any `json:"slots"`
	Backend    string         `json:"backend_used"`
	LatencyMs  *int64         `json:"latency_ms"`
}

// batchResponse is the top-level batch-parse response.
type batchResponse struct {
	Results []batchItem `json:"results"`
}

// supportedResponse is the top-level supported-intents response.
type supportedResponse struct {
	TotalIntents int                    `json:"total_intents"`
	Intents      map[string]intent.Info `json:"intents"`
}

// healthResponse is the top-level health response.
type healthResponse struct {
	Status   string            `json:"status"`
	Backends map[string]string `json:"backends"`
}

// ---- operations ----

// ParseOne classifies a single utterance. On success the wire response is
// mapped into an [intent.Result] with [intent.BackendRemote]. Any failure is
// returned wrapped in [ErrTransport] or [ErrProtocol]; the call is never
// retried.
func (c *Client) ParseOne(ctx context.Context, text string) (intent.Result, error) {
	var resp parseResponse
	if err := c.post(ctx, "/parse/", parseRequest{Text: text}, &resp); err != nil {
		return intent.Result{}, err
	}
	return remoteResult(resp.Intent, resp.Confidence, resp.Slots, resp.LatencyMs, resp.Warning), nil
}

// ParseBatch classifies all texts in one request. On success it returns one
// result per input in request order; on any failure the whole batch fails
// with a single wrapped error and the caller decides how to degrade.
func (c *Client) ParseBatch(ctx context.Context, texts []string) ([]intent.Result, error) {
	var resp batchResponse
	if err := c.post(ctx, "/batch_parse/", batchRequest{Texts: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(texts) {
		return nil, fmt.Errorf("%w: batch returned %d results for %d texts",
			ErrProtocol, len(resp.Results), len(texts))
	}
	results := make([]intent.Result, len(resp.Results))
	for i, item := range resp.Results {
		results[i] = remoteResult(item.Intent, item.Confidence, item.Slots, item.LatencyMs, "")
	}
	return results, nil
}

// SupportedIntents fetches the catalogue of intents the service understands.
func (c *Client) SupportedIntents(ctx context.Context) (map[string]intent.Info, error) {
	var resp supportedResponse
	if err := c.get(ctx, "/supported_intents/", &resp); err != nil {
		return nil, err
	}
	if resp.Intents == nil {
		resp.Intents = map[string]intent.Info{}
	}
	return resp.Intents, nil
}

// CheckHealth reports reachability of the classification service and its
// constituent backends. It never returns an error: any failure maps to a
// deterministic status of "error" with every known backend "unknown".
func (c *Client) CheckHealth(ctx context.Context) intent.HealthStatus {
	var resp healthResponse
	if err := c.get(ctx, "/health/", &resp); err != nil {
		backends := make(map[string]string, len(knownBackends))
		for _, name := range knownBackends {
			backends[name] = "unknown"
		}
		return intent.HealthStatus{Status: "error", Backends: backends}
	}
	if resp.Backends == nil {
		resp.Backends = map[string]string{}
	}
	return intent.HealthStatus{Status: resp.Status, Backends: resp.Backends}
}

// ---- helpers ----

// remoteResult maps wire fields into an [intent.Result], enforcing the
// intent/confidence invariant on sloppy responses.
func remoteResult(name string, confidence float64, slots map[string]any, latencyMs *int64, warning string) intent.Result {
	if name == "" {
		name = intent.Unknown
	}
	if name == intent.Unknown {
		confidence = 0
	}
	if slots == nil {
		slots = map[string]any{}
	}
	return intent.Result{
		Intent:     name,
		Confidence: clamp01(confidence),
		Slots:      slots,
		Backend:    intent.BackendRemote,
		LatencyMs:  latencyMs,
		Warning:    warning,
		Timestamp:  time.Now(),
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// post issues a JSON POST to path and decodes the response into out.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", ErrProtocol, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// get issues a GET to path and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// do executes req and decodes a 2xx JSON body into out, mapping failures
// into the transport/protocol taxonomy.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d for %s", ErrProtocol, resp.StatusCode, req.URL.Path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProtocol, err)
	}
	return nil
}
