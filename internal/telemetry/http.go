package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Compile-time interface check.
var _ Sink = (*HTTPSink)(nil)

const defaultHTTPTimeout = 3 * time.Second

// HTTPSink posts each event as JSON to a metrics-collection endpoint, e.g.
// the quiz backend's voice-metrics log route. Safe for concurrent use.
type HTTPSink struct {
	endpoint   string
	httpClient *http.Client
}

// HTTPSinkOption is a functional option for [NewHTTPSink].
type HTTPSinkOption func(*HTTPSink)

// WithHTTPClient replaces the underlying HTTP client. Intended for tests.
func WithHTTPClient(hc *http.Client) HTTPSinkOption {
	return func(s *HTTPSink) { s.httpClient = hc }
}

// NewHTTPSink creates an HTTPSink targeting endpoint.
func NewHTTPSink(endpoint string, opts ...HTTPSinkOption) (*HTTPSink, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("telemetry: endpoint must not be empty")
	}
	s := &HTTPSink{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// LogIntentEvent posts ev to the endpoint. Any non-2xx status is an error,
// which the caller discards per the telemetry contract.
func (s *HTTPSink) LogIntentEvent(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("telemetry: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telemetry: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("telemetry: unexpected status %d", resp.StatusCode)
	}
	return nil
}
