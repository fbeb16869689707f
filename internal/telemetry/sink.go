// Package telemetry provides the best-effort usage event sink for the intent
// router.
//
// Telemetry is strictly fire-and-forget: the router emits events from a
// separate goroutine, never awaits them, and discards every error. A sink
// implementation must therefore be safe for concurrent use but may be as
// simple as an append-only file.
package telemetry

import (
	"context"
	"time"
)

// Event is one intent-resolution usage record.
type Event struct {
	// Timestamp is the instant the resolution completed.
	Timestamp time.Time `json:"timestamp"`

	// Intent is the resolved canonical intent name.
	Intent string `json:"intent"`

	// Confidence is the classifier confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Backend records which resolution path produced the result.
	Backend string `json:"backend_used"`

	// LatencyMs is the resolution latency in milliseconds, or nil when not
	// measured.
	LatencyMs *int64 `json:"latency_ms,omitempty"`

	// Slots holds the extracted slot values.
	Slots map[string]any `json:"slots,omitempty"`

	// ContextTags carries free-form caller context (session ID, tab ID, …).
	ContextTags map[string]string `json:"context_tags,omitempty"`
}

// Sink receives usage events. Implementations must tolerate concurrent
// calls; callers ignore the returned error.
type Sink interface {
	// LogIntentEvent records ev. Errors are advisory only — the router drops
	// them.
	LogIntentEvent(ctx context.Context, ev Event) error
}

// Nop is a Sink that discards every event. Used when telemetry is disabled.
type Nop struct{}

// LogIntentEvent implements [Sink].
func (Nop) LogIntentEvent(context.Context, Event) error { return nil }
