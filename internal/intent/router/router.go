// Package router orchestrates intent resolution for the quiz application:
// result cache → remote classifier → optional LLM classifier → local
// fallback → telemetry.
//
// The Router is the component callers use. It is stateless per call — the
// only shared mutable state is the result cache, which handles its own
// locking — and it never fails: every ParseIntent and ParseBatch call
// resolves to a usable result, degrading through the backends in order when
// one is unavailable. Each remote call is attempted exactly once; there is
// no internal retry or backoff.
package router

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/quizvox/quizvox/internal/intent"
	"github.com/quizvox/quizvox/internal/intent/cache"
	"github.com/quizvox/quizvox/internal/intent/remote"
	"github.com/quizvox/quizvox/internal/observe"
	"github.com/quizvox/quizvox/internal/telemetry"
)

// telemetryTimeout bounds each fire-and-forget telemetry emission. The
// emission runs detached from the caller's context so that a finished
// request does not cancel it.
const telemetryTimeout = 5 * time.Second

// RemoteClassifier is the client for the primary classification service.
// Implemented by [remote.Client].
type RemoteClassifier interface {
	ParseOne(ctx context.Context, text string) (intent.Result, error)
	ParseBatch(ctx context.Context, texts []string) ([]intent.Result, error)
	SupportedIntents(ctx context.Context) (map[string]intent.Info, error)
	CheckHealth(ctx context.Context) intent.HealthStatus
}

// LLMClassifier is an optional secondary remote backend consulted after the
// primary service fails and before the local fallback. Implemented by
// nlu.Classifier.
type LLMClassifier interface {
	Classify(ctx context.Context, text string) (intent.Result, error)
}

// Router resolves utterances through the backend cascade. Safe for
// concurrent use.
type Router struct {
	remote   RemoteClassifier
	fallback *intent.Classifier
	cache    *cache.Cache
	llm      LLMClassifier
	sink     telemetry.Sink
	metrics  *observe.Metrics
	now      func() time.Time
}

// Option is a functional option for [New].
type Option func(*Router)

// WithCache replaces the Router's result cache, e.g. to bound its size or
// inject a test clock.
func WithCache(c *cache.Cache) Option {
	return func(r *Router) { r.cache = c }
}

// WithLLMClassifier installs the optional LLM backend tried after the
// primary remote classifier fails.
func WithLLMClassifier(c LLMClassifier) Option {
	return func(r *Router) { r.llm = c }
}

// WithTelemetry installs the usage event sink. Emission is fire-and-forget;
// sink failures never affect resolution.
func WithTelemetry(s telemetry.Sink) Option {
	return func(r *Router) { r.sink = s }
}

// WithMetrics replaces the metrics instance. Tests use this with a private
// meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Router) { r.now = now }
}

// New creates a Router over the given remote classifier and local fallback
// classifier. By default it owns an unbounded 5-minute cache, emits no
// telemetry, and records to [observe.DefaultMetrics].
func New(rc RemoteClassifier, fb *intent.Classifier, opts ...Option) *Router {
	r := &Router{
		remote:   rc,
		fallback: fb,
		cache:    cache.New(),
		sink:     telemetry.Nop{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// ParseIntent resolves a single utterance. It never returns an error:
//
//   - empty or whitespace-only text yields the error-sentinel result without
//     touching the cache, the network, or telemetry;
//   - a fresh cache entry is returned as-is, short-circuiting everything
//     including telemetry;
//   - otherwise the remote classifier is tried once, then the optional LLM
//     classifier, then the local fallback — whichever answers first is
//     cached, reported to telemetry, and returned.
func (r *Router) ParseIntent(ctx context.Context, text string) intent.Result {
	if strings.TrimSpace(text) == "" {
		return intent.ErrorResult("empty input", r.now())
	}

	if cached, ok := r.cache.Get(text); ok {
		r.metrics.CacheHits.Add(ctx, 1)
		return cached
	}
	r.metrics.CacheMisses.Add(ctx, 1)

	start := r.now()

	result, err := r.remote.ParseOne(ctx, text)
	if err == nil {
		r.metrics.RecordRemoteRequest(ctx, "parse", "ok")
		r.finish(ctx, text, &result, start)
		return result
	}
	r.metrics.RecordRemoteRequest(ctx, "parse", "error")
	r.metrics.RecordRemoteError(ctx, errorCategory(err))
	slog.Warn("remote classifier failed, degrading", "err", err)

	if r.llm != nil {
		llmResult, llmErr := r.llm.Classify(ctx, text)
		if llmErr == nil {
			r.finish(ctx, text, &llmResult, start)
			return llmResult
		}
		slog.Warn("llm classifier failed, degrading", "err", llmErr)
	}

	result = r.fallback.Classify(text)
	r.finish(ctx, text, &result, start)
	return result
}

// ParseBatch resolves texts in one remote call. On any batch failure every
// text is classified independently through the local fallback, preserving
// input length and order. Batch calls never touch the cache.
func (r *Router) ParseBatch(ctx context.Context, texts []string) []intent.Result {
	results, err := r.remote.ParseBatch(ctx, texts)
	if err == nil {
		r.metrics.RecordRemoteRequest(ctx, "batch_parse", "ok")
		return results
	}
	r.metrics.RecordRemoteRequest(ctx, "batch_parse", "error")
	r.metrics.RecordRemoteError(ctx, errorCategory(err))
	slog.Warn("remote batch failed, classifying locally", "count", len(texts), "err", err)

	results = make([]intent.Result, len(texts))
	for i, text := range texts {
		results[i] = r.fallback.Classify(text)
	}
	return results
}

// SupportedIntents returns the remote classifier's intent catalogue, or an
// empty catalogue when the service is unreachable. It never returns an
// error.
func (r *Router) SupportedIntents(ctx context.Context) map[string]intent.Info {
	intents, err := r.remote.SupportedIntents(ctx)
	if err != nil {
		slog.Warn("supported intents unavailable", "err", err)
		return map[string]intent.Info{}
	}
	return intents
}

// CheckHealth reports remote classifier health. Transport failures map to a
// deterministic "unknown for all backends" status inside the client, so this
// never fails.
func (r *Router) CheckHealth(ctx context.Context) intent.HealthStatus {
	return r.remote.CheckHealth(ctx)
}

// ClearCache drops every cached result.
func (r *Router) ClearCache() {
	r.cache.Clear()
}

// finish stamps the measured latency onto result when the backend did not
// report one, stores it in the cache, records metrics, and emits telemetry.
func (r *Router) finish(ctx context.Context, text string, result *intent.Result, start time.Time) {
	elapsed := r.now().Sub(start)
	if result.LatencyMs == nil {
		ms := elapsed.Milliseconds()
		result.LatencyMs = &ms
	}

	r.cache.Set(text, *result)
	r.metrics.RecordResolution(ctx, string(result.Backend), result.Intent, elapsed.Seconds())
	r.emit(*result)
}

// emit sends one usage event to the telemetry sink from a detached
// goroutine. Errors are logged at debug level and otherwise discarded; the
// caller never waits.
func (r *Router) emit(result intent.Result) {
	if r.sink == nil {
		return
	}
	ev := telemetry.Event{
		Timestamp:  result.Timestamp,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Backend:    string(result.Backend),
		LatencyMs:  result.LatencyMs,
		Slots:      result.Slots,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), telemetryTimeout)
		defer cancel()
		if err := r.sink.LogIntentEvent(ctx, ev); err != nil {
			slog.Debug("telemetry emit failed", "err", err)
		}
	}()
}

// errorCategory maps a remote client error onto its metrics label.
func errorCategory(err error) string {
	switch {
	case errors.Is(err, remote.ErrTransport):
		return "transport"
	case errors.Is(err, remote.ErrProtocol):
		return "protocol"
	default:
		return "other"
	}
}
