// Package intent defines the data model for voice-command intent resolution
// in Quizvox: the [Result] produced by every classification path, the ordered
// [Rule] table evaluated by the local fallback classifier, and the slot
// extraction helpers shared by all backends.
//
// A resolved intent is a canonical action identifier the quiz application
// dispatches on (e.g., "navigate_next", "generate_quiz"), refined by named
// slots (count, topic, difficulty) extracted from the same utterance.
package intent

import "time"

// Unknown is the sentinel intent returned when no backend could classify the
// input. It always pairs with a confidence of 0.
const Unknown = "unknown"

// Backend identifies which resolution path produced a [Result].
type Backend string

const (
	// BackendRemote marks results returned by the remote classifier service.
	BackendRemote Backend = "remote"

	// BackendLocalFallback marks results produced by the local rule-table
	// classifier when the remote service was unavailable.
	BackendLocalFallback Backend = "local_fallback"

	// BackendError marks the sentinel result for empty input. It is the only
	// error condition visible to callers as a result rather than an error.
	BackendError Backend = "error"
)

// Canonical intent names understood by the quiz application.
const (
	IntentDeleteQuestion    = "delete_question"
	IntentDuplicateQuestion = "duplicate_question"
	IntentExport            = "export"
	IntentRegenerate        = "regenerate"
	IntentNavigateNext      = "navigate_next"
	IntentNavigatePrevious  = "navigate_previous"
	IntentReadQuestion      = "read_question"
	IntentShowAnswers       = "show_answers"
	IntentGenerateQuiz      = "generate_quiz"
	IntentRepeat            = "repeat"
	IntentPause             = "pause"
	IntentResume            = "resume"
	IntentSkip              = "skip"
	IntentFinish            = "finish"
	IntentSlower            = "slower"
)

// Result is the structured decision produced for one utterance.
//
// Invariant: Intent is never empty (it falls back to [Unknown]) and
// Confidence is 0 exactly when Intent is [Unknown].
type Result struct {
	// Intent is the canonical action identifier.
	Intent string `json:"intent"`

	// Confidence is the classifier's certainty in [0, 1].
	Confidence float64 `json:"confidence"`

	// Slots holds the named parameters extracted from the utterance. May be
	// nil or empty; keys are unique.
	Slots map[string]any `json:"slots"`

	// Backend records which resolution path produced this result.
	Backend Backend `json:"backend_used"`

	// LatencyMs is the resolution latency in milliseconds, or nil when it was
	// not measured.
	LatencyMs *int64 `json:"latency_ms,omitempty"`

	// Warning carries a human-readable note, e.g. that the result came from
	// the degraded local path.
	Warning string `json:"warning,omitempty"`

	// Timestamp is the instant the result was created.
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResult returns the sentinel result for unusable input. warning
// describes why the input could not be classified.
func ErrorResult(warning string, now time.Time) Result {
	return Result{
		Intent:     Unknown,
		Confidence: 0,
		Slots:      map[string]any{},
		Backend:    BackendError,
		Warning:    warning,
		Timestamp:  now,
	}
}

// HealthStatus reports reachability of the remote classifier and its
// constituent backends (e.g. grammar, gemini, perplexity).
type HealthStatus struct {
	Status   string            `json:"status"`
	Backends map[string]string `json:"backends"`
}

// Info describes one supported intent as advertised by the remote classifier.
type Info struct {
	Description string   `json:"description"`
	Slots       []string `json:"slots"`
	Examples    []string `json:"examples"`
}
