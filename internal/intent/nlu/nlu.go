// Package nlu provides an optional LLM-backed intent classifier built on
// github.com/mozilla-ai/any-llm-go.
//
// It is a secondary remote backend: when the primary HTTP classification
// service fails, the router may consult an LLM (OpenAI, Gemini, Ollama, …)
// before degrading to the local rule table. The model is instructed to
// return a bare JSON object; anything else is a recoverable error that the
// router treats like any other remote failure.
//
// The classifier is disabled unless explicitly configured, so the default
// resolution order (remote → local fallback) is unchanged.
package nlu

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/quizvox/quizvox/internal/intent"
)

// systemPrompt instructs the model to answer with a single JSON object. The
// valid intent list mirrors the rule table plus "unknown".
const systemPrompt = `You are an intent classifier for a voice-controlled quiz application.
Analyze the user's voice command and return ONLY a JSON object of this form:
{"intent": "intent_name", "confidence": 0.95, "slots": {"param": "value"}}

Valid intents: generate_quiz, read_question, navigate_next, navigate_previous,
show_answers, regenerate, export, delete_question, duplicate_question,
repeat, slower, pause, resume, skip, finish, unknown

Known slots: count (integer), topic (string), difficulty ("Easy"|"Medium"|"Hard").
Return ONLY the JSON, no explanations and no markdown fences.`

// Classifier resolves intents by prompting an LLM. Safe for concurrent use.
type Classifier struct {
	backend anyllmlib.Provider
	model   string
}

// New creates a Classifier backed by the named provider. providerName is one
// of "openai", "anthropic", "gemini", "ollama", "mistral". model selects the
// specific model (e.g. "gpt-4o-mini"). opts are any-llm-go options such as
// anyllmlib.WithAPIKey and anyllmlib.WithBaseURL; without an API key option
// the provider falls back to its environment variable.
func New(providerName, model string, opts ...anyllmlib.Option) (*Classifier, error) {
	if providerName == "" {
		return nil, fmt.Errorf("nlu: providerName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("nlu: model must not be empty")
	}

	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("nlu: create %q backend: %w", providerName, err)
	}
	return &Classifier{backend: backend, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported provider %q; supported: openai, anthropic, gemini, ollama, mistral", providerName)
	}
}

// wireResult is the JSON object the model is asked to produce.
type wireResult struct {
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
	Slots      map[string]any `json:"slots"`
}

// Classify prompts the model with text and maps its JSON reply into an
// [intent.Result] with [intent.BackendRemote]. Transport failures and
// non-JSON replies are returned as errors for the router to degrade on.
func (c *Classifier) Classify(ctx context.Context, text string) (intent.Result, error) {
	start := time.Now()

	temperature := 0.1
	maxTokens := 200
	resp, err := c.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: c.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: fmt.Sprintf("Command: %q", text)},
		},
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return intent.Result{}, fmt.Errorf("nlu: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return intent.Result{}, fmt.Errorf("nlu: empty choices in response")
	}

	raw := stripFences(resp.Choices[0].Message.ContentString())
	var wire wireResult
	if err := json.Unmarshal([]byte(raw), &wire); err != nil {
		return intent.Result{}, fmt.Errorf("nlu: decode model reply: %w", err)
	}

	if wire.Intent == "" {
		wire.Intent = intent.Unknown
	}
	if wire.Intent == intent.Unknown {
		wire.Confidence = 0
	}
	if wire.Slots == nil {
		wire.Slots = map[string]any{}
	}
	if wire.Confidence < 0 {
		wire.Confidence = 0
	} else if wire.Confidence > 1 {
		wire.Confidence = 1
	}

	latency := time.Since(start).Milliseconds()
	return intent.Result{
		Intent:     wire.Intent,
		Confidence: wire.Confidence,
		Slots:      wire.Slots,
		Backend:    intent.BackendRemote,
		LatencyMs:  &latency,
		Timestamp:  time.Now(),
	}, nil
}

// stripFences removes a surrounding markdown code fence, which some models
// add despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}
