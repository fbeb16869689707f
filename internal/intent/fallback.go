package intent

import (
	"strings"
	"time"
)

// fallbackConfidence is the fixed confidence of every local rule match. The
// local path is explicitly lower-confidence than the remote classifier.
const fallbackConfidence = 0.6

// degradedWarning notes that a result was produced without the remote
// classifier.
const degradedWarning = "resolved by local fallback (remote classifier unavailable)"

// Normalize lowercases and trims text. All classifiers and the result cache
// key off the normalized form, so inputs differing only by case or
// surrounding whitespace are equivalent.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Classifier is the local, network-independent fallback classifier. It
// evaluates an immutable rule table in fixed priority order and extracts
// slots from the same normalized text.
//
// All methods are safe for concurrent use — the Classifier is read-only
// after construction.
type Classifier struct {
	rules   []Rule
	correct func(string) string
	now     func() time.Time
}

// ClassifierOption is a functional option for [NewClassifier].
type ClassifierOption func(*Classifier)

// WithCorrector installs a pre-classification text corrector, e.g. a
// phonetic corrector that snaps misheard command keywords back onto the
// command vocabulary. The corrector receives and returns normalized text.
func WithCorrector(correct func(string) string) ClassifierOption {
	return func(c *Classifier) { c.correct = correct }
}

// WithClock overrides the time source used for result timestamps. Intended
// for tests.
func WithClock(now func() time.Time) ClassifierOption {
	return func(c *Classifier) { c.now = now }
}

// NewClassifier creates a Classifier over the given rule table. The slice is
// copied; order is significant and fixed. Pass [DefaultRules] for the
// built-in table.
func NewClassifier(rules []Rule, opts ...ClassifierOption) *Classifier {
	c := &Classifier{
		rules: make([]Rule, len(rules)),
		now:   time.Now,
	}
	copy(c.rules, rules)
	for _, o := range opts {
		o(c)
	}
	return c
}

// Classify resolves text against the rule table. The first rule whose
// pattern matches the normalized text wins; when no rule matches the result
// is [Unknown] with confidence 0. Slot extraction runs on the same
// normalized text regardless of which intent matched.
func (c *Classifier) Classify(text string) Result {
	normalized := Normalize(text)
	if c.correct != nil {
		normalized = c.correct(normalized)
	}

	result := Result{
		Intent:     Unknown,
		Confidence: 0,
		Slots:      map[string]any{},
		Backend:    BackendLocalFallback,
		Warning:    "intent not recognized (local fallback)",
		Timestamp:  c.now(),
	}
	if normalized == "" {
		return result
	}

	for _, rule := range c.rules {
		if rule.Pattern.MatchString(normalized) {
			result.Intent = rule.Intent
			result.Confidence = fallbackConfidence
			result.Warning = degradedWarning
			break
		}
	}

	result.Slots = ExtractSlots(normalized)
	return result
}
