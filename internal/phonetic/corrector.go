// Package phonetic implements a command-vocabulary corrector for transcribed
// voice input using Double Metaphone phonetic encoding combined with
// Jaro-Winkler string similarity.
//
// Speech-to-text output frequently garbles short command keywords ("nekst"
// for "next", "paws" for "pause"). The corrector walks the tokens of a
// normalized utterance and snaps each out-of-vocabulary token to the closest
// vocabulary word, provided it is phonetically compatible and sufficiently
// similar. Tokens that already belong to the vocabulary, digits, and tokens
// with no acceptable candidate pass through unchanged, so correction never
// degrades an utterance the rule table would have matched anyway.
package phonetic

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.80
	defaultFuzzyThreshold    = 0.92
)

// Option is a functional option for configuring a [Corrector].
type Option func(*Corrector)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched vocabulary word to replace a token. Default: 0.80.
func WithPhoneticThreshold(threshold float64) Option {
	return func(c *Corrector) { c.phoneticThreshold = threshold }
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required when no
// phonetic match is found and the corrector falls back to pure string
// similarity. Default: 0.92.
func WithFuzzyThreshold(threshold float64) Option {
	return func(c *Corrector) { c.fuzzyThreshold = threshold }
}

// Corrector snaps misheard tokens onto a fixed command vocabulary.
// All methods are safe for concurrent use — the Corrector is read-only
// after construction.
type Corrector struct {
	vocab             []string
	vocabSet          map[string]struct{}
	vocabCodes        map[string]map[string]struct{}
	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New creates a Corrector over vocabulary. Vocabulary words are lowercased;
// duplicates and empty entries are dropped. Phonetic codes for the
// vocabulary are precomputed once.
func New(vocabulary []string, opts ...Option) *Corrector {
	c := &Corrector{
		vocabSet:          make(map[string]struct{}, len(vocabulary)),
		vocabCodes:        make(map[string]map[string]struct{}, len(vocabulary)),
		phoneticThreshold: defaultPhoneticThreshold,
		fuzzyThreshold:    defaultFuzzyThreshold,
	}
	for _, w := range vocabulary {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, seen := c.vocabSet[w]; seen {
			continue
		}
		c.vocabSet[w] = struct{}{}
		c.vocab = append(c.vocab, w)
		c.vocabCodes[w] = codesFor(w)
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Correct returns text with out-of-vocabulary tokens replaced by their best
// vocabulary match. text is expected to be normalized (lowercased, trimmed);
// token order and count are preserved.
func (c *Corrector) Correct(text string) string {
	if len(c.vocab) == 0 {
		return text
	}

	tokens := strings.Fields(text)
	changed := false
	for i, tok := range tokens {
		if replacement, ok := c.correctToken(tok); ok {
			tokens[i] = replacement
			changed = true
		}
	}
	if !changed {
		return text
	}
	return strings.Join(tokens, " ")
}

// correctToken finds the best vocabulary candidate for tok. In-vocabulary
// tokens, digit tokens, and very short tokens are never corrected.
func (c *Corrector) correctToken(tok string) (string, bool) {
	if len(tok) < 3 || isDigits(tok) {
		return "", false
	}
	if _, ok := c.vocabSet[tok]; ok {
		return "", false
	}

	tokCodes := codesFor(tok)

	var (
		best         string
		bestScore    float64
		bestPhonetic bool
	)
	for _, word := range c.vocab {
		phonetic := codesOverlap(tokCodes, c.vocabCodes[word])
		score := matchr.JaroWinkler(tok, word, false)

		if phonetic {
			if score >= c.phoneticThreshold && (!bestPhonetic || score > bestScore) {
				best, bestScore, bestPhonetic = word, score, true
			}
		} else if !bestPhonetic {
			if score >= c.fuzzyThreshold && score > bestScore {
				best, bestScore = word, score
			}
		}
	}

	if best == "" {
		return "", false
	}
	return best, true
}

// codesFor returns the set of Double Metaphone codes for word. Empty codes
// (short words, no consonants) are excluded.
func codesFor(word string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	p, s := matchr.DoubleMetaphone(word)
	if p != "" {
		codes[p] = struct{}{}
	}
	if s != "" {
		codes[s] = struct{}{}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
