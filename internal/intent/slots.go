package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Slot names produced by [ExtractSlots].
const (
	SlotCount      = "count"
	SlotTopic      = "topic"
	SlotDifficulty = "difficulty"
)

// numberWords is the closed vocabulary of spoken counts. Digit sequences take
// precedence when both forms appear at the same position.
var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// topicCues are the prepositional cue words that introduce a topic phrase.
// Checked in order; the first cue found in the text wins.
var topicCues = []string{"about", "of", "regarding"}

// difficultyBuckets maps keyword sets to their canonical bucket. Evaluated in
// the fixed order easy → medium → hard; the first set with a member present
// determines the bucket. No default: without a keyword the slot is absent.
var difficultyBuckets = []struct {
	bucket   string
	keywords []string
}{
	{"Easy", []string{"easy", "simple", "basic", "beginner"}},
	{"Medium", []string{"medium", "normal", "intermediate", "moderate"}},
	{"Hard", []string{"hard", "difficult", "advanced", "challenging"}},
}

var (
	digitSeq   = regexp.MustCompile(`\d+`)
	clauseStop = regexp.MustCompile(`[.,;:!?]`)
)

// ExtractSlots extracts the count, topic, and difficulty slots from text.
// text must already be normalized (lowercased and trimmed); extraction is
// independent of which intent matched. Absent slots are omitted from the
// returned map, which is never nil.
func ExtractSlots(text string) map[string]any {
	slots := map[string]any{}

	if n, ok := extractCount(text); ok {
		slots[SlotCount] = n
	}
	if topic, ok := extractTopic(text); ok {
		slots[SlotTopic] = topic
	}
	if diff, ok := extractDifficulty(text); ok {
		slots[SlotDifficulty] = diff
	}
	return slots
}

// extractCount finds the first digit sequence or number word in text. When
// both forms are present the one appearing earlier wins; a digit sequence
// wins an exact tie.
func extractCount(text string) (int, bool) {
	digitIdx := -1
	digitVal := 0
	if loc := digitSeq.FindStringIndex(text); loc != nil {
		digitIdx = loc[0]
		// A sequence long enough to overflow int is not a plausible count;
		// treat it as no match.
		if v, err := strconv.Atoi(text[loc[0]:loc[1]]); err == nil {
			digitVal = v
		} else {
			digitIdx = -1
		}
	}

	wordIdx := -1
	wordVal := 0
	for word, val := range numberWords {
		idx := wordIndex(text, word)
		if idx < 0 {
			continue
		}
		if wordIdx < 0 || idx < wordIdx {
			wordIdx = idx
			wordVal = val
		}
	}

	switch {
	case digitIdx < 0 && wordIdx < 0:
		return 0, false
	case digitIdx < 0:
		return wordVal, true
	case wordIdx < 0 || digitIdx <= wordIdx:
		return digitVal, true
	default:
		return wordVal, true
	}
}

// extractTopic captures the remainder of the clause following the first
// topic cue word, with trailing difficulty keywords stripped so that
// "about history easy" yields "history".
func extractTopic(text string) (string, bool) {
	cueIdx := -1
	cueEnd := 0
	for _, cue := range topicCues {
		idx := wordIndex(text, cue)
		if idx < 0 {
			continue
		}
		if cueIdx < 0 || idx < cueIdx {
			cueIdx = idx
			cueEnd = idx + len(cue)
		}
	}
	if cueIdx < 0 {
		return "", false
	}

	rest := text[cueEnd:]
	if loc := clauseStop.FindStringIndex(rest); loc != nil {
		rest = rest[:loc[0]]
	}

	tokens := strings.Fields(rest)
	for len(tokens) > 0 && isDifficultyKeyword(tokens[len(tokens)-1]) {
		tokens = tokens[:len(tokens)-1]
	}
	if len(tokens) == 0 {
		return "", false
	}
	return strings.Join(tokens, " "), true
}

// extractDifficulty tests the keyword sets in fixed bucket order and returns
// the canonical bucket of the first set with a member present.
func extractDifficulty(text string) (string, bool) {
	for _, b := range difficultyBuckets {
		for _, kw := range b.keywords {
			if wordIndex(text, kw) >= 0 {
				return b.bucket, true
			}
		}
	}
	return "", false
}

// isDifficultyKeyword reports whether token belongs to any difficulty
// keyword set.
func isDifficultyKeyword(token string) bool {
	for _, b := range difficultyBuckets {
		for _, kw := range b.keywords {
			if token == kw {
				return true
			}
		}
	}
	return false
}

// wordIndex returns the byte index of word in text when it occurs as a whole
// word, or -1. Word boundaries are non-letter, non-digit runes.
func wordIndex(text, word string) int {
	for from := 0; from < len(text); {
		idx := strings.Index(text[from:], word)
		if idx < 0 {
			return -1
		}
		idx += from
		end := idx + len(word)
		if boundaryBefore(text, idx) && boundaryAfter(text, end) {
			return idx
		}
		from = idx + 1
	}
	return -1
}

func boundaryBefore(text string, idx int) bool {
	if idx == 0 {
		return true
	}
	return !isWordByte(text[idx-1])
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	return !isWordByte(text[end])
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
