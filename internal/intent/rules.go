package intent

import "regexp"

// Rule pairs an intent name with the pattern that recognises it. Rules are
// evaluated in slice order; the first match wins.
type Rule struct {
	// Intent is the canonical intent name returned on a match.
	Intent string

	// Pattern is the compiled recogniser, matched against lowercased,
	// trimmed text.
	Pattern *regexp.Regexp
}

// CommandVocabulary returns the closed set of single words the rule table
// and slot extractors key on. Used as the target vocabulary for phonetic
// correction of transcribed input.
func CommandVocabulary() []string {
	words := []string{
		"delete", "remove", "erase", "trash", "discard",
		"duplicate", "clone", "copy",
		"export", "download", "save",
		"regenerate", "redo", "replace", "rewrite",
		"next", "forward", "advance", "following",
		"previous", "back", "backward", "prior",
		"read", "aloud", "question",
		"show", "reveal", "display", "answers", "options", "choices",
		"generate", "create", "make", "build", "quiz",
		"repeat", "again",
		"pause", "stop",
		"resume", "continue",
		"skip", "omit",
		"finish", "done", "quit", "exit",
		"slower", "slowly",
		"about", "regarding",
		"easy", "simple", "basic", "beginner",
		"medium", "normal", "intermediate", "moderate",
		"hard", "difficult", "advanced", "challenging",
	}
	for w := range numberWords {
		words = append(words, w)
	}
	return words
}

// DefaultRules returns the built-in rule table in priority order. The order
// is a deliberate tie-break grouping intents by destructiveness and
// specificity: destructive and structural edits first, then export,
// regenerate, navigation, question interaction, generation, and finally
// playback control. A phrase containing both a delete cue and a navigation
// cue resolves to the delete intent.
//
// The returned slice is freshly allocated; callers may not mutate rules
// shared with a classifier.
func DefaultRules() []Rule {
	return []Rule{
		{IntentDeleteQuestion, regexp.MustCompile(`\b(delete|remove|erase|trash|discard)\b`)},
		{IntentDuplicateQuestion, regexp.MustCompile(`\b(duplicate|clone|copy)\b`)},
		{IntentExport, regexp.MustCompile(`\b(export|download|save)\b`)},
		{IntentRegenerate, regexp.MustCompile(`\b(regenerate|re-generate|redo|replace|rewrite)\b`)},
		{IntentNavigateNext, regexp.MustCompile(`\b(next|forward|advance|following)\b`)},
		{IntentNavigatePrevious, regexp.MustCompile(`\b(previous|back|backwards?|prior)\b`)},
		{IntentReadQuestion, regexp.MustCompile(`\b(read|aloud)\b`)},
		{IntentShowAnswers, regexp.MustCompile(`\b(show|reveal|display)\b.*\b(answers?|options?|choices)\b`)},
		{IntentGenerateQuiz, regexp.MustCompile(`\b(generate|create|make|build)\b|\bnew quiz\b`)},
		{IntentRepeat, regexp.MustCompile(`\b(repeat|again|once more)\b`)},
		{IntentPause, regexp.MustCompile(`\b(pause|hold on|stop)\b`)},
		{IntentResume, regexp.MustCompile(`\b(resume|continue|keep going)\b`)},
		{IntentSkip, regexp.MustCompile(`\b(skip|omit)\b`)},
		{IntentFinish, regexp.MustCompile(`\b(finish|done|quit|exit|end quiz)\b`)},
		{IntentSlower, regexp.MustCompile(`\b(slower|slow down|slowly)\b`)},
	}
}
