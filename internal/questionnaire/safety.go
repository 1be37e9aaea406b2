package questionnaire

import "strings"

// DefaultTriggerPhrases are the self-harm indicators that interrupt a screening.
var DefaultTriggerPhrases = []string{
	"suicidal",
	"kill myself",
	"want to die",
	"don't want to live",
	"hurt myself",
	"end my life",
	"took pills",
	"took sleeping pills",
}

// CrisisMessage is shown instead of any further questions once the safety filter triggers. It is fixed text and never
// generated.
const CrisisMessage = "I'm really concerned about your safety.\n" +
	"You're not alone, and your feelings are valid.\n" +
	"Please talk to someone you trust, or a mental health professional.\n" +
	"If you're in Bangladesh, call 13245 (Kaan Pete Roi, 24/7).\n" +
	"You matter. Help is available.\n\n" +
	"The PHQ-9 screening was stopped for your safety. Please take care."

// SafetyFilter detects self-harm language with a case-insensitive substring match.
type SafetyFilter struct {
	phrases []string
}

// NewSafetyFilter creates a filter for the given phrases, or [DefaultTriggerPhrases] when none are given.
func NewSafetyFilter(phrases ...string) *SafetyFilter {
	if len(phrases) == 0 {
		phrases = DefaultTriggerPhrases
	}
	lowered := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &SafetyFilter{phrases: lowered}
}

// Check reports whether utterance contains any trigger phrase.
func (f *SafetyFilter) Check(utterance string) bool {
	lowered := strings.ToLower(utterance)
	// Typographic apostrophes are common in mobile keyboards.
	lowered = strings.ReplaceAll(lowered, "’", "'")
	for _, p := range f.phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}
