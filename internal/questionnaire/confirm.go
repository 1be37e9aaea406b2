package questionnaire

import (
	"github.com/myrjola/phq9bot/internal/random"
)

var confirmationPhrases = map[Label][]string{
	NotAtAll: {
		"I understand, I'll note that as 'not at all'.",
		"Thanks for sharing, I'll put that down as 'not at all'.",
		"Got it, I'll classify that as 'not at all'.",
	},
	SeveralDays: {
		"Okay, sounds like it happened several days. I'll note that.",
		"Thanks, I'll classify that as 'several days'.",
		"Got it, several days it is.",
	},
	MoreThanHalfTheDays: {
		"I hear you, I'll put that down as 'more than half the days'.",
		"Understood, that's 'more than half the days'.",
		"Thanks for sharing, I'll classify it accordingly.",
	},
	NearlyEveryDay: {
		"That sounds really tough, I'll mark that as 'nearly every day'.",
		"Thanks for your honesty, I'll put that down as 'nearly every day'.",
		"I appreciate you sharing that, 'nearly every day' noted.",
	},
}

// Phraser picks the acknowledgement shown after an answer has been classified.
type Phraser struct {
	source random.Source
}

// NewPhraser creates a Phraser drawing from source, or from the global generator when source is nil.
func NewPhraser(source random.Source) *Phraser {
	if source == nil {
		source = random.NewSource()
	}
	return &Phraser{source: source}
}

// Confirm returns one of the canned acknowledgements for label. Labels outside the canonical set get a templated
// acknowledgement that embeds the label verbatim.
func (p *Phraser) Confirm(label Label) string {
	phrases, ok := confirmationPhrases[label]
	if !ok {
		return "Marked as " + string(label) + "."
	}
	return phrases[p.source.IntN(len(phrases))]
}

// ConfirmationPhrases returns the canned acknowledgements for label, nil for unrecognised labels.
func ConfirmationPhrases(label Label) []string {
	phrases := confirmationPhrases[label]
	if phrases == nil {
		return nil
	}
	out := make([]string, len(phrases))
	copy(out, phrases)
	return out
}
