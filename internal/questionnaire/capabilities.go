package questionnaire

import (
	"context"
	"strings"
)

// Classifier maps a free-text answer to a severity label. Implementations are usually backed by a language model and
// are neither deterministic nor guaranteed to return a canonical label.
type Classifier interface {
	Classify(ctx context.Context, question, response string) (Label, error)
}

// Empathizer writes one short sentence validating what the user shared.
type Empathizer interface {
	Empathize(ctx context.Context, question, response string) (string, error)
}

// Summarizer writes the closing message from the full transcript and total score. The message starts with a
// "Depression severity: ..." statement followed by a short supportive paragraph.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, score int) (string, error)
}

// Transcript renders answers as the "Q: ...\nA: ..." listing passed to the [Summarizer].
func Transcript(answers []Answer) string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		lines = append(lines, "Q: "+a.Question+"\nA: "+a.Response)
	}
	return strings.Join(lines, "\n")
}
