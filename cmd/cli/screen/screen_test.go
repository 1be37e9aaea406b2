package screen_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/myrjola/phq9bot/cmd/cli/screen"
	"github.com/myrjola/phq9bot/internal/questionnaire"
	"github.com/myrjola/phq9bot/internal/questionnaire/questionnairetest"
	"github.com/myrjola/phq9bot/internal/random"
	"github.com/stretchr/testify/require"
)

func deps(classifier questionnaire.Classifier) questionnaire.Dependencies {
	return questionnaire.Dependencies{
		Classifier:   classifier,
		Empathizer:   &questionnairetest.Empathizer{}, //nolint:exhaustruct // zero values intended
		Summarizer:   &questionnairetest.Summarizer{}, //nolint:exhaustruct // zero values intended
		Phraser:      questionnaire.NewPhraser(random.NewSeededSource(1)),
		SafetyFilter: nil,
		CallTimeout:  0,
		Logger:       nil,
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name     string
		label    questionnaire.Label
		contains []string
	}{
		{
			name:  "one point each",
			label: questionnaire.SeveralDays,
			contains: []string{
				"Interpreted as: Several days (1 point)",
				"Depression severity: Mild",
				"Your score is 9.",
			},
		},
		{
			name:  "no points",
			label: questionnaire.NotAtAll,
			contains: []string{
				"Interpreted as: Not at all (0 points)",
				"Depression severity: Minimal",
			},
		},
		{
			name:  "three points each",
			label: questionnaire.NearlyEveryDay,
			contains: []string{
				"Interpreted as: Nearly every day (3 points)",
				"Depression severity: Severe",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := strings.NewReader(strings.Repeat("an answer\n", questionnaire.QuestionCount))
			var out bytes.Buffer
			err := screen.Run(context.Background(), in, &out, deps(questionnairetest.Always(tt.label)))
			require.NoError(t, err)
			for _, s := range tt.contains {
				require.Contains(t, out.String(), s)
			}
			for i := range questionnaire.QuestionCount {
				require.Contains(t, out.String(), questionnaire.Prompt(i))
			}
			require.Equal(t, questionnaire.QuestionCount, strings.Count(out.String(), "Interpreted as:"))
			require.NotContains(t, out.String(), "ended before")
		})
	}
}

func TestRun_crisis(t *testing.T) {
	in := strings.NewReader("some days\nI want to die\nnever reached\n")
	var out bytes.Buffer
	classifier := questionnairetest.Always(questionnaire.SeveralDays)
	require.NoError(t, screen.Run(context.Background(), in, &out, deps(classifier)))

	require.Contains(t, out.String(), questionnaire.CrisisMessage)
	require.Equal(t, 1, strings.Count(out.String(), "Interpreted as:"))
	require.NotContains(t, out.String(), questionnaire.Prompt(2))
	require.Equal(t, 1, classifier.Calls())
}

func TestRun_endOfInput(t *testing.T) {
	in := strings.NewReader("some days\n\n")
	var out bytes.Buffer
	require.NoError(t, screen.Run(context.Background(), in, &out, deps(questionnairetest.Always(questionnaire.SeveralDays))))

	require.Contains(t, out.String(), questionnaire.Prompt(1))
	require.Contains(t, out.String(), "The screening ended before all questions were answered.")
}

func TestRun_retry(t *testing.T) {
	in := strings.NewReader("most days\n")
	var out bytes.Buffer
	classifier := &questionnairetest.Classifier{Err: errors.New("model unavailable")} //nolint:exhaustruct // failing
	require.NoError(t, screen.Run(context.Background(), in, &out, deps(classifier)))

	require.Contains(t, out.String(), questionnaire.RetryMessage)
	require.NotContains(t, out.String(), "Interpreted as:")
	require.NotContains(t, out.String(), questionnaire.Prompt(1))
}

type paragraphEmpathizer struct{}

func (paragraphEmpathizer) Empathize(context.Context, string, string) (string, error) {
	return "That sounds hard.\n\nThank you for sharing it.", nil
}

func TestRun_summaryBox(t *testing.T) {
	in := strings.NewReader(strings.Repeat("an answer\n", questionnaire.QuestionCount))
	var out bytes.Buffer
	d := deps(questionnairetest.Always(questionnaire.SeveralDays))
	d.Empathizer = paragraphEmpathizer{}
	require.NoError(t, screen.Run(context.Background(), in, &out, d))

	ack := "That sounds hard.\n\nThank you for sharing it.\n\n"
	i := strings.LastIndex(out.String(), ack)
	require.GreaterOrEqual(t, i, 0, out.String())
	boxed := out.String()[i+len(ack):]
	lines := strings.Split(strings.TrimSuffix(boxed, "\n"), "\n")
	require.Len(t, lines, 5, boxed)
	require.Equal(t, lines[0], lines[4])
	require.Equal(t, "Depression severity: Mild", lines[1])
	require.Empty(t, lines[2])
	require.Equal(t, "Your score is 9. Be gentle with yourself.", lines[3])
}
