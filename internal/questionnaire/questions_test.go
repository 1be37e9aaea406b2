package questionnaire_test

import (
	"testing"

	"github.com/myrjola/phq9bot/internal/questionnaire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestions(t *testing.T) {
	tests := []struct {
		index int
		want  string
	}{
		{0, "Over the last 2 weeks, how often have you had little interest or pleasure in doing things?"},
		{5, "Over the last 2 weeks, how often have you felt bad about yourself — or that you are a failure or " +
			"have let yourself or your family down?"},
		{7, "Over the last 2 weeks, how often have you been moving or speaking so slowly that other people could " +
			"have noticed? Or the opposite — being so fidgety or restless that you’ve been moving around a lot " +
			"more than usual?"},
		{8, "Over the last 2 weeks, how often have you had thoughts that you would be better off dead or of " +
			"hurting yourself in some way?"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, questionnaire.Question(tt.index), "question %d", tt.index+1)
	}

	require.Len(t, questionnaire.Questions(), questionnaire.QuestionCount)
	require.Equal(t, 9, questionnaire.QuestionCount)
	require.Equal(t, "6. "+questionnaire.Question(5), questionnaire.Prompt(5))
}
