package questionnaire_test

import (
	"testing"

	"github.com/myrjola/phq9bot/internal/questionnaire"
	"github.com/stretchr/testify/require"
)

func TestSafetyFilter_Check(t *testing.T) {
	filter := questionnaire.NewSafetyFilter()
	tests := []struct {
		utterance string
		want      bool
	}{
		{"I want to die", true},
		{"Sometimes I feel SUICIDAL at night", true},
		{"I took sleeping pills", true},
		{"honestly I don't want to live anymore", true},
		{"I don’t want to live", true},
		{"I might hurt myself", true},
		{"I thought about how to end my life", true},
		{"Not at all, I'm fine", false},
		{"I've been sleeping badly", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			require.Equal(t, tt.want, filter.Check(tt.utterance))
		})
	}
}

func TestSafetyFilter_CustomPhrases(t *testing.T) {
	filter := questionnaire.NewSafetyFilter("  No Way Out ", "")
	require.True(t, filter.Check("there is no way out"))
	require.False(t, filter.Check("I want to die"), "custom phrases replace the defaults")
}
