package random_test

import (
	"testing"

	"github.com/myrjola/phq9bot/internal/random"
	"github.com/stretchr/testify/require"
)

func TestLetters(t *testing.T) {
	tests := []struct {
		name   string
		length uint
	}{
		{
			name:   "zero length",
			length: 0,
		},
		{
			name:   "32 length",
			length: 32,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := random.Letters(tt.length)
			require.NoError(t, err)
			require.Len(t, got, int(tt.length))
			for _, r := range got {
				require.True(t, (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'), "unexpected rune %q", r)
			}
		})
	}
}

func TestSeededSourceIsDeterministic(t *testing.T) {
	a := random.NewSeededSource(42)
	b := random.NewSeededSource(42)
	for range 20 {
		require.Equal(t, a.IntN(3), b.IntN(3))
	}
}

func TestNewSourceStaysInRange(t *testing.T) {
	s := random.NewSource()
	for range 100 {
		n := s.IntN(3)
		require.GreaterOrEqual(t, n, 0)
		require.Less(t, n, 3)
	}
}
