package audio_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/myrjola/phq9bot/cmd/cli/audio"
	"github.com/myrjola/phq9bot/internal/ai"
	"github.com/myrjola/phq9bot/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func TestTranscribeFile(t *testing.T) {
	fake := testhelpers.NewFakeOpenAI(t)
	fake.SetTranscript("Nearly every day.")
	client := ai.NewClient(ai.Config{
		APIKey:             "test-key",
		BaseURL:            fake.BaseURL(),
		Model:              ai.DefaultModel,
		TranscriptionModel: ai.DefaultTranscriptionModel,
	}, testhelpers.NewTestLogger(t))

	path := filepath.Join(t.TempDir(), "answer.webm")
	require.NoError(t, os.WriteFile(path, []byte("fake audio"), 0o600))

	var out bytes.Buffer
	require.NoError(t, audio.TranscribeFile(context.Background(), client, path, &out))
	require.Equal(t, "Nearly every day.\n", out.String())
	require.Equal(t, []string{"answer.webm"}, fake.AudioFiles())

	t.Run("missing file", func(t *testing.T) {
		err := audio.TranscribeFile(context.Background(), client, filepath.Join(t.TempDir(), "nope.webm"), &out)
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("service failure", func(t *testing.T) {
		fake.SetFailing(true)
		err := audio.TranscribeFile(context.Background(), client, path, &out)
		require.ErrorContains(t, err, "transcribe")
	})
}
