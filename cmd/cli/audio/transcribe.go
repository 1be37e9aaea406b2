// Package audio holds the speech commands.
package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/myrjola/phq9bot/cmd/cli/clienv"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "audio",
	Title: "Audio operations",
}

var Transcribe = &cobra.Command{
	Use:     "transcribe [file]",
	GroupID: "audio",
	Short:   "Transcribe speech",
	Long:    `Converts a recorded answer to text with the transcription model and prints it.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := clienv.Load(os.LookupEnv)
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		client := cfg.NewAIClient(clienv.NewLogger(cmd.ErrOrStderr(), cfg.Verbose))
		return TranscribeFile(cmd.Context(), client, args[0], cmd.OutOrStdout())
	},
}

type transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

// TranscribeFile sends the audio file at path to t and writes the transcript to out.
func TranscribeFile(ctx context.Context, t transcriber, path string, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open audio file")
	}
	defer file.Close()

	text, err := t.Transcribe(ctx, filepath.Base(path), file)
	if err != nil {
		return errors.Wrap(err, "transcribe")
	}
	if _, err = fmt.Fprintln(out, text); err != nil {
		return errors.Wrap(err, "write transcript")
	}
	return nil
}
