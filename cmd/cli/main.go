package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/phq9bot/cmd/cli/audio"
	"github.com/myrjola/phq9bot/cmd/cli/screen"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(screen.Group)
	rootCmd.AddCommand(screen.Command)
	rootCmd.AddGroup(audio.Group)
	rootCmd.AddCommand(audio.Transcribe)
}

var rootCmd = &cobra.Command{
	Use:          "phq9-cli",
	Short:        "PHQ-9 screening in the terminal",
	Long:         `Command line utilities for the PHQ-9 screening bot https://github.com/myrjola/phq9bot`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
