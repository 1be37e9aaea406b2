// Package screen runs a PHQ-9 screening in the terminal.
package screen

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/myrjola/phq9bot/cmd/cli/clienv"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/questionnaire"
	"github.com/spf13/cobra"
)

var Group = &cobra.Group{
	ID:    "screening",
	Title: "Screening",
}

const greeting = "Hi there, I'm here to listen and help.\n" +
	"Let's go through 9 questions to check how you've been feeling.\n" +
	"You can respond in your own words."

const separator = "============================================================"

var Command = &cobra.Command{
	Use:     "screen",
	GroupID: "screening",
	Short:   "Take the PHQ-9 screening",
	Long:    `Asks the nine PHQ-9 questions one at a time and scores the free-text answers with the language model.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := clienv.Load(os.LookupEnv)
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		logger := clienv.NewLogger(cmd.ErrOrStderr(), cfg.Verbose)
		client := cfg.NewAIClient(logger)
		deps := questionnaire.Dependencies{
			Classifier:   client,
			Empathizer:   client,
			Summarizer:   client,
			Phraser:      nil,
			SafetyFilter: nil,
			CallTimeout:  cfg.LLMTimeout,
			Logger:       logger,
		}
		return Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), deps)
	},
}

// Run reads answers line by line from in and writes the dialogue to out until the screening is completed or
// interrupted, or in is exhausted. A failed classification asks for the same answer again.
func Run(ctx context.Context, in io.Reader, out io.Writer, deps questionnaire.Dependencies) error {
	session := questionnaire.NewSession(deps)
	first, err := session.Start()
	if err != nil {
		return errors.Wrap(err, "start session")
	}
	w := &printer{w: out, err: nil}
	w.printf("%s\n\n%s\nYour response: ", greeting, first)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			w.printf("Your response: ")
			continue
		}
		turn, respondErr := session.Respond(ctx, line)
		switch {
		case errors.Is(respondErr, questionnaire.ErrCapabilityUnavailable):
			w.printf("\n%s\nYour response: ", turn.Message)
			continue
		case respondErr != nil:
			return errors.Wrap(respondErr, "respond")
		}

		if turn.Answer != nil {
			w.printf("\nInterpreted as: %s (%s)\n", turn.Answer.Label, pointsText(turn.Answer.Points()))
		}
		switch turn.Phase {
		case questionnaire.PhaseCompleted:
			summary := session.Snapshot().Closing
			ack := strings.TrimSuffix(strings.TrimSuffix(turn.Message, summary), "\n\n")
			w.printf("%s\n\n%s\n%s\n%s\n", ack, separator, summary, separator)
			return w.err
		case questionnaire.PhaseInterrupted:
			w.printf("\n%s\n", turn.Message)
			return w.err
		case questionnaire.PhaseNotStarted, questionnaire.PhaseInProgress:
		}
		w.printf("%s\nYour response: ", turn.Message)
		if w.err != nil {
			return w.err
		}
	}
	if err = scanner.Err(); err != nil {
		return errors.Wrap(err, "read answer")
	}
	w.printf("\n\nThe screening ended before all questions were answered.\n")
	return w.err
}

func pointsText(n int) string {
	if n == 1 {
		return "1 point"
	}
	return fmt.Sprintf("%d points", n)
}

// printer remembers the first write error so the loop can check it once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	if _, err := fmt.Fprintf(p.w, format, args...); err != nil {
		p.err = errors.Wrap(err, "write output")
	}
}
