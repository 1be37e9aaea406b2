package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/phq9bot/internal/e2etest"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/logging"
)

// TestScreening starts a screening, answers the first question, and resets the conversation.
func TestScreening(ctx context.Context, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // the first answer waits for the LLM.
	defer cancel()
	var (
		err   error
		reply e2etest.Reply
	)

	if _, err = client.Open(ctx); err != nil {
		return errors.Wrap(err, "open chat page")
	}
	if err = client.Reset(ctx); err != nil {
		return errors.Wrap(err, "reset before start")
	}
	if reply, err = client.Chat(ctx, "start"); err != nil {
		return errors.Wrap(err, "start screening")
	}
	if reply.Phase != "in_progress" {
		return errors.New("screening did not start", slog.String("phase", reply.Phase))
	}
	if reply, err = client.Chat(ctx, "Several days, I think."); err != nil {
		return errors.Wrap(err, "answer first question")
	}
	if reply.Answer == nil {
		return errors.New("answer was not recorded", slog.Bool("retry", reply.Retry))
	}
	var result e2etest.Result
	if result, err = client.Result(ctx); err != nil {
		return errors.Wrap(err, "get result")
	}
	if len(result.Answers) != 1 {
		return errors.New("unexpected answer count", slog.Int("answers", len(result.Answers)))
	}
	if err = client.Reset(ctx); err != nil {
		return errors.Wrap(err, "reset after answer")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not healthy", errors.SlogError(err))
		os.Exit(1)
	}
	if err = TestScreening(ctx, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error testing screening", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful 🙌")
	os.Exit(0)
}
