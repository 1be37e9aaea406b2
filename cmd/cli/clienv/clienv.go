// Package clienv builds the collaborators of the command line tools from the environment.
package clienv

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/myrjola/phq9bot/internal/ai"
	"github.com/myrjola/phq9bot/internal/envstruct"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/logging"
)

type Config struct {
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL      string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	Model              string        `env:"PHQ9_MODEL" envDefault:"gpt-4o"`
	TranscriptionModel string        `env:"PHQ9_TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	LLMTimeout         time.Duration `env:"PHQ9_LLM_TIMEOUT" envDefault:"20s"`
	Verbose            bool          `env:"PHQ9_VERBOSE" envDefault:"false"`
}

// Load reads the configuration with lookupEnv, usually [os.LookupEnv].
func Load(lookupEnv func(string) (string, bool)) (Config, error) {
	var cfg Config
	if err := envstruct.Populate(&cfg, lookupEnv); err != nil {
		return cfg, errors.Wrap(err, "populate config")
	}
	return cfg, nil
}

// NewAIClient creates the OpenAI backed client described by cfg.
func (cfg Config) NewAIClient(logger *slog.Logger) *ai.Client {
	return ai.NewClient(ai.Config{
		APIKey:             cfg.OpenAIAPIKey,
		BaseURL:            cfg.OpenAIBaseURL,
		Model:              cfg.Model,
		TranscriptionModel: cfg.TranscriptionModel,
	}, logger)
}

// NewLogger logs to w, which is stderr for the commands so that stdout carries only the dialogue. Debug records are
// included when verbose is set.
func NewLogger(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(logging.NewContextHandler(slog.NewTextHandler(w, &slog.HandlerOptions{
		AddSource:   false,
		Level:       level,
		ReplaceAttr: nil,
	})))
}
