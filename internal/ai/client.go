// Package ai adapts the OpenAI API to the screening capabilities: answer classification, empathetic replies, the
// closing summary, pre-screening small talk, and speech transcription.
package ai

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/sashabaranov/go-openai"
)

// Config configures the OpenAI client.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint. Empty means the public OpenAI API.
	BaseURL            string
	Model              string
	TranscriptionModel string
}

const (
	DefaultModel              = "gpt-4o"
	DefaultTranscriptionModel = openai.Whisper1
	// MaxTokens bounds every completion. The longest expected output is the closing summary of under 100 words.
	MaxTokens = 512
)

// ErrEmptyCompletion is returned when the model answers with no text.
var ErrEmptyCompletion = errors.NewSentinel("empty completion")

// Client implements the questionnaire capabilities on top of the OpenAI chat completion and transcription APIs.
type Client struct {
	client             *openai.Client
	model              string
	transcriptionModel string
	logger             *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	transcriptionModel := cfg.TranscriptionModel
	if transcriptionModel == "" {
		transcriptionModel = DefaultTranscriptionModel
	}
	return &Client{
		client:             openai.NewClientWithConfig(clientConfig),
		model:              model,
		transcriptionModel: transcriptionModel,
		logger:             logger,
	}
}

// complete returns the trimmed text of the first choice.
func (c *Client) complete(ctx context.Context, purpose string, messages ...openai.ChatCompletionMessage) (string, error) {
	start := time.Now()
	completion, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{ //nolint:exhaustruct // this is better for readability
			Model:     c.model,
			MaxTokens: MaxTokens,
			Messages:  messages,
		},
	)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion", slog.String("purpose", purpose))
	}
	c.logger.LogAttrs(ctx, slog.LevelDebug, "chat completion",
		slog.String("purpose", purpose),
		slog.Duration("duration", time.Since(start)),
		slog.Int("total_tokens", completion.Usage.TotalTokens))
	if len(completion.Choices) == 0 {
		return "", errors.Wrap(ErrEmptyCompletion, "no choices", slog.String("purpose", purpose))
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", errors.Wrap(ErrEmptyCompletion, "blank content", slog.String("purpose", purpose))
	}
	return text, nil
}

func userMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{ //nolint:exhaustruct // plain text message
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	}
}

func systemMessage(content string) openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{ //nolint:exhaustruct // plain text message
		Role:    openai.ChatMessageRoleSystem,
		Content: content,
	}
}

// Transcribe converts recorded speech to text. filename is passed to the API so it can tell the audio format.
func (c *Client) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{ //nolint:exhaustruct // defaults are fine
		Model:    c.transcriptionModel,
		FilePath: filename,
		Reader:   audio,
	})
	if err != nil {
		return "", errors.Wrap(err, "create transcription", slog.String("filename", filename))
	}
	return strings.TrimSpace(resp.Text), nil
}
