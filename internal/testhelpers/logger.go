package testhelpers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/myrjola/phq9bot/internal/logging"
)

// NewLogger creates a new logger with the given log sink such as io.Discard.
func NewLogger(logSink io.Writer) *slog.Logger {
	handler := logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	return slog.New(handler)
}

// NewTestLogger creates a debug logger that writes through t.Log so output is shown only for failing tests.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return NewLogger(testWriter{t: t})
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}
