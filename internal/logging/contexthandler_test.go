package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/myrjola/phq9bot/internal/logging"
	"github.com/stretchr/testify/require"
)

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil))).With(slog.String("component", "test"))

	ctx := logging.WithAttrs(context.Background(), slog.String("first", "1"))
	ctx = logging.WithAttrs(ctx, slog.String("second", "2"))
	logger.InfoContext(ctx, "hello")

	out := buf.String()
	require.Contains(t, out, "component=test")
	require.Contains(t, out, "first=1")
	require.Contains(t, out, "second=2")
}

func TestWithAttrsDoesNotLeakBetweenContexts(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(&buf, nil)))

	base := logging.WithAttrs(context.Background(), slog.String("base", "yes"))
	_ = logging.WithAttrs(base, slog.String("child", "yes"))
	logger.InfoContext(base, "only base")

	require.NotContains(t, buf.String(), "child=yes")
}

func TestConversationAttr(t *testing.T) {
	a := logging.ConversationAttr("conversation-a")
	require.Equal(t, "conversation_hash", a.Key)
	require.Len(t, a.Value.String(), 16)
	require.NotContains(t, a.Value.String(), "conversation-a")
	require.Equal(t, a, logging.ConversationAttr("conversation-a"))
}
