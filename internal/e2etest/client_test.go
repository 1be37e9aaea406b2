package e2etest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"

	"github.com/justinas/nosurf"
	"github.com/myrjola/phq9bot/internal/e2etest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

// stubRoutes imitates the chat API closely enough to exercise the client.
func stubRoutes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/healthy", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<html><head><meta name="csrf-token" content="`+testToken+`"></head></html>`)
	})
	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(nosurf.HeaderName) != testToken {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":"Invalid CSRF token."}`)
			return
		}
		var req struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(e2etest.Reply{ //nolint:exhaustruct // only what the test checks
			Reply: "echo: " + req.Message,
			Phase: "in_progress",
			Answer: &e2etest.Answer{
				Question: "q1",
				Response: req.Message,
				Label:    "Several days",
				Points:   1,
			},
		})
	})
	mux.HandleFunc("GET /api/result", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"phase":"in_progress","score":1,"band":"Minimal","interrupted":false,"answers":[]}`)
	})
	mux.HandleFunc("POST /api/reset", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// runStub has the signature of a server run function and serves stubRoutes until ctx is done.
func runStub(ctx context.Context, logger *slog.Logger, _ func(string) (string, bool)) error {
	listener, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: stubRoutes()} //nolint:exhaustruct,gosec // test server
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.String(e2etest.LogAddrKey, listener.Addr().String()))
	if err = srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func startStub(t *testing.T) *e2etest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	server, err := e2etest.StartServer(ctx, io.Discard, func(string) (string, bool) { return "", false }, runStub)
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		server.Wait()
	})
	return server
}

func TestClient(t *testing.T) {
	server := startStub(t)
	client := server.Client()
	ctx := context.Background()

	_, err := client.Chat(ctx, "before open")
	require.ErrorContains(t, err, "unexpected status code")

	doc, err := client.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("meta").Length())
	assert.Equal(t, testToken, client.CSRFToken())

	reply, err := client.Chat(ctx, "some days")
	require.NoError(t, err)
	assert.Equal(t, "echo: some days", reply.Reply)
	require.NotNil(t, reply.Answer)
	assert.Equal(t, 1, reply.Answer.Points)

	result, err := client.Result(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, "Minimal", result.Band)

	require.NoError(t, client.Reset(ctx))
}

func TestStartServer_runFails(t *testing.T) {
	failing := func(context.Context, *slog.Logger, func(string) (string, bool)) error {
		return io.ErrUnexpectedEOF
	}
	_, err := e2etest.StartServer(context.Background(), io.Discard, nil, failing)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestClient_GetDoc(t *testing.T) {
	server := startStub(t)
	_, err := server.Client().GetDoc(context.Background(), "/missing")
	require.ErrorContains(t, err, "unexpected status code")
}
