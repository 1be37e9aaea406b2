package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/justinas/nosurf"
	"github.com/myrjola/phq9bot/internal/e2etest"
	"github.com/myrjola/phq9bot/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// testLookupEnv configures an ephemeral server that talks to the fake OpenAI API. overrides take precedence.
func testLookupEnv(fake *testhelpers.FakeOpenAI, overrides map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := overrides[key]; ok {
			return v, true
		}
		switch key {
		case "PHQ9_ADDR":
			return "localhost:0", true
		case "PHQ9_SQLITE_URL":
			return ":memory:", true
		case "OPENAI_API_KEY":
			return "test-key", true
		case "OPENAI_BASE_URL":
			return fake.BaseURL(), true
		default:
			return "", false
		}
	}
}

type testServer struct {
	*e2etest.Server
	fake *testhelpers.FakeOpenAI
}

// syncBuffer collects log output written concurrently by the server.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// newLogBuffer returns a log sink that is dumped to the test log if the test fails. Register it before starting the
// server so that it is printed after the server has stopped.
func newLogBuffer(t *testing.T) *syncBuffer {
	t.Helper()
	b := &syncBuffer{} //nolint:exhaustruct // zero value is ready to use
	t.Cleanup(func() {
		if t.Failed() {
			t.Log(b.String())
		}
	})
	return b
}

// startTestServer starts the test server with a fresh fake OpenAI API and waits for it to be ready. overrides are
// applied on top of [testLookupEnv].
func startTestServer(t *testing.T, logSink io.Writer, overrides map[string]string) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	fake := testhelpers.NewFakeOpenAI(t)
	server, err := e2etest.StartServer(ctx, logSink, testLookupEnv(fake, overrides), run)
	if err != nil {
		cancel()
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		server.Wait()
	})
	return &testServer{Server: server, fake: fake}
}

// Get fetches a URL and returns the response.
func (s *testServer) Get(t *testing.T, urlPath string) *http.Response {
	t.Helper()
	resp, err := s.Client().HTTPClient().Get(s.URL() + urlPath)
	require.NoError(t, err)
	return resp
}

// GetDoc fetches a URL and returns a goquery document.
func (s *testServer) GetDoc(t *testing.T, urlPath string) *goquery.Document {
	t.Helper()
	resp := s.Get(t, urlPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer func() {
		err := resp.Body.Close()
		require.NoError(t, err)
	}()
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)
	return doc
}

// CSRFToken loads the chat page and returns the token it carries.
func (s *testServer) CSRFToken(t *testing.T) string {
	t.Helper()
	token, ok := s.GetDoc(t, "/").Find(`meta[name="csrf-token"]`).Attr("content")
	require.True(t, ok, "csrf-token meta tag not found")
	require.NotEmpty(t, token)
	return token
}

// Post sends body to urlPath with the CSRF header and returns the response.
func (s *testServer) Post(t *testing.T, urlPath, contentType string, body io.Reader, csrfToken string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, s.URL()+urlPath, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if csrfToken != "" {
		req.Header.Set(nosurf.HeaderName, csrfToken)
	}
	resp, err := s.Client().HTTPClient().Do(req)
	require.NoError(t, err)
	return resp
}

// Chat posts a message and decodes the reply, expecting 200 OK.
func (s *testServer) Chat(t *testing.T, csrfToken, message string) chatResponse {
	t.Helper()
	body, err := json.Marshal(chatRequest{Message: message})
	require.NoError(t, err)
	resp := s.Post(t, "/api/chat", "application/json", bytes.NewReader(body), csrfToken)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply chatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return reply
}

// Upload posts data as the multipart field "file".
func (s *testServer) Upload(t *testing.T, csrfToken, filename string, data []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return s.Post(t, "/api/transcribe", mw.FormDataContentType(), &body, csrfToken)
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}
