package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/justinas/nosurf"
	"github.com/myrjola/phq9bot/internal/errors"
)

// Client talks to a running chat server like the browser page does. It keeps the session cookies and the CSRF token
// of the loaded page.
type Client struct {
	client    *http.Client
	url       string
	csrfToken string
}

// Answer is a recorded answer returned by the chat API.
type Answer struct {
	Question string `json:"question"`
	Response string `json:"response"`
	Label    string `json:"label"`
	Points   int    `json:"points"`
}

// Reply is the response to one chat message.
type Reply struct {
	Reply       string  `json:"reply"`
	Interrupted bool    `json:"interrupted"`
	Phase       string  `json:"phase"`
	Score       int     `json:"score"`
	Band        string  `json:"band"`
	Retry       bool    `json:"retry"`
	Answer      *Answer `json:"answer"`
}

// Result is the structured state of the conversation's screening.
type Result struct {
	Phase       string   `json:"phase"`
	Score       int      `json:"score"`
	Band        string   `json:"band"`
	Interrupted bool     `json:"interrupted"`
	Answers     []Answer `json:"answers"`
}

// NewClient creates a client for the server at url.
func NewClient(url string) (*Client, error) {
	jar, err := NewUnsafeCookieJar()
	if err != nil {
		return nil, errors.Wrap(err, "create unsafe cookie jar")
	}
	return &Client{
		client:    &http.Client{Jar: jar}, //nolint:exhaustruct // defaults are fine
		url:       url,
		csrfToken: "",
	}, nil
}

// HTTPClient is the underlying client sharing the session cookies.
func (c *Client) HTTPClient() *http.Client {
	return c.client
}

// CSRFToken is the token of the last page loaded with [Client.Open].
func (c *Client) CSRFToken() string {
	return c.csrfToken
}

// WaitForReady calls the specified endpoint until it gets a HTTP 200 Success
// response or until the context is cancelled or the 1-second timeout is reached.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	timeout := 1 * time.Second
	startTime := time.Now()
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	for {
		if req, err = c.newRequestWithContext(ctx, http.MethodGet, urlPath, nil); err != nil {
			return errors.Wrap(err, "create request")
		}

		if resp, err = c.client.Do(req); err == nil {
			if resp.StatusCode == http.StatusOK {
				if err = resp.Body.Close(); err != nil {
					return errors.Wrap(err, "close response body")
				}
				return nil
			}
			if err = resp.Body.Close(); err != nil {
				return errors.Wrap(err, "close response body")
			}
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "context cancelled")
		default:
			if time.Since(startTime) >= timeout {
				return errors.New("timeout waiting for endpoint to be ready")
			}
			time.Sleep(100 * time.Millisecond) //nolint:mnd // 100ms
		}
	}
}

// Get fetches a URL and returns the response.
func (c *Client) Get(ctx context.Context, urlPath string) (*http.Response, error) {
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	if req, err = c.newRequestWithContext(ctx, http.MethodGet, urlPath, nil); err != nil {
		return nil, errors.Wrap(err, "create request with context")
	}
	if resp, err = c.client.Do(req); err != nil {
		return nil, errors.Wrap(err, "do request")
	}
	return resp, nil
}

// GetDoc fetches a URL and returns a goquery document.
func (c *Client) GetDoc(ctx context.Context, urlPath string) (*goquery.Document, error) {
	var (
		err  error
		resp *http.Response
		doc  *goquery.Document
	)
	if resp, err = c.Get(ctx, urlPath); err != nil {
		return nil, errors.Wrap(err, "client get")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if http.StatusOK != resp.StatusCode {
		return nil, errors.New("unexpected status code", slog.Int("status", resp.StatusCode))
	}
	if doc, err = goquery.NewDocumentFromReader(resp.Body); err != nil {
		return nil, errors.Wrap(err, "create document from reader")
	}
	return doc, nil
}

// Open loads the chat page, which starts a conversation, and remembers its CSRF token for the API calls.
func (c *Client) Open(ctx context.Context) (*goquery.Document, error) {
	doc, err := c.GetDoc(ctx, "/")
	if err != nil {
		return nil, errors.Wrap(err, "get chat page")
	}
	token, exists := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	if !exists || token == "" {
		return nil, errors.New("csrf-token meta tag not found")
	}
	c.csrfToken = token
	return doc, nil
}

// Chat sends one message in the conversation.
func (c *Client) Chat(ctx context.Context, message string) (Reply, error) {
	var reply Reply
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return reply, errors.Wrap(err, "marshal chat request")
	}
	if err = c.do(ctx, http.MethodPost, "/api/chat", bytes.NewReader(body), http.StatusOK, &reply); err != nil {
		return reply, errors.Wrap(err, "chat", slog.String("message", message))
	}
	return reply, nil
}

// Result fetches the screening state of the conversation.
func (c *Client) Result(ctx context.Context) (Result, error) {
	var result Result
	if err := c.do(ctx, http.MethodGet, "/api/result", nil, http.StatusOK, &result); err != nil {
		return result, errors.Wrap(err, "result")
	}
	return result, nil
}

// Reset discards the screening so the next message starts over.
func (c *Client) Reset(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/reset", nil, http.StatusNoContent, nil); err != nil {
		return errors.Wrap(err, "reset")
	}
	return nil
}

// do sends a JSON API request and decodes the response into out unless out is nil.
func (c *Client) do(ctx context.Context, method, urlPath string, body io.Reader, expectedStatus int, out any) error {
	var (
		err  error
		req  *http.Request
		resp *http.Response
	)
	if req, err = c.newRequestWithContext(ctx, method, urlPath, body); err != nil {
		return errors.Wrap(err, "create request with context")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.csrfToken != "" {
		req.Header.Set(nosurf.HeaderName, c.csrfToken)
	}
	if resp, err = c.client.Do(req); err != nil {
		return errors.Wrap(err, "do request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != expectedStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10)) //nolint:mnd // 1 KiB is enough for the error message
		return errors.New("unexpected status code",
			slog.Int("status", resp.StatusCode), slog.String("body", string(msg)))
	}
	if out == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// newRequestWithContext creates a new HTTP request to the server that respects the given context.
func (c *Client) newRequestWithContext(
	ctx context.Context,
	method, urlPath string,
	body io.Reader,
) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)
	if req, err = http.NewRequestWithContext(ctx, method, c.url+urlPath, body); err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	return req, nil
}
