package testhelpers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/sashabaranov/go-openai"
)

// FakeOpenAI is an in-process stand-in for the OpenAI REST API covering chat completions and audio transcriptions.
//
// Chat completions are answered by Reply, which defaults to [DefaultReply]. Point the go-openai client at
// [FakeOpenAI.BaseURL].
type FakeOpenAI struct {
	server *httptest.Server

	mu         sync.Mutex
	reply      func(openai.ChatCompletionRequest) string
	transcript string
	failing    bool
	requests   []openai.ChatCompletionRequest
	audioFiles []string
}

// NewFakeOpenAI starts a fake that is closed when the test finishes.
func NewFakeOpenAI(t testing.TB) *FakeOpenAI {
	t.Helper()
	f := &FakeOpenAI{ //nolint:exhaustruct // zero values intended
		reply:      DefaultReply,
		transcript: "I have been feeling down most days.",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", f.handleChatCompletion)
	mux.HandleFunc("POST /v1/audio/transcriptions", f.handleTranscription)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

// BaseURL is the value for the OpenAI client BaseURL.
func (f *FakeOpenAI) BaseURL() string {
	return f.server.URL + "/v1"
}

// SetReply replaces the chat completion responder.
func (f *FakeOpenAI) SetReply(reply func(openai.ChatCompletionRequest) string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// SetTranscript sets the text returned for every transcription.
func (f *FakeOpenAI) SetTranscript(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcript = text
}

// SetFailing makes every request fail with 500 until reset.
func (f *FakeOpenAI) SetFailing(failing bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = failing
}

// Requests returns the chat completion requests received so far.
func (f *FakeOpenAI) Requests() []openai.ChatCompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]openai.ChatCompletionRequest(nil), f.requests...)
}

// AudioFiles returns the file names of the uploaded audio.
func (f *FakeOpenAI) AudioFiles() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.audioFiles...)
}

func (f *FakeOpenAI) isFailing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing
}

func (f *FakeOpenAI) handleChatCompletion(w http.ResponseWriter, r *http.Request) {
	if f.isFailing() {
		writeAPIError(w)
		return
	}
	var req openai.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	reply := f.reply
	f.mu.Unlock()

	resp := openai.ChatCompletionResponse{ //nolint:exhaustruct // only the fields the client reads
		ID:     "chatcmpl-fake",
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []openai.ChatCompletionChoice{{ //nolint:exhaustruct // only the fields the client reads
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply(req)}, //nolint:exhaustruct // plain text
			FinishReason: openai.FinishReasonStop,
		}},
	}
	writeJSON(w, resp)
}

func (f *FakeOpenAI) handleTranscription(w http.ResponseWriter, r *http.Request) {
	if f.isFailing() {
		writeAPIError(w)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		http.Error(w, "empty audio", http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.audioFiles = append(f.audioFiles, header.Filename)
	text := f.transcript
	f.mu.Unlock()
	writeJSON(w, map[string]string{"text": text})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = io.WriteString(w, `{"error":{"message":"fake outage","type":"server_error","code":null}}`)
}

var scorePattern = regexp.MustCompile(`PHQ-9 score is (\d+)`)

// DefaultReply answers the fixed prompts of the ai package with canned text. Classification picks a label from
// keywords in the answer, the summary states the band for the score, and small talk offers a screening only when the
// user sounds low.
func DefaultReply(req openai.ChatCompletionRequest) string {
	var prompt strings.Builder
	for _, m := range req.Messages {
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}
	text := prompt.String()
	last := ""
	if len(req.Messages) > 0 {
		last = strings.ToLower(req.Messages[len(req.Messages)-1].Content)
	}

	switch {
	case strings.Contains(text, "Only output the matching phrase exactly"):
		return classify(last)
	case strings.Contains(text, "one-sentence reply"):
		return "That sounds like a lot to carry, and I appreciate you telling me."
	case scorePattern.MatchString(text):
		score, _ := strconv.Atoi(scorePattern.FindStringSubmatch(text)[1])
		return "Depression severity: " + band(score) + "\n\nThank you for sharing so openly. You deserve support."
	case strings.Contains(last, "sad") || strings.Contains(last, "down") || strings.Contains(last, "hopeless"):
		return "I'm sorry you're feeling this way. Would you like to take a quick PHQ-9 screening together?"
	default:
		return "Hi! It's nice to hear from you. How has your day been?"
	}
}

func classify(prompt string) string {
	answer := prompt
	if i := strings.Index(prompt, "answer:"); i >= 0 {
		answer = prompt[i:]
	}
	switch {
	case strings.Contains(answer, "every day") || strings.Contains(answer, "all the time"):
		return "Nearly every day"
	case strings.Contains(answer, "most days") || strings.Contains(answer, "more than half"):
		return "More than half the days"
	case strings.Contains(answer, "some days") || strings.Contains(answer, "few days") ||
		strings.Contains(answer, "several"):
		return "Several days"
	case strings.Contains(answer, "no idea"):
		return "Unclear"
	default:
		return "Not at all"
	}
}

func band(score int) string {
	switch {
	case score <= 4:
		return "Minimal"
	case score <= 9:
		return "Mild"
	case score <= 14:
		return "Moderate"
	case score <= 19:
		return "Moderately severe"
	default:
		return "Severe"
	}
}
