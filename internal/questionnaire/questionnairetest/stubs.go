// Package questionnairetest provides deterministic stand-ins for the language-model capabilities.
package questionnairetest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/myrjola/phq9bot/internal/questionnaire"
)

// Classifier returns labels from Labels in order, repeating the last one. Err, when set, is returned instead.
type Classifier struct {
	mu     sync.Mutex
	Labels []questionnaire.Label
	Err    error
	calls  int
}

// Always returns a Classifier that classifies every answer as label.
func Always(label questionnaire.Label) *Classifier {
	return &Classifier{Labels: []questionnaire.Label{label}} //nolint:exhaustruct // zero values intended
}

func (c *Classifier) Classify(_ context.Context, _, _ string) (questionnaire.Label, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.Err != nil {
		return "", c.Err
	}
	if len(c.Labels) == 0 {
		return questionnaire.NotAtAll, nil
	}
	i := min(c.calls-1, len(c.Labels)-1)
	return c.Labels[i], nil
}

// Calls returns how many times Classify was invoked.
func (c *Classifier) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Empathizer echoes the answer back. Err, when set, is returned instead.
type Empathizer struct {
	mu    sync.Mutex
	Err   error
	calls int
}

func (e *Empathizer) Empathize(_ context.Context, _, response string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.Err != nil {
		return "", e.Err
	}
	return fmt.Sprintf("Thank you for telling me %q.", response), nil
}

// Calls returns how many times Empathize was invoked.
func (e *Empathizer) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// Summarizer states the band computed from the score. Err, when set, is returned instead.
type Summarizer struct {
	mu         sync.Mutex
	Err        error
	Transcript string
	calls      int
}

func (s *Summarizer) Summarize(_ context.Context, transcript string, score int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.Transcript = transcript
	if s.Err != nil {
		return "", s.Err
	}
	return "Depression severity: " + string(questionnaire.BandFor(score)) +
		"\n\nYour score is " + strconv.Itoa(score) + ". Be gentle with yourself.", nil
}

// Calls returns how many times Summarize was invoked.
func (s *Summarizer) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
