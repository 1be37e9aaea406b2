package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/myrjola/phq9bot/internal/contexthelpers"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/questionnaire"
	"github.com/myrjola/phq9bot/internal/screening"
)

const maxChatBodyBytes = 64 << 10

type chatRequest struct {
	Message string `json:"message"`
}

type answerResponse struct {
	Question string `json:"question"`
	Response string `json:"response"`
	Label    string `json:"label"`
	Points   int    `json:"points"`
}

type chatResponse struct {
	Reply       string          `json:"reply"`
	Interrupted bool            `json:"interrupted"`
	Phase       string          `json:"phase"`
	Score       int             `json:"score"`
	Band        string          `json:"band,omitempty"`
	Retry       bool            `json:"retry"`
	Answer      *answerResponse `json:"answer,omitempty"`
}

func newAnswerResponse(a questionnaire.Answer) answerResponse {
	return answerResponse{
		Question: a.Question,
		Response: a.Response,
		Label:    string(a.Label),
		Points:   a.Points(),
	}
}

func (app *application) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&req); err != nil {
		app.clientError(w, r, http.StatusBadRequest, "Request body must be JSON with a message.")
		return
	}

	ctx := r.Context()
	reply, err := app.screenings.Chat(ctx, contexthelpers.ConversationID(ctx), req.Message)
	switch {
	case errors.Is(err, screening.ErrEmptyMessage):
		app.clientError(w, r, http.StatusBadRequest, "Message must not be empty.")
		return
	case errors.Is(err, questionnaire.ErrCapabilityUnavailable):
		app.logger.LogAttrs(ctx, slog.LevelWarn, "asking user to retry", errors.SlogError(err))
	case err != nil:
		app.serverError(w, r, errors.Wrap(err, "chat"))
		return
	}

	resp := chatResponse{
		Reply:       reply.Message,
		Interrupted: reply.Interrupted,
		Phase:       string(reply.Phase),
		Score:       reply.Score,
		Band:        string(reply.Band),
		Retry:       reply.Retry,
		Answer:      nil,
	}
	if reply.Answer != nil {
		answer := newAnswerResponse(*reply.Answer)
		resp.Answer = &answer
	}
	writeJSON(w, http.StatusOK, resp)
}

type resultResponse struct {
	Phase       string           `json:"phase"`
	Score       int              `json:"score"`
	Band        string           `json:"band"`
	Interrupted bool             `json:"interrupted"`
	Answers     []answerResponse `json:"answers"`
}

// result returns the structured state of the conversation's screening.
func (app *application) result(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	snapshot, err := app.screenings.Result(ctx, contexthelpers.ConversationID(ctx))
	if errors.Is(err, screening.ErrNoScreening) {
		app.clientError(w, r, http.StatusNotFound, "No screening has been started.")
		return
	}
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "result"))
		return
	}
	answers := make([]answerResponse, 0, len(snapshot.Answers))
	for _, a := range snapshot.Answers {
		answers = append(answers, newAnswerResponse(a))
	}
	writeJSON(w, http.StatusOK, resultResponse{
		Phase:       string(snapshot.Phase),
		Score:       snapshot.Score,
		Band:        string(snapshot.Band()),
		Interrupted: snapshot.Interrupted,
		Answers:     answers,
	})
}

// reset ends the conversation's screening so the next message starts over.
func (app *application) reset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := app.screenings.Reset(ctx, contexthelpers.ConversationID(ctx)); err != nil {
		app.serverError(w, r, errors.Wrap(err, "reset"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
