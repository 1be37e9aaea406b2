package main

import (
	"net/http"

	"github.com/myrjola/phq9bot/internal/questionnaire"
	"github.com/myrjola/phq9bot/internal/screening"
)

type homeTemplateData struct {
	BaseTemplateData
	Greeting      string
	StartTrigger  string
	QuestionCount int
}

func (app *application) home(w http.ResponseWriter, r *http.Request) {
	data := homeTemplateData{
		BaseTemplateData: newBaseTemplateData(r),
		Greeting:         "Hi, I'm here to listen. How have you been feeling lately?",
		StartTrigger:     screening.StartTrigger,
		QuestionCount:    questionnaire.QuestionCount,
	}

	app.render(w, r, http.StatusOK, "chat", data)
}
