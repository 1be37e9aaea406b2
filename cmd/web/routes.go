package main

import (
	"io/fs"
	"net/http"

	"github.com/justinas/alice"
	"github.com/myrjola/phq9bot/ui"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	static, err := fs.Sub(ui.Files, "static")
	if err != nil {
		// The static directory is embedded at compile time.
		panic(err)
	}
	mux.Handle("GET /static/", http.StripPrefix("/static", http.FileServerFS(static)))

	mux.HandleFunc("GET /api/healthy", app.healthy)

	conversation := alice.New(app.sessionManager.LoadAndSave, noSurf, app.conversation)

	mux.Handle("GET /{$}", conversation.ThenFunc(app.home))
	mux.Handle("POST /api/chat", conversation.ThenFunc(app.chat))
	mux.Handle("POST /api/transcribe", conversation.ThenFunc(app.transcribe))
	mux.Handle("GET /api/result", conversation.ThenFunc(app.result))
	mux.Handle("POST /api/reset", conversation.ThenFunc(app.reset))

	common := alice.New(app.recoverPanic, app.logRequest, cors, secureHeaders)
	return common.Then(mux)
}
