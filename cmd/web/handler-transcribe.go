package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/myrjola/phq9bot/internal/errors"
)

// defaultAudioFilename names uploads without a file name. Browsers record webm.
const defaultAudioFilename = "recording.webm"

type transcriber interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

type transcribeResponse struct {
	Transcript string `json:"transcript"`
}

// transcribe converts the uploaded audio in the multipart field "file" to text.
func (app *application) transcribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			app.clientError(w, r, http.StatusRequestEntityTooLarge, "Audio file is too large.")
			return
		}
		app.clientError(w, r, http.StatusBadRequest, "Multipart field file is required.")
		return
	}
	defer file.Close()

	filename := header.Filename
	if filename == "" {
		filename = defaultAudioFilename
	}
	ctx := r.Context()
	transcript, err := app.transcriber.Transcribe(ctx, filename, file)
	if err != nil {
		app.logger.LogAttrs(ctx, slog.LevelError, "transcription failed",
			slog.String("filename", filename), slog.Int64("size", header.Size), errors.SlogError(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, transcribeResponse{Transcript: transcript})
}
