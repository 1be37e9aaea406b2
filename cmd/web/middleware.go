package main

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/justinas/nosurf"
	"github.com/myrjola/phq9bot/internal/contexthelpers"
	"github.com/myrjola/phq9bot/internal/errors"
	"github.com/myrjola/phq9bot/internal/logging"
	"github.com/myrjola/phq9bot/internal/random"
)

const cspNonceLength = 24

func secureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce, err := random.Letters(cspNonceLength)
		if err != nil {
			// crypto/rand does not fail on supported platforms.
			panic(err)
		}
		r = contexthelpers.SetCSPNonce(r, nonce)

		w.Header().Set("Content-Security-Policy",
			fmt.Sprintf(`script-src 'nonce-%s' 'strict-dynamic';
				   object-src 'none';
				   base-uri 'none';
				   media-src 'self' blob:;
				   connect-src 'self';`, nonce))

		w.Header().Set("Referrer-Policy", "origin-when-cross-origin")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "deny")
		w.Header().Set("X-XSS-Protection", "0")

		next.ServeHTTP(w, r)
	})
}

// cors allows any origin to call the API without credentials and answers preflight requests.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Add("Vary", "Origin")
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+nosurf.HeaderName)
			w.Header().Set("Access-Control-Max-Age", "600")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (app *application) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			proto  = r.Proto
			method = r.Method
			uri    = r.URL.RequestURI()
		)

		app.logger.LogAttrs(r.Context(), slog.LevelDebug, "received request",
			slog.String("proto", proto), slog.String("method", method), slog.String("uri", uri))

		next.ServeHTTP(w, r)
	})
}

func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverError(w, r, errors.New("recovered panic", slog.Any("panic", err)))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// conversation assigns the browser session a conversation identifier on its first request and stores it in the
// request context. It must run after the session is loaded.
func (app *application) conversation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		conversationID := app.sessionManager.GetString(ctx, string(conversationIDSessionKey))
		if conversationID == "" {
			var err error
			if conversationID, err = random.Letters(conversationIDLength); err != nil {
				app.serverError(w, r, errors.Wrap(err, "generate conversation ID"))
				return
			}
			app.sessionManager.Put(ctx, string(conversationIDSessionKey), conversationID)
		}
		r = r.WithContext(logging.WithAttrs(ctx, logging.ConversationAttr(conversationID)))
		r = contexthelpers.SetConversationID(r, conversationID)
		r = contexthelpers.SetCSRFToken(r, nosurf.Token(r))
		next.ServeHTTP(w, r)
	})
}

// noSurf implements CSRF protection using https://github.com/justinas/nosurf. The chat page sends the token in the
// X-CSRF-Token header. JSON API requests are exempt, see jsonAPIRequest.
func noSurf(next http.Handler) http.Handler {
	csrfHandler := nosurf.New(next)
	csrfHandler.ExemptFunc(jsonAPIRequest)
	csrfHandler.SetBaseCookie(http.Cookie{ //nolint:exhaustruct // defaults are fine
		HttpOnly: true,
		Path:     "/",
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	csrfHandler.SetFailureHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid CSRF token. Reload the page and try again."})
	}))
	return csrfHandler
}

// jsonAPIRequest reports whether r is an API call with a JSON body. A browser only sends such a request cross-origin
// after a preflight, and cors never allows credentials, so it cannot carry the victim's session cookie.
func jsonAPIRequest(r *http.Request) bool {
	if !strings.HasPrefix(r.URL.Path, "/api/") {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
