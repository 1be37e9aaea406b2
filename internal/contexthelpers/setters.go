package contexthelpers

import (
	"context"
	"net/http"
)

func SetConversationID(r *http.Request, conversationID string) *http.Request {
	ctx := context.WithValue(r.Context(), conversationIDContextKey, conversationID)
	return r.WithContext(ctx)
}

func SetCSRFToken(r *http.Request, csrfToken string) *http.Request {
	ctx := context.WithValue(r.Context(), csrfTokenContextKey, csrfToken)
	return r.WithContext(ctx)
}

func SetCSPNonce(r *http.Request, cspNonce string) *http.Request {
	ctx := context.WithValue(r.Context(), cspNonceContextKey, cspNonce)
	return r.WithContext(ctx)
}
