package contexthelpers

import (
	"context"
)

// ConversationID returns the identifier of the conversation the request belongs to, or "" outside one.
func ConversationID(ctx context.Context) string {
	conversationID, ok := ctx.Value(conversationIDContextKey).(string)
	if !ok {
		return ""
	}

	return conversationID
}

func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}

func CSPNonce(ctx context.Context) string {
	cspNonce, ok := ctx.Value(cspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return cspNonce
}
