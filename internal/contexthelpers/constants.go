package contexthelpers

type contextKey string

const conversationIDContextKey = contextKey("conversationID")
const csrfTokenContextKey = contextKey("csrfToken")
const cspNonceContextKey = contextKey("cspNonce")
