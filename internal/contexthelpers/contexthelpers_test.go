package contexthelpers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/myrjola/phq9bot/internal/contexthelpers"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	require.Empty(t, contexthelpers.ConversationID(r.Context()))
	require.Empty(t, contexthelpers.CSRFToken(r.Context()))
	require.Empty(t, contexthelpers.CSPNonce(r.Context()))

	r = contexthelpers.SetConversationID(r, "abc")
	r = contexthelpers.SetCSRFToken(r, "token")
	r = contexthelpers.SetCSPNonce(r, "nonce")
	require.Equal(t, "abc", contexthelpers.ConversationID(r.Context()))
	require.Equal(t, "token", contexthelpers.CSRFToken(r.Context()))
	require.Equal(t, "nonce", contexthelpers.CSPNonce(r.Context()))
}
