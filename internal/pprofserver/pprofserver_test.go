package pprofserver_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/myrjola/phq9bot/internal/pprofserver"
	"github.com/stretchr/testify/require"
)

func TestHandle(t *testing.T) {
	mux := http.NewServeMux()
	pprofserver.Handle(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "goroutine")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
