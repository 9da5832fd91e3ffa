package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/trusteelab/vpass/pkg/cryptox"
)

func TestRequireServiceToken(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.HashCredential("callcenter-service-token")
	require.NoError(t, err)

	var reached bool
	handler := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}), RequireServiceToken(hash))

	t.Run("missing token is rejected", func(t *testing.T) {
		reached = false
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.False(t, reached)
	})

	t.Run("wrong token is rejected", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ServiceTokenHeader, "guessed-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.False(t, reached)
	})

	t.Run("correct token passes", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(ServiceTokenHeader, "callcenter-service-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, reached)
	})
}
