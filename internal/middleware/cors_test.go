package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func corsRequest(t *testing.T, mw gin.HandlerFunc, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/api/v1/chats", nil)
	if origin != "" {
		c.Request.Header.Set("Origin", origin)
	}
	mw(c)
	return w
}

func TestCORS_AllowAllByDefault(t *testing.T) {
	w := corsRequest(t, CORS(nil), http.MethodGet, "https://app.example.com")
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, corsMaxAge, w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_AllowlistedOriginEchoed(t *testing.T) {
	mw := CORS([]string{"https://app.example.com"})
	w := corsRequest(t, mw, http.MethodGet, "https://app.example.com")
	require.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))

	w = corsRequest(t, mw, http.MethodGet, "https://evil.example.com")
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	w := corsRequest(t, CORS(nil), http.MethodOptions, "https://app.example.com")
	require.Equal(t, 204, w.Code)
}
