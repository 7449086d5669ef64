package wodstrat_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-wodstrat"
)

func TestErrorHandler_HidesInternalMessages(t *testing.T) {
	handler := wodstrat.NewErrorHandler(MockLogger{})
	rec := httptest.NewRecorder()

	handler(rec, httptest.NewRequest(http.MethodGet, "/x", nil), errors.New("pq: password authentication failed"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body wodstrat.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotContains(t, body.Error.Message, "pq:")
	assert.Equal(t, wodstrat.TextCodeInternal, body.Error.TextCode)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRecoveryMiddleware(t *testing.T) {
	mw := wodstrat.NewRecoveryMiddleware(MockLogger{}, wodstrat.NewErrorHandler(MockLogger{}))
	h := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("unknown origin passes through without headers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.test")

		wodstrat.NewCORSMiddleware([]string{"https://app.test"})(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("wildcard echoes origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://any.test")

		wodstrat.NewCORSMiddleware([]string{"*"})(next).ServeHTTP(rec, req)

		assert.Equal(t, "https://any.test", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})
}

func TestIPRateLimiter(t *testing.T) {
	limiter := wodstrat.NewIPRateLimiter(0.001, 1)

	assert.Same(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.1"))
	assert.NotSame(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.2"))

	h := limiter.Middleware(wodstrat.NewErrorHandler(MockLogger{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("192.168.1.1:5000"))
	assert.Equal(t, http.StatusTooManyRequests, call("192.168.1.1:5001"), "port does not matter")
	assert.Equal(t, http.StatusOK, call("192.168.1.2:5000"))
}
