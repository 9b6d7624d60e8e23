package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func healthRouter(checks map[string]Check) http.Handler {
	h := NewHealthHandler(checks)
	r := chi.NewRouter()
	r.Get("/health-check/{action}", h.Ping)
	return r
}

func TestHealth_Ping(t *testing.T) {
	rr := httptest.NewRecorder()
	healthRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

func TestHealth_UnknownAction(t *testing.T) {
	rr := httptest.NewRecorder()
	healthRouter(nil).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/test", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealth_Ready(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("bucket missing") }

	t.Run("all healthy", func(t *testing.T) {
		rr := httptest.NewRecorder()
		healthRouter(map[string]Check{"dynamodb": ok, "s3": ok}).
			ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/ready", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		var env ReadyEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		assert.Equal(t, "ok", env.Status)
		assert.Equal(t, map[string]string{"dynamodb": "ok", "s3": "ok"}, env.Checks)
	})

	t.Run("one failing", func(t *testing.T) {
		rr := httptest.NewRecorder()
		healthRouter(map[string]Check{"dynamodb": ok, "s3": down}).
			ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health-check/ready", nil))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var env ReadyEnvelope
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
		assert.Equal(t, "degraded", env.Status)
		assert.Equal(t, "bucket missing", env.Checks["s3"])
	})
}
