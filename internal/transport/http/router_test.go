package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/creator-studio/internal/config"
	"github.com/stretchr/testify/assert"
)

func sendN(h http.Handler, path string, n int) map[int]int {
	statuses := map[int]int{}
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "203.0.113.7:40000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses[rec.Code]++
	}
	return statuses
}

func TestRouter_EmailCallbackIsRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewRouter(ctx, &config.Config{}, &Deps{})

	statuses := sendN(h, "/v1/auth/callback/email", 30)

	assert.GreaterOrEqual(t, statuses[http.StatusUnauthorized], 10)
	assert.GreaterOrEqual(t, statuses[http.StatusTooManyRequests], 15)
}

func TestRouter_HealthCheckIsNotRateLimited(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := NewRouter(ctx, &config.Config{}, &Deps{})

	statuses := sendN(h, "/v1/health-check/ping", 30)

	assert.Equal(t, 30, statuses[http.StatusOK])
}
