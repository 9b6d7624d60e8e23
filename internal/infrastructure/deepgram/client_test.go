package deepgram

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/creator-studio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "metadata": {"request_id": "r1", "duration": 2.5},
  "results": {
    "channels": [{"alternatives": [{"transcript": "hello there world", "confidence": 0.9, "words": []}]}],
    "utterances": [{"start": 0, "end": 1, "transcript": "hello there world", "words": [{"word": "hello", "start": 0, "end": 0.5}]}]
  }
}`

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/listen", r.URL.Path)
		assert.Equal(t, "Token k", r.Header.Get("Authorization"))
		assert.Equal(t, "audio/wav", r.Header.Get("Content-Type"))
		assert.Equal(t, "nova", r.URL.Query().Get("model"))
		assert.Equal(t, "true", r.URL.Query().Get("utterances"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "media", string(body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sample))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "k")
	resp, err := c.Transcribe(context.Background(), strings.NewReader("media"), "audio/wav", Options{Utterances: true})
	require.NoError(t, err)
	assert.Equal(t, "hello there world", resp.Transcript())
	assert.Equal(t, 3, resp.WordCount())
	assert.Equal(t, 0.9, resp.Confidence())
	require.Len(t, resp.Results.Utterances, 1)
}

func TestTranscribe_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").Transcribe(context.Background(), strings.NewReader("x"), "", Options{})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestTranscribe_NoAlternatives(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":{"channels":[]}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "k").Transcribe(context.Background(), strings.NewReader("x"), "", Options{})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
