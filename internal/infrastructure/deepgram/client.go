// Package deepgram calls the Deepgram pre-recorded transcription API.
package deepgram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/creator-studio/internal/domain"
)

// Options selects optional response features.
type Options struct {
	// Utterances requests utterance segmentation, needed for caption timing.
	Utterances bool
}

// Client is a thin HTTP client over /v1/listen.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// Transcribe uploads media and decodes the result.
func (c *Client) Transcribe(ctx context.Context, media io.Reader, contentType string, opts Options) (*Response, error) {
	q := url.Values{}
	q.Set("model", "nova")
	q.Set("language", "en-US")
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	q.Set("diarize", "false")
	q.Set("utterances", fmt.Sprint(opts.Utterances))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/listen?"+q.Encode(), media)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram request: %w: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("deepgram status %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrUnavailable)
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode deepgram response: %w", domain.ErrUnavailable)
	}
	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("deepgram returned no alternatives: %w", domain.ErrUnavailable)
	}
	return &out, nil
}
