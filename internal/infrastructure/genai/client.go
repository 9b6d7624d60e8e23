// Package genai wraps the Gemini and Imagen models used for video analysis.
package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/creator-studio/internal/domain"
	"google.golang.org/genai"
)

// Client calls a text model and an image model.
type Client struct {
	client     *genai.Client
	textModel  string
	imageModel string
}

func NewClient(ctx context.Context, apiKey, textModel, imageModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is not configured")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: c, textModel: textModel, imageModel: imageModel}, nil
}

// Describe sends the JPEG frames followed by prompt and returns the text reply.
func (c *Client) Describe(ctx context.Context, prompt string, frames [][]byte) (string, error) {
	parts := make([]*genai.Part, 0, len(frames)+1)
	for _, f := range frames {
		parts = append(parts, genai.NewPartFromBytes(f, "image/jpeg"))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	resp, err := c.client.Models.GenerateContent(ctx, c.textModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w: %v", domain.ErrUnavailable, err)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("model returned no text: %w", domain.ErrUnavailable)
	}
	return text, nil
}

// Images generates n 16:9 images for prompt and returns their raw bytes.
func (c *Client) Images(ctx context.Context, prompt string, n int) ([][]byte, error) {
	resp, err := c.client.Models.GenerateImages(ctx, c.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(n),
		AspectRatio:    "16:9",
	})
	if err != nil {
		return nil, fmt.Errorf("generate images: %w: %v", domain.ErrUnavailable, err)
	}
	out := make([][]byte, 0, len(resp.GeneratedImages))
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		out = append(out, img.Image.ImageBytes)
	}
	return out, nil
}
