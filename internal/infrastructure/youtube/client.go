package youtube

import (
	"context"
	"fmt"
	"io"

	"github.com/creator-studio/internal/domain"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// DefaultCategory is "People & Blogs".
const DefaultCategory = "22"

// Channel is the linked channel's public identity.
type Channel struct {
	ID        string
	Title     string
	Thumbnail string
}

// VideoMeta is what gets written to the video's snippet and status.
type VideoMeta struct {
	Title         string
	Description   string
	Tags          []string
	PrivacyStatus string
}

// Client calls the Data API with a caller-supplied access token.
type Client struct {
	opts []option.ClientOption
}

// NewClient accepts extra options, e.g. option.WithEndpoint in tests.
func NewClient(opts ...option.ClientOption) *Client {
	return &Client{opts: opts}
}

func (c *Client) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// Channel returns the channel owned by the token's account.
func (c *Client) Channel(ctx context.Context, accessToken string) (*Channel, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	resp, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list channels: %w: %v", domain.ErrUnavailable, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("account has no channel: %w", domain.ErrBadRequest)
	}
	ch := resp.Items[0]
	out := &Channel{ID: ch.Id}
	if ch.Snippet != nil {
		out.Title = ch.Snippet.Title
		if ch.Snippet.Thumbnails != nil && ch.Snippet.Thumbnails.Default != nil {
			out.Thumbnail = ch.Snippet.Thumbnails.Default.Url
		}
	}
	return out, nil
}

// Upload streams media as a new video and returns its id.
func (c *Client) Upload(ctx context.Context, accessToken string, meta VideoMeta, media io.Reader) (string, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}
	privacy := meta.PrivacyStatus
	if privacy == "" {
		privacy = "private"
	}
	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  DefaultCategory,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: privacy},
	}
	resp, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(media).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert video: %w: %v", domain.ErrUnavailable, err)
	}
	return resp.Id, nil
}

// SetThumbnail replaces the video's custom thumbnail.
func (c *Client) SetThumbnail(ctx context.Context, accessToken, videoID string, image io.Reader) error {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}
	if _, err := svc.Thumbnails.Set(videoID).Media(image).Context(ctx).Do(); err != nil {
		return fmt.Errorf("set thumbnail: %w: %v", domain.ErrUnavailable, err)
	}
	return nil
}

// WatchURL is the public link for a video id.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
