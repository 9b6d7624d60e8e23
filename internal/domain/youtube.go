package domain

import "time"

// YouTubeIntegration is a linked channel. Tokens are stored encrypted.
// At most one integration per user has IsActive set.
type YouTubeIntegration struct {
	IntegrationID    string    `json:"id" dynamodbav:"integration_id"`
	UserID           string    `json:"user_id" dynamodbav:"user_id"`
	AccessToken      string    `json:"-" dynamodbav:"access_token"`
	RefreshToken     *string   `json:"-" dynamodbav:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at" dynamodbav:"expires_at"`
	ChannelID        string    `json:"channel_id" dynamodbav:"channel_id"`
	ChannelTitle     string    `json:"channel_title" dynamodbav:"channel_title"`
	ChannelThumbnail *string   `json:"channel_thumbnail" dynamodbav:"channel_thumbnail"`
	IsActive         bool      `json:"is_active" dynamodbav:"is_active"`
	CreatedAt        time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt        time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Usable reports whether the integration can publish at now.
func (i *YouTubeIntegration) Usable(now time.Time) bool {
	return i.IsActive && i.ExpiresAt.After(now)
}

// Publish outcomes recorded on a YouTubeUpload.
const (
	UploadPublished = "PUBLISHED"
	UploadFailed    = "FAILED"
)

type YouTubeUpload struct {
	UploadID       string    `json:"id" dynamodbav:"upload_id"`
	VideoID        string    `json:"video_id" dynamodbav:"video_id"`
	IntegrationID  string    `json:"integration_id" dynamodbav:"integration_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	YouTubeVideoID *string   `json:"youtube_video_id" dynamodbav:"youtube_video_id"`
	YouTubeURL     *string   `json:"youtube_url" dynamodbav:"youtube_url"`
	Title          string    `json:"title" dynamodbav:"title"`
	Description    string    `json:"description" dynamodbav:"description"`
	PrivacyStatus  string    `json:"privacy_status" dynamodbav:"privacy_status"`
	Tags           []string  `json:"tags" dynamodbav:"tags"`
	Status         string    `json:"status" dynamodbav:"status"`
	ErrorMessage   *string   `json:"error_message" dynamodbav:"error_message"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
}
