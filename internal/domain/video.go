package domain

import "time"

type Video struct {
	VideoID      string    `json:"id" dynamodbav:"video_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	S3Key        string    `json:"s3_key" dynamodbav:"s3_key"`
	Name         string    `json:"name" dynamodbav:"name"`
	ContentType  string    `json:"content_type" dynamodbav:"content_type"`
	Title        *string   `json:"title" dynamodbav:"title"`
	Description  *string   `json:"description" dynamodbav:"description"`
	ThumbnailKey *string   `json:"thumbnail_key" dynamodbav:"thumbnail_key"`
	IsUploaded   bool      `json:"is_uploaded" dynamodbav:"is_uploaded"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type Transcript struct {
	TranscriptID string    `json:"id" dynamodbav:"transcript_id"`
	VideoID      string    `json:"video_id" dynamodbav:"video_id"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	S3Key        string    `json:"s3_key" dynamodbav:"s3_key"`
	RawText      *string   `json:"raw_text" dynamodbav:"raw_text"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
}

type Subtitle struct {
	SubtitleID string        `json:"id" dynamodbav:"subtitle_id"`
	VideoID    string        `json:"video_id" dynamodbav:"video_id"`
	UserID     string        `json:"user_id" dynamodbav:"user_id"`
	Format     CaptionFormat `json:"format" dynamodbav:"format"`
	S3Key      string        `json:"s3_key" dynamodbav:"s3_key"`
	RawText    *string       `json:"raw_text" dynamodbav:"raw_text"`
	CreatedAt  time.Time     `json:"created" dynamodbav:"created_at"`
}

// CaptionFormat is the serialization of a caption track.
type CaptionFormat string

const (
	CaptionWebVTT CaptionFormat = "webvtt"
	CaptionSRT    CaptionFormat = "srt"
)

// ParseCaptionFormat defaults to WebVTT when s is empty.
func ParseCaptionFormat(s string) (CaptionFormat, bool) {
	switch CaptionFormat(s) {
	case "", CaptionWebVTT:
		return CaptionWebVTT, true
	case CaptionSRT:
		return CaptionSRT, true
	}
	return "", false
}

// UploadType selects what a presigned upload URL is issued for.
type UploadType string

const (
	UploadVideo      UploadType = "video"
	UploadTranscript UploadType = "transcript"
	UploadSubtitle   UploadType = "subtitle"
)
