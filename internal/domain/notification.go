package domain

import "time"

type Notification struct {
	NotificationID string    `json:"id" dynamodbav:"notification_id"`
	UserID         string    `json:"user_id" dynamodbav:"user_id"`
	VideoID        *string   `json:"video_id" dynamodbav:"video_id"`
	Kind           string    `json:"kind" dynamodbav:"kind"`
	Message        string    `json:"message" dynamodbav:"message"`
	Read           int       `json:"read" dynamodbav:"is_read"`
	CreatedAt      time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time `json:"updated" dynamodbav:"updated_at"`
}

// Notification kinds.
const (
	NotifyTaskAdvanced = "task_advanced"
	NotifyPublished    = "published"
	NotifyPublishError = "publish_failed"
)
