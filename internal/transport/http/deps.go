package http

import (
	"github.com/creator-studio/internal/infrastructure/crypt"
	"github.com/creator-studio/internal/infrastructure/deepgram"
	"github.com/creator-studio/internal/infrastructure/dynamo"
	"github.com/creator-studio/internal/infrastructure/genai"
	"github.com/creator-studio/internal/infrastructure/google"
	jwtinfra "github.com/creator-studio/internal/infrastructure/jwt"
	s3infra "github.com/creator-studio/internal/infrastructure/s3"
	"github.com/creator-studio/internal/infrastructure/smtp"
	"github.com/creator-studio/internal/infrastructure/sns"
	"github.com/creator-studio/internal/infrastructure/totp"
	"github.com/creator-studio/internal/infrastructure/youtube"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	SessionRepo      *dynamo.SessionRepo
	VerificationRepo *dynamo.VerificationRepo
	NotificationRepo *dynamo.NotificationRepo
	VideoRepo        *dynamo.VideoRepo
	TaskRepo         *dynamo.TaskRepo
	TranscriptRepo   *dynamo.TranscriptRepo
	SubtitleRepo     *dynamo.SubtitleRepo
	IntegrationRepo  *dynamo.IntegrationRepo
	PublishRepo      *dynamo.PublishRepo

	S3Store        *s3infra.Store
	Mailer         smtp.Mailer
	Events         sns.EventPublisher
	JWTProvider    *jwtinfra.Provider
	GoogleVerifier *google.Verifier
	TOTP           *totp.Service
	Secrets        *crypt.Sealer
	Deepgram       *deepgram.Client
	// Model is nil when no Gemini key is configured; /analyze-video is then not mounted.
	Model        *genai.Client
	YouTubeOAuth *youtube.OAuth
	YouTubeAPI   *youtube.Client
}
