package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/creator-studio/internal/config"
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
	"github.com/creator-studio/internal/observability/metrics"
	transporthttp "github.com/creator-studio/internal/transport/http"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	metrics.MustRegister(cfg.MetricsNamespace)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	// JWT provider is optional; authenticated routes are unusable without it.
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	sealer, err := crypt.NewSealer(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("encryption key: %v", err)
	}

	events, err := sns.NewPublisher(cfg)
	if err != nil {
		log.Printf("WARN: SNS publisher not available: %v", err)
		events = sns.Noop{}
	}

	model, err := genai.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.ImagenModel)
	if err != nil {
		log.Printf("WARN: video analysis disabled: %v", err)
	}

	s3Store := s3infra.NewStore(s3infra.NewClient(cfg), cfg.S3BucketName)

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.Verifications),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		VideoRepo:        dynamo.NewVideoRepo(dynamoClient, cfg.DynamoTables.Videos, cfg.DynamoTables.VideoTasks),
		TaskRepo:         dynamo.NewTaskRepo(dynamoClient, cfg.DynamoTables.VideoTasks),
		TranscriptRepo:   dynamo.NewTranscriptRepo(dynamoClient, cfg.DynamoTables.Transcripts),
		SubtitleRepo:     dynamo.NewSubtitleRepo(dynamoClient, cfg.DynamoTables.Subtitles),
		IntegrationRepo:  dynamo.NewIntegrationRepo(dynamoClient, cfg.DynamoTables.YouTubeIntegrations),
		PublishRepo:      dynamo.NewPublishRepo(dynamoClient, cfg.DynamoTables.YouTubeUploads),

		S3Store:        s3Store,
		Mailer:         smtp.NewMailer(cfg),
		Events:         events,
		JWTProvider:    jwtProvider,
		GoogleVerifier: google.NewVerifier(cfg.GoogleClientID),
		TOTP:           totp.NewService(cfg.TOTPIssuer),
		Secrets:        sealer,
		Deepgram:       deepgram.NewClient(cfg.DeepgramBaseURL, cfg.DeepgramAPIKey),
		Model:          model,
		YouTubeOAuth:   youtube.NewOAuth(cfg.GoogleClientID, cfg.GoogleSecret, cfg.YouTubeRedirect),
		YouTubeAPI:     youtube.NewClient(),
	}

	router := transporthttp.NewRouter(ctx, cfg, deps)

	// Media routes carry large multipart bodies and wait on transcription.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
