package http

import (
	"context"
	"net/http"
	"time"

	"github.com/creator-studio/internal/application/analysis"
	"github.com/creator-studio/internal/application/auth"
	"github.com/creator-studio/internal/application/notification"
	"github.com/creator-studio/internal/application/publish"
	"github.com/creator-studio/internal/application/session"
	"github.com/creator-studio/internal/application/transcription"
	"github.com/creator-studio/internal/application/twofactor"
	"github.com/creator-studio/internal/application/user"
	"github.com/creator-studio/internal/application/video"
	"github.com/creator-studio/internal/config"
	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/transport/http/handler"
	appmiddleware "github.com/creator-studio/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

const jobSweepInterval = 10 * time.Minute

// NewRouter builds the application router. Background work started here
// (rate-limiter cleanup, async job sweeping) stops when ctx is done.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Processing-Time"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second with a burst of 10 on the public sign-in endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	notifSvc := notification.NewService(deps.NotificationRepo)
	authSvc := auth.NewService(auth.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		UserRepo:         deps.UserRepo,
		SessionRepo:      deps.SessionRepo,
		Mailer:           deps.Mailer,
		JWTProvider:      deps.JWTProvider,
		GoogleVerifier:   deps.GoogleVerifier,
		TOTP:             deps.TOTP,
		Secrets:          deps.Secrets,
		OTPExpiry:        cfg.OTPExpiry,
		RefreshTokenDur:  cfg.RefreshTokenExpiry,
	})
	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		UserRepo:        deps.UserRepo,
		JWTProvider:     deps.JWTProvider,
		RefreshTokenDur: cfg.RefreshTokenExpiry,
	})
	twoFactorSvc := twofactor.NewService(twofactor.ServiceDeps{
		UserRepo:    deps.UserRepo,
		TOTP:        deps.TOTP,
		Secrets:     deps.Secrets,
		BackupCodes: cfg.BackupCodes,
	})
	userSvc := user.NewService(user.ServiceDeps{
		UserRepo:    deps.UserRepo,
		SessionRepo: deps.SessionRepo,
	})
	videoSvc := video.NewService(video.ServiceDeps{
		VideoRepo:      deps.VideoRepo,
		TaskRepo:       deps.TaskRepo,
		TranscriptRepo: deps.TranscriptRepo,
		SubtitleRepo:   deps.SubtitleRepo,
		Storage:        deps.S3Store,
		Notifier:       notifSvc,
		Events:         deps.Events,
		UploadURLTTL:   cfg.UploadURLTTL,
	})
	transcriptionSvc := transcription.NewService(transcription.ServiceDeps{
		Transcriber:    deps.Deepgram,
		VideoRepo:      deps.VideoRepo,
		TranscriptRepo: deps.TranscriptRepo,
		SubtitleRepo:   deps.SubtitleRepo,
		Storage:        deps.S3Store,
		Tasks:          videoSvc,
		MaxMediaBytes:  cfg.MaxMediaBytes,
	})
	go transcriptionSvc.RunJanitor(ctx, jobSweepInterval)
	publishSvc := publish.NewService(publish.ServiceDeps{
		OAuth:           deps.YouTubeOAuth,
		YouTube:         deps.YouTubeAPI,
		IntegrationRepo: deps.IntegrationRepo,
		PublishRepo:     deps.PublishRepo,
		VideoRepo:       deps.VideoRepo,
		Storage:         deps.S3Store,
		Secrets:         deps.Secrets,
		Notifier:        notifSvc,
	})
	var analysisSvc analysis.Service
	if deps.Model != nil {
		analysisSvc = analysis.NewService(analysis.ServiceDeps{
			Model:          deps.Model,
			VideoRepo:      deps.VideoRepo,
			TranscriptRepo: deps.TranscriptRepo,
		})
	}

	checks := map[string]handler.Check{}
	if deps.UserRepo != nil {
		checks["dynamodb"] = deps.UserRepo.Ping
	}
	if deps.S3Store != nil {
		checks["s3"] = deps.S3Store.Ping
	}

	healthH := handler.NewHealthHandler(checks)
	authH := handler.NewAuthHandler(authSvc)
	sessionH := handler.NewSessionHandler(authSvc, sessionSvc)
	twoFactorH := handler.NewTwoFactorHandler(twoFactorSvc)
	userH := handler.NewUserHandler(userSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	videoH := handler.NewVideoHandler(videoSvc)
	mediaH := handler.NewMediaHandler(transcriptionSvc, analysisSvc, cfg.MaxMediaBytes)
	youtubeH := handler.NewYouTubeHandler(publishSvc, cfg.PublicBaseURL)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		// Public routes
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.Get("/youtube/callback", youtubeH.Callback)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/auth/check-user", authH.CheckUser)
			r.Post("/auth/otp", authH.IssueOTP)
			r.Get("/auth/callback/email", authH.EmailCallback)
			r.Post("/auth/2fa/verify", authH.VerifySecondFactor)
			r.Post("/sessions/credentials", sessionH.Credentials)
			r.Post("/sessions/google", sessionH.Google)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Post("/2fa/setup", twoFactorH.Setup)
			r.Post("/2fa/verify-setup", twoFactorH.VerifySetup)
			r.Post("/2fa/enable", twoFactorH.Enable)
			r.Post("/2fa/disable", twoFactorH.Disable)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)
			r.Delete("/users/{id}", userH.Delete)
			r.Get("/notifications", notifH.ListUnread)
			r.Put("/notifications/read-all", notifH.MarkAllAsRead)
			r.Put("/notifications/{id}", notifH.MarkAsRead)

			r.Post("/upload", videoH.RequestUpload)
			r.Get("/videos", videoH.List)
			r.Get("/videos/{id}", videoH.Get)
			r.Post("/videos/{id}/generate", videoH.ConfirmUpload)
			r.Post("/update-video", videoH.UpdateMetadata)

			r.Post("/transcribe", mediaH.Transcribe)
			r.Post("/transcribe-async", mediaH.TranscribeAsync)
			r.Get("/transcribe-async", mediaH.JobStatus)
			r.Post("/captions", mediaH.Captions)
			if analysisSvc != nil {
				r.Post("/analyze-video", mediaH.Analyze)
			}

			r.Get("/youtube/connect", youtubeH.Connect)
			r.Get("/youtube/status", youtubeH.Status)
			r.Delete("/youtube/status", youtubeH.Disconnect)
			r.Post("/youtube/refresh", youtubeH.Refresh)
			r.Post("/youtube/upload", youtubeH.Upload)
			r.Get("/youtube/upload", youtubeH.History)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
			})
		})
	})

	return r
}
