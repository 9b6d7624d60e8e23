package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	PublicBaseURL  string
	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	UploadURLTTL   time.Duration

	JWTPrivateKeyPath  string
	JWTPublicKeyPath   string
	JWTExpiry          time.Duration
	ChallengeExpiry    time.Duration
	RefreshTokenExpiry time.Duration

	OTPExpiry   time.Duration
	TOTPIssuer  string
	BackupCodes int
	// EncryptionKey is a hex-encoded 32-byte AES-256 key for secrets at rest.
	EncryptionKey string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion        string
	SNSTaskTopicARN  string
	GoogleClientID   string
	GoogleSecret     string
	YouTubeRedirect  string
	DeepgramAPIKey   string
	DeepgramBaseURL  string
	GeminiAPIKey     string
	GeminiModel      string
	ImagenModel      string
	MaxMediaBytes    int64
	AllowedOrigins   []string // CORS allowed origins
	MetricsNamespace string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users               string
	Sessions            string
	Verifications       string
	Notifications       string
	Videos              string
	Transcripts         string
	Subtitles           string
	VideoTasks          string
	YouTubeIntegrations string
	YouTubeUploads      string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:               getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:            getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			Verifications:       getEnv("DYNAMO_TABLE_VERIFICATIONS", "verifications"),
			Notifications:       getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Videos:              getEnv("DYNAMO_TABLE_VIDEOS", "videos"),
			Transcripts:         getEnv("DYNAMO_TABLE_TRANSCRIPTS", "transcripts"),
			Subtitles:           getEnv("DYNAMO_TABLE_SUBTITLES", "subtitles"),
			VideoTasks:          getEnv("DYNAMO_TABLE_VIDEO_TASKS", "video_tasks"),
			YouTubeIntegrations: getEnv("DYNAMO_TABLE_YOUTUBE_INTEGRATIONS", "youtube_integrations"),
			YouTubeUploads:      getEnv("DYNAMO_TABLE_YOUTUBE_UPLOADS", "youtube_uploads"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "creator-studio-media"),
		UploadURLTTL: getEnvDuration("UPLOAD_URL_TTL", time.Hour),

		JWTPrivateKeyPath:  getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:   getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:          time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,
		ChallengeExpiry:    getEnvDuration("CHALLENGE_EXPIRY", 5*time.Minute),
		RefreshTokenExpiry: time.Duration(getEnvInt("REFRESH_TOKEN_EXPIRY_DAYS", 30)) * 24 * time.Hour,

		OTPExpiry:     getEnvDuration("OTP_EXPIRY", 3*time.Minute),
		TOTPIssuer:    getEnv("TOTP_ISSUER", "Creator Studio"),
		BackupCodes:   getEnvInt("BACKUP_CODE_COUNT", 10),
		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:        getEnv("SNS_REGION", "us-east-1"),
		SNSTaskTopicARN:  getEnv("SNS_TASK_TOPIC_ARN", ""),
		GoogleClientID:   getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleSecret:     getEnv("GOOGLE_CLIENT_SECRET", ""),
		YouTubeRedirect:  getEnv("YOUTUBE_REDIRECT_URL", "http://localhost:3000/v1/youtube/callback"),
		DeepgramAPIKey:   getEnv("DEEPGRAM_API_KEY", ""),
		DeepgramBaseURL:  getEnv("DEEPGRAM_BASE_URL", "https://api.deepgram.com"),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		ImagenModel:      getEnv("IMAGEN_MODEL", "imagen-4.0-generate-preview-06-06"),
		MaxMediaBytes:    int64(getEnvInt("MAX_MEDIA_MB", 100)) << 20,
		AllowedOrigins:   strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		MetricsNamespace: getEnv("METRICS_SERVICE_NAME", "creator-studio"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
