package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/infrastructure/youtube"
	"github.com/creator-studio/internal/observability/metrics"
	"github.com/creator-studio/internal/pkg/id"
	"github.com/creator-studio/internal/pkg/token"
	"golang.org/x/oauth2"
)

const (
	stateTTL       = 10 * time.Minute
	defaultPrivacy = "private"
)

// Messages surfaced to the caller verbatim.
const (
	msgNotConnected = "YouTube account not connected or token expired"
	msgBadToken     = "Invalid access token. Please reconnect your YouTube account."
)

type UploadRequest struct {
	VideoID       string   `json:"videoId" validate:"required"`
	Title         string   `json:"title" validate:"required,max=100"`
	Description   string   `json:"description" validate:"max=5000"`
	Thumbnail     string   `json:"thumbnailBase64"`
	PrivacyStatus string   `json:"privacyStatus" validate:"omitempty,oneof=private public unlisted"`
	Tags          []string `json:"tags"`
}

type Result struct {
	Success        bool   `json:"success"`
	YouTubeURL     string `json:"youtubeUrl"`
	YouTubeVideoID string `json:"youtubeVideoId"`
	UploadID       string `json:"uploadId"`
	ChannelTitle   string `json:"channelTitle"`
}

// DuplicateError carries the URL of the earlier upload of the same video.
type DuplicateError struct {
	YouTubeURL string
}

func (e *DuplicateError) Error() string {
	return "video already uploaded to this YouTube channel"
}

func (e *DuplicateError) Unwrap() error { return domain.ErrConflict }

type ChannelInfo struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type Status struct {
	Connected bool         `json:"connected"`
	Channel   *ChannelInfo `json:"channel,omitempty"`
}

type Service interface {
	// Connect returns the consent URL. The state parameter is sealed and bound to p.
	Connect(ctx context.Context, p domain.Principal) (string, error)
	Callback(ctx context.Context, code, state string) (*domain.YouTubeIntegration, error)
	Status(ctx context.Context, p domain.Principal) (*Status, error)
	Disconnect(ctx context.Context, p domain.Principal) error
	// Refresh renews the active integration's access token from its refresh token.
	Refresh(ctx context.Context, p domain.Principal) (*Status, error)
	Upload(ctx context.Context, p domain.Principal, req UploadRequest) (*Result, error)
	History(ctx context.Context, p domain.Principal) ([]domain.YouTubeUpload, error)
}

type oauthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type channelAPI interface {
	Channel(ctx context.Context, accessToken string) (*youtube.Channel, error)
	Upload(ctx context.Context, accessToken string, meta youtube.VideoMeta, media io.Reader) (string, error)
	SetThumbnail(ctx context.Context, accessToken, videoID string, image io.Reader) error
}

type integrationStore interface {
	Put(ctx context.Context, i *domain.YouTubeIntegration) error
	Active(ctx context.Context, userID string) (*domain.YouTubeIntegration, error)
	DeactivateAll(ctx context.Context, userID string) error
	UpdateTokens(ctx context.Context, integrationID, accessToken string, expiresAt time.Time) error
}

type uploadStore interface {
	Put(ctx context.Context, u *domain.YouTubeUpload) error
	FindByVideoAndIntegration(ctx context.Context, videoID, integrationID string) (*domain.YouTubeUpload, error)
	ListByUser(ctx context.Context, userID string) ([]domain.YouTubeUpload, error)
}

type videoStore interface {
	GetOwned(ctx context.Context, videoID, userID string) (*domain.Video, error)
}

type objectStore interface {
	Download(ctx context.Context, key string) (io.ReadCloser, error)
}

type sealer interface {
	Encrypt(plain string) (string, error)
	Decrypt(sealed string) (string, error)
}

type notifier interface {
	Notify(ctx context.Context, userID string, videoID *string, kind, message string)
}

type service struct {
	oauth        oauthFlow
	api          channelAPI
	integrations integrationStore
	uploads      uploadStore
	videos       videoStore
	objects      objectStore
	secrets      sealer
	notifier     notifier
	now          func() time.Time
}

type ServiceDeps struct {
	OAuth           oauthFlow
	YouTube         channelAPI
	IntegrationRepo integrationStore
	PublishRepo     uploadStore
	VideoRepo       videoStore
	Storage         objectStore
	Secrets         sealer
	Notifier        notifier
	Now             func() time.Time
}

func NewService(deps ServiceDeps) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		oauth:        deps.OAuth,
		api:          deps.YouTube,
		integrations: deps.IntegrationRepo,
		uploads:      deps.PublishRepo,
		videos:       deps.VideoRepo,
		objects:      deps.Storage,
		secrets:      deps.Secrets,
		notifier:     deps.Notifier,
		now:          now,
	}
}

func (s *service) Connect(_ context.Context, p domain.Principal) (string, error) {
	nonce, err := token.URLSafe(12)
	if err != nil {
		return "", err
	}
	exp := s.now().Add(stateTTL).Unix()
	state, err := s.secrets.Encrypt(strings.Join([]string{p.UserID, strconv.FormatInt(exp, 10), nonce}, "|"))
	if err != nil {
		return "", fmt.Errorf("seal oauth state: %w", err)
	}
	return s.oauth.AuthURL(state), nil
}

// openState returns the user id sealed into state by Connect.
func (s *service) openState(state string) (string, error) {
	plain, err := s.secrets.Decrypt(state)
	if err != nil {
		return "", fmt.Errorf("invalid oauth state: %w", domain.ErrUnauthorized)
	}
	parts := strings.Split(plain, "|")
	if len(parts) != 3 {
		return "", fmt.Errorf("malformed oauth state: %w", domain.ErrUnauthorized)
	}
	userID := parts[0]
	exp, convErr := strconv.ParseInt(parts[1], 10, 64)
	if userID == "" || convErr != nil {
		return "", fmt.Errorf("malformed oauth state: %w", domain.ErrUnauthorized)
	}
	if s.now().Unix() > exp {
		return "", fmt.Errorf("oauth state expired: %w", domain.ErrUnauthorized)
	}
	return userID, nil
}

func (s *service) Callback(ctx context.Context, code, state string) (*domain.YouTubeIntegration, error) {
	if code == "" || state == "" {
		return nil, fmt.Errorf("missing code or state: %w", domain.ErrBadRequest)
	}
	userID, err := s.openState(state)
	if err != nil {
		return nil, err
	}
	tok, err := s.oauth.Exchange(ctx, code)
	metrics.CollaboratorCallsTotal.WithLabelValues("youtube", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	ch, err := s.api.Channel(ctx, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	access, err := s.secrets.Encrypt(tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}
	var refresh *string
	if tok.RefreshToken != "" {
		sealed, err := s.secrets.Encrypt(tok.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("seal refresh token: %w", err)
		}
		refresh = &sealed
	}

	if err := s.integrations.DeactivateAll(ctx, userID); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = now.Add(time.Hour)
	}
	title := ch.Title
	if title == "" {
		title = "Unknown Channel"
	}
	integration := &domain.YouTubeIntegration{
		IntegrationID: id.New(),
		UserID:        userID,
		AccessToken:   access,
		RefreshToken:  refresh,
		ExpiresAt:     expiresAt.UTC(),
		ChannelID:     ch.ID,
		ChannelTitle:  title,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if ch.Thumbnail != "" {
		integration.ChannelThumbnail = &ch.Thumbnail
	}
	if err := s.integrations.Put(ctx, integration); err != nil {
		return nil, err
	}
	slog.Info("youtube channel linked", "user_id", userID, "channel_id", ch.ID)
	return integration, nil
}

// usable returns the active, unexpired integration or nil.
func (s *service) usable(ctx context.Context, userID string) (*domain.YouTubeIntegration, error) {
	in, err := s.integrations.Active(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !in.Usable(s.now()) {
		return nil, nil
	}
	return in, nil
}

func (s *service) Status(ctx context.Context, p domain.Principal) (*Status, error) {
	in, err := s.usable(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return &Status{Connected: false}, nil
	}
	return &Status{
		Connected: true,
		Channel:   &ChannelInfo{ID: in.ChannelID, Title: in.ChannelTitle, ConnectedAt: in.CreatedAt},
	}, nil
}

func (s *service) Disconnect(ctx context.Context, p domain.Principal) error {
	return s.integrations.DeactivateAll(ctx, p.UserID)
}

func (s *service) Refresh(ctx context.Context, p domain.Principal) (*Status, error) {
	in, err := s.integrations.Active(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if in.RefreshToken == nil || *in.RefreshToken == "" {
		return nil, fmt.Errorf("no refresh token stored, reconnect the channel: %w", domain.ErrBadRequest)
	}
	rt, err := s.secrets.Decrypt(*in.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msgBadToken, domain.ErrBadRequest)
	}
	tok, err := s.oauth.Refresh(ctx, rt)
	metrics.CollaboratorCallsTotal.WithLabelValues("youtube", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	access, err := s.secrets.Encrypt(tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("seal access token: %w", err)
	}
	expiresAt := tok.Expiry
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(time.Hour)
	}
	if err := s.integrations.UpdateTokens(ctx, in.IntegrationID, access, expiresAt.UTC()); err != nil {
		return nil, err
	}
	return &Status{
		Connected: true,
		Channel:   &ChannelInfo{ID: in.ChannelID, Title: in.ChannelTitle, ConnectedAt: in.CreatedAt},
	}, nil
}

func (s *service) Upload(ctx context.Context, p domain.Principal, req UploadRequest) (*Result, error) {
	in, err := s.usable(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("%s: %w", msgNotConnected, domain.ErrBadRequest)
	}
	v, err := s.videos.GetOwned(ctx, req.VideoID, p.UserID)
	if err != nil {
		return nil, err
	}
	prior, err := s.uploads.FindByVideoAndIntegration(ctx, v.VideoID, in.IntegrationID)
	switch {
	case err == nil && prior.Status == domain.UploadFailed:
		slog.Info("retrying failed youtube upload", "video_id", v.VideoID, "upload_id", prior.UploadID)
	case err == nil:
		dup := &DuplicateError{}
		if prior.YouTubeURL != nil {
			dup.YouTubeURL = *prior.YouTubeURL
		}
		return nil, dup
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	accessToken, err := s.secrets.Decrypt(in.AccessToken)
	if err != nil {
		slog.Warn("failed to decrypt youtube access token", "integration_id", in.IntegrationID, "err", err)
		return nil, fmt.Errorf("%s: %w", msgBadToken, domain.ErrBadRequest)
	}

	privacy := req.PrivacyStatus
	if privacy == "" {
		privacy = defaultPrivacy
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	record := &domain.YouTubeUpload{
		UploadID:      id.New(),
		VideoID:       v.VideoID,
		IntegrationID: in.IntegrationID,
		UserID:        p.UserID,
		Title:         req.Title,
		Description:   req.Description,
		PrivacyStatus: privacy,
		Tags:          tags,
		CreatedAt:     s.now().UTC(),
	}

	ytID, err := s.push(ctx, accessToken, v, youtube.VideoMeta{
		Title:         req.Title,
		Description:   req.Description,
		Tags:          tags,
		PrivacyStatus: privacy,
	})
	if err != nil {
		msg := err.Error()
		record.Status = domain.UploadFailed
		record.ErrorMessage = &msg
		if perr := s.uploads.Put(ctx, record); perr != nil {
			slog.Warn("failed to record failed youtube upload", "video_id", v.VideoID, "err", perr)
		}
		s.notifier.Notify(ctx, p.UserID, &v.VideoID, domain.NotifyPublishError, "Publishing \""+req.Title+"\" to YouTube failed")
		return nil, err
	}

	if req.Thumbnail != "" {
		s.setThumbnail(ctx, accessToken, ytID, req.Thumbnail)
	}

	url := youtube.WatchURL(ytID)
	record.Status = domain.UploadPublished
	record.YouTubeVideoID = &ytID
	record.YouTubeURL = &url
	if err := s.uploads.Put(ctx, record); err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, p.UserID, &v.VideoID, domain.NotifyPublished, "\""+req.Title+"\" is live on YouTube")
	slog.Info("video published to youtube", "video_id", v.VideoID, "youtube_video_id", ytID)

	return &Result{
		Success:        true,
		YouTubeURL:     url,
		YouTubeVideoID: ytID,
		UploadID:       record.UploadID,
		ChannelTitle:   in.ChannelTitle,
	}, nil
}

// push streams the stored object to YouTube.
func (s *service) push(ctx context.Context, accessToken string, v *domain.Video, meta youtube.VideoMeta) (string, error) {
	body, err := s.objects.Download(ctx, v.S3Key)
	if err != nil {
		return "", err
	}
	defer body.Close()

	start := time.Now()
	ytID, err := s.api.Upload(ctx, accessToken, meta, body)
	metrics.CollaboratorCallsTotal.WithLabelValues("youtube", metrics.Result(err)).Inc()
	metrics.CollaboratorDurationSeconds.WithLabelValues("youtube").Observe(time.Since(start).Seconds())
	return ytID, err
}

// setThumbnail is best effort; the video is already published.
func (s *service) setThumbnail(ctx context.Context, accessToken, ytID, b64 string) {
	if i := strings.Index(b64, ","); strings.HasPrefix(b64, "data:") && i >= 0 {
		b64 = b64[i+1:]
	}
	img, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		slog.Warn("thumbnail is not valid base64", "youtube_video_id", ytID, "err", err)
		return
	}
	if err := s.api.SetThumbnail(ctx, accessToken, ytID, bytes.NewReader(img)); err != nil {
		slog.Warn("failed to set youtube thumbnail", "youtube_video_id", ytID, "err", err)
	}
}

func (s *service) History(ctx context.Context, p domain.Principal) ([]domain.YouTubeUpload, error) {
	return s.uploads.ListByUser(ctx, p.UserID)
}
