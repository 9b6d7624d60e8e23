package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/observability/metrics"
	"github.com/creator-studio/internal/pkg/id"
)

// EventTaskAdvanced is published when a video is ready for transcoding.
const EventTaskAdvanced = "video.task.advanced"

const maxTaskRetries = 5

type UploadRequest struct {
	FileName   string `json:"fileName" validate:"required"`
	FileType   string `json:"fileType" validate:"required"`
	UploadType string `json:"uploadType" validate:"required"`
	VideoID    string `json:"videoId"`
}

// UploadTarget is where the client PUTs the bytes, plus the row created for them.
type UploadTarget struct {
	Success      bool   `json:"success"`
	UploadURL    string `json:"uploadUrl"`
	UploadType   string `json:"uploadType"`
	Key          string `json:"key"`
	RecordID     string `json:"recordId"`
	VideoFileID  string `json:"videoFileId,omitempty"`
	TranscriptID string `json:"transcriptId,omitempty"`
	SubtitleID   string `json:"subtitleId,omitempty"`
	VideoID      string `json:"videoId,omitempty"`
}

type UpdateMetadataRequest struct {
	VideoID string `json:"videoId" validate:"required"`
	Title   string `json:"title" validate:"required,max=100"`
	// Thumbnail is base64 PNG data, optionally a data: URI.
	Thumbnail string `json:"thumbnailKey"`
}

// Detail is a video with its pipeline state and artifacts.
type Detail struct {
	domain.Video
	PlaybackURL string              `json:"playback_url,omitempty"`
	Task        *domain.VideoTask   `json:"task,omitempty"`
	Transcripts []domain.Transcript `json:"transcripts"`
	Subtitles   []domain.Subtitle   `json:"subtitles"`
}

type Service interface {
	RequestUpload(ctx context.Context, p domain.Principal, req UploadRequest) (*UploadTarget, error)
	ConfirmUpload(ctx context.Context, p domain.Principal, videoID string) (*domain.VideoTask, error)
	List(ctx context.Context, p domain.Principal) ([]domain.Video, error)
	Get(ctx context.Context, p domain.Principal, videoID string) (*Detail, error)
	UpdateMetadata(ctx context.Context, p domain.Principal, req UpdateMetadataRequest) (*domain.Video, error)
	// AdvanceTask records that stage finished for videoID and returns the new status.
	AdvanceTask(ctx context.Context, videoID string, stage domain.Stage) (domain.TaskStatus, error)
}

type videoStore interface {
	CreateWithTask(ctx context.Context, v *domain.Video, task *domain.VideoTask) error
	GetOwned(ctx context.Context, videoID, userID string) (*domain.Video, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Video, error)
	Update(ctx context.Context, videoID string, updates map[string]interface{}) error
}

type taskStore interface {
	Get(ctx context.Context, videoID string) (*domain.VideoTask, error)
	CompareAndSetStatus(ctx context.Context, videoID string, from, to domain.TaskStatus) (bool, error)
}

type transcriptStore interface {
	Put(ctx context.Context, t *domain.Transcript) error
	ListByVideo(ctx context.Context, videoID string) ([]domain.Transcript, error)
}

type subtitleStore interface {
	Put(ctx context.Context, s *domain.Subtitle) error
	ListByVideo(ctx context.Context, videoID string) ([]domain.Subtitle, error)
}

type objectStore interface {
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	UploadBase64(ctx context.Context, key, b64Data string) (string, error)
}

type notifier interface {
	Notify(ctx context.Context, userID string, videoID *string, kind, message string)
}

type eventPublisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

type service struct {
	videos      videoStore
	tasks       taskStore
	transcripts transcriptStore
	subtitles   subtitleStore
	objects     objectStore
	notifier    notifier
	events      eventPublisher
	urlTTL      time.Duration
}

type ServiceDeps struct {
	VideoRepo      videoStore
	TaskRepo       taskStore
	TranscriptRepo transcriptStore
	SubtitleRepo   subtitleStore
	Storage        objectStore
	Notifier       notifier
	Events         eventPublisher
	UploadURLTTL   time.Duration
}

func NewService(deps ServiceDeps) Service {
	ttl := deps.UploadURLTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &service{
		videos:      deps.VideoRepo,
		tasks:       deps.TaskRepo,
		transcripts: deps.TranscriptRepo,
		subtitles:   deps.SubtitleRepo,
		objects:     deps.Storage,
		notifier:    deps.Notifier,
		events:      deps.Events,
		urlTTL:      ttl,
	}
}

// objectKey builds prefix/{userID}/{base}_{uuid}.{ext}.
func objectKey(prefix, userID, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	ext := strings.TrimPrefix(path.Ext(name), ".")
	base := strings.TrimSuffix(name, path.Ext(name))
	if base == "" {
		base = "file"
	}
	key := fmt.Sprintf("%s/%s/%s_%s", prefix, userID, base, id.ObjectSuffix())
	if ext != "" {
		key += "." + ext
	}
	return key
}

func (s *service) RequestUpload(ctx context.Context, p domain.Principal, req UploadRequest) (*UploadTarget, error) {
	if strings.TrimSpace(req.FileName) == "" || strings.TrimSpace(req.FileType) == "" || req.UploadType == "" {
		return nil, fmt.Errorf("fileName, fileType, and uploadType are required: %w", domain.ErrBadRequest)
	}
	now := time.Now().UTC()
	target := &UploadTarget{Success: true, UploadType: req.UploadType}

	switch domain.UploadType(req.UploadType) {
	case domain.UploadVideo:
		key := objectKey("uploads", p.UserID, req.FileName)
		name := path.Base(req.FileName)
		v := &domain.Video{
			VideoID:     id.New(),
			UserID:      p.UserID,
			S3Key:       key,
			Name:        strings.TrimSuffix(name, path.Ext(name)),
			ContentType: req.FileType,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		task := &domain.VideoTask{
			VideoID:   v.VideoID,
			UserID:    p.UserID,
			Status:    domain.TaskNotStarted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.videos.CreateWithTask(ctx, v, task); err != nil {
			return nil, err
		}
		target.Key, target.RecordID, target.VideoFileID = key, v.VideoID, v.VideoID

	case domain.UploadTranscript, domain.UploadSubtitle:
		if req.VideoID == "" {
			return nil, fmt.Errorf("videoId is required for %s uploads: %w", req.UploadType, domain.ErrBadRequest)
		}
		if _, err := s.videos.GetOwned(ctx, req.VideoID, p.UserID); err != nil {
			return nil, err
		}
		target.VideoID = req.VideoID
		if domain.UploadType(req.UploadType) == domain.UploadTranscript {
			key := objectKey("transcripts", p.UserID, req.FileName)
			t := &domain.Transcript{TranscriptID: id.New(), VideoID: req.VideoID, UserID: p.UserID, S3Key: key, CreatedAt: now}
			if err := s.transcripts.Put(ctx, t); err != nil {
				return nil, err
			}
			target.Key, target.RecordID, target.TranscriptID = key, t.TranscriptID, t.TranscriptID
		} else {
			key := objectKey("subtitles", p.UserID, req.FileName)
			format := domain.CaptionWebVTT
			if strings.EqualFold(path.Ext(req.FileName), ".srt") {
				format = domain.CaptionSRT
			}
			sub := &domain.Subtitle{SubtitleID: id.New(), VideoID: req.VideoID, UserID: p.UserID, Format: format, S3Key: key, CreatedAt: now}
			if err := s.subtitles.Put(ctx, sub); err != nil {
				return nil, err
			}
			target.Key, target.RecordID, target.SubtitleID = key, sub.SubtitleID, sub.SubtitleID
		}

	default:
		return nil, fmt.Errorf("invalid uploadType, must be video, transcript, or subtitle: %w", domain.ErrBadRequest)
	}

	url, err := s.objects.PresignPut(ctx, target.Key, req.FileType, s.urlTTL)
	if err != nil {
		return nil, err
	}
	target.UploadURL = url
	return target, nil
}

// ConfirmUpload flips the uploaded flag once the object is in the bucket.
func (s *service) ConfirmUpload(ctx context.Context, p domain.Principal, videoID string) (*domain.VideoTask, error) {
	v, err := s.videos.GetOwned(ctx, videoID, p.UserID)
	if err != nil {
		return nil, err
	}
	if !v.IsUploaded {
		ok, err := s.objects.Exists(ctx, v.S3Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("upload has not landed in storage yet: %w", domain.ErrConflict)
		}
		if err := s.videos.Update(ctx, videoID, map[string]interface{}{"is_uploaded": true}); err != nil {
			return nil, err
		}
	}
	return s.tasks.Get(ctx, videoID)
}

func (s *service) List(ctx context.Context, p domain.Principal) ([]domain.Video, error) {
	return s.videos.ListByUser(ctx, p.UserID)
}

func (s *service) Get(ctx context.Context, p domain.Principal, videoID string) (*Detail, error) {
	v, err := s.videos.GetOwned(ctx, videoID, p.UserID)
	if err != nil {
		return nil, err
	}
	d := &Detail{Video: *v}
	if t, err := s.tasks.Get(ctx, videoID); err == nil {
		d.Task = t
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if d.Transcripts, err = s.transcripts.ListByVideo(ctx, videoID); err != nil {
		return nil, err
	}
	if d.Subtitles, err = s.subtitles.ListByVideo(ctx, videoID); err != nil {
		return nil, err
	}
	if v.IsUploaded {
		if url, err := s.objects.PresignedURL(ctx, v.S3Key, s.urlTTL); err == nil {
			d.PlaybackURL = url
		} else {
			slog.Warn("failed to presign playback url", "video_id", videoID, "err", err)
		}
	}
	return d, nil
}

// UpdateMetadata saves the chosen title. A thumbnail that fails to upload is
// dropped and the title is still saved.
func (s *service) UpdateMetadata(ctx context.Context, p domain.Principal, req UpdateMetadataRequest) (*domain.Video, error) {
	if req.VideoID == "" || strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("videoId and title are required: %w", domain.ErrBadRequest)
	}
	v, err := s.videos.GetOwned(ctx, req.VideoID, p.UserID)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{"title": req.Title}
	if req.Thumbnail != "" {
		key := fmt.Sprintf("thumbnails/%s/%s/%s.png", p.UserID, req.VideoID, id.ObjectSuffix())
		if _, err := s.objects.UploadBase64(ctx, key, req.Thumbnail); err != nil {
			slog.Warn("thumbnail upload failed, continuing without it", "video_id", req.VideoID, "err", err)
		} else {
			updates["thumbnail_key"] = key
			v.ThumbnailKey = &key
		}
	}
	if err := s.videos.Update(ctx, req.VideoID, updates); err != nil {
		return nil, err
	}
	title := req.Title
	v.Title = &title
	v.UpdatedAt = time.Now().UTC()
	return v, nil
}

// AdvanceTask applies domain.NextTaskStatus with a read and a conditional write,
// rereading when a concurrent handler moved the task first.
func (s *service) AdvanceTask(ctx context.Context, videoID string, stage domain.Stage) (domain.TaskStatus, error) {
	for attempt := 0; attempt < maxTaskRetries; attempt++ {
		task, err := s.tasks.Get(ctx, videoID)
		if err != nil {
			return "", err
		}
		next := domain.NextTaskStatus(task.Status, stage)
		if next == task.Status {
			return next, nil
		}
		ok, err := s.tasks.CompareAndSetStatus(ctx, videoID, task.Status, next)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		metrics.VideoTaskTransitionsTotal.WithLabelValues(string(task.Status), string(next)).Inc()
		if next == domain.TaskTranscoding {
			s.readyForTranscoding(ctx, task)
		}
		return next, nil
	}
	return "", fmt.Errorf("video task %s kept changing under us: %w", videoID, domain.ErrConflict)
}

func (s *service) readyForTranscoding(ctx context.Context, task *domain.VideoTask) {
	videoID := task.VideoID
	if s.notifier != nil && task.UserID != "" {
		s.notifier.Notify(ctx, task.UserID, &videoID, domain.NotifyTaskAdvanced, "Transcript and captions are ready.")
	}
	if s.events == nil {
		return
	}
	payload := map[string]string{
		"video_id": videoID,
		"user_id":  task.UserID,
		"status":   string(domain.TaskTranscoding),
	}
	if err := s.events.Publish(ctx, EventTaskAdvanced, payload); err != nil {
		slog.Warn("failed to publish task event", "video_id", videoID, "err", err)
	}
}
