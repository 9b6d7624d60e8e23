// Package analysis asks Gemini for titles, a description and a thumbnail concept
// from sampled frames and the transcript, then renders thumbnails with Imagen.
package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/observability/metrics"
)

// NoTranscript is sent when neither the caller nor storage has a transcript.
const NoTranscript = "No transcript available for this video."

const generatedImages = 4

type Screenshot struct {
	Data        []byte
	Timestamp   float64
	FrameNumber int
}

type Request struct {
	VideoID        string
	TranscriptText string
	Screenshots    []Screenshot
}

type ThumbnailConcept struct {
	VisualLayout       string   `json:"visual_layout"`
	TextOverlay        string   `json:"text_overlay"`
	ColorScheme        string   `json:"color_scheme"`
	KeyElements        []string `json:"key_elements"`
	MobileOptimization string   `json:"mobile_optimization"`
}

// modelReply is the JSON object the text model is asked to return.
type modelReply struct {
	Titles           []string         `json:"titles"`
	Description      string           `json:"description"`
	ThumbnailConcept ThumbnailConcept `json:"thumbnail_concept"`
	ThumbnailPrompt  string           `json:"thumbnail_ai_prompt"`
}

type Analysis struct {
	Titles           []string         `json:"titles"`
	Description      string           `json:"description"`
	ThumbnailConcept ThumbnailConcept `json:"thumbnailConcept"`
	ThumbnailPrompt  string           `json:"thumbnailPrompt"`
	// GeneratedImages are base64 PNG bytes.
	GeneratedImages []string `json:"generatedImages"`
}

type ScreenshotInfo struct {
	FrameNumber int     `json:"frameNumber"`
	Timestamp   float64 `json:"timestamp"`
	HasData     bool    `json:"hasData"`
}

type VideoInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	HasTranscript bool   `json:"hasTranscript"`
}

type Result struct {
	Success     bool             `json:"success"`
	Analysis    Analysis         `json:"analysis"`
	Screenshots []ScreenshotInfo `json:"screenshots"`
	VideoInfo   VideoInfo        `json:"videoInfo"`
}

type Service interface {
	Analyze(ctx context.Context, p domain.Principal, req Request) (*Result, error)
}

type model interface {
	Describe(ctx context.Context, prompt string, frames [][]byte) (string, error)
	Images(ctx context.Context, prompt string, n int) ([][]byte, error)
}

type videoStore interface {
	GetOwned(ctx context.Context, videoID, userID string) (*domain.Video, error)
}

type transcriptStore interface {
	ListByVideo(ctx context.Context, videoID string) ([]domain.Transcript, error)
}

type service struct {
	model       model
	videos      videoStore
	transcripts transcriptStore
}

type ServiceDeps struct {
	Model          model
	VideoRepo      videoStore
	TranscriptRepo transcriptStore
}

func NewService(deps ServiceDeps) Service {
	return &service{model: deps.Model, videos: deps.VideoRepo, transcripts: deps.TranscriptRepo}
}

func (s *service) Analyze(ctx context.Context, p domain.Principal, req Request) (*Result, error) {
	if len(req.Screenshots) == 0 {
		return nil, fmt.Errorf("screenshots array is required: %w", domain.ErrBadRequest)
	}
	if req.VideoID == "" {
		return nil, fmt.Errorf("video ID is required: %w", domain.ErrBadRequest)
	}
	v, err := s.videos.GetOwned(ctx, req.VideoID, p.UserID)
	if err != nil {
		return nil, err
	}

	stored := s.storedTranscript(ctx, req.VideoID)
	transcript := strings.TrimSpace(req.TranscriptText)
	if transcript == "" {
		transcript = stored
	}
	if transcript == "" {
		transcript = NoTranscript
	}

	shots := make([]ScreenshotInfo, 0, len(req.Screenshots))
	frames := make([][]byte, 0, len(req.Screenshots))
	for i := range req.Screenshots {
		sc := &req.Screenshots[i]
		if sc.FrameNumber == 0 {
			sc.FrameNumber = i + 1
		}
		shots = append(shots, ScreenshotInfo{FrameNumber: sc.FrameNumber, Timestamp: sc.Timestamp, HasData: len(sc.Data) > 0})
		if len(sc.Data) > 0 {
			frames = append(frames, sc.Data)
		}
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no valid screenshots could be processed: %w", domain.ErrBadRequest)
	}

	reply, err := s.describe(ctx, buildPrompt(transcript, req.Screenshots), frames)
	if err != nil {
		return nil, err
	}

	a := Analysis{
		Titles:           reply.Titles,
		Description:      reply.Description,
		ThumbnailConcept: reply.ThumbnailConcept,
		ThumbnailPrompt:  reply.ThumbnailPrompt,
		GeneratedImages:  s.images(ctx, reply.ThumbnailPrompt),
	}
	return &Result{
		Success:     true,
		Analysis:    a,
		Screenshots: shots,
		VideoInfo:   VideoInfo{ID: v.VideoID, Name: v.Name, HasTranscript: stored != ""},
	}, nil
}

func (s *service) storedTranscript(ctx context.Context, videoID string) string {
	rows, err := s.transcripts.ListByVideo(ctx, videoID)
	if err != nil {
		slog.Warn("failed to load stored transcript", "video_id", videoID, "err", err)
		return ""
	}
	for _, t := range rows {
		if t.RawText != nil && strings.TrimSpace(*t.RawText) != "" {
			return *t.RawText
		}
	}
	return ""
}

func (s *service) describe(ctx context.Context, prompt string, frames [][]byte) (*modelReply, error) {
	start := time.Now()
	text, err := s.model.Describe(ctx, prompt, frames)
	metrics.CollaboratorDurationSeconds.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	metrics.CollaboratorCallsTotal.WithLabelValues("gemini", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	var reply modelReply
	if err := json.Unmarshal([]byte(stripFences(text)), &reply); err != nil {
		return nil, fmt.Errorf("failed to generate thumbnail analysis: %w", domain.ErrUnavailable)
	}
	if len(reply.Titles) == 0 && reply.Description == "" {
		return nil, fmt.Errorf("model reply has no titles or description: %w", domain.ErrUnavailable)
	}
	if reply.Titles == nil {
		reply.Titles = []string{}
	}
	return &reply, nil
}

// images renders thumbnails. Failure only costs the images.
func (s *service) images(ctx context.Context, prompt string) []string {
	out := []string{}
	if strings.TrimSpace(prompt) == "" {
		return out
	}
	start := time.Now()
	imgs, err := s.model.Images(ctx, prompt, generatedImages)
	metrics.CollaboratorDurationSeconds.WithLabelValues("imagen").Observe(time.Since(start).Seconds())
	metrics.CollaboratorCallsTotal.WithLabelValues("imagen", metrics.Result(err)).Inc()
	if err != nil {
		slog.Warn("image generation failed, continuing without images", "err", err)
		return out
	}
	for _, img := range imgs {
		out = append(out, base64.StdEncoding.EncodeToString(img))
	}
	return out
}
