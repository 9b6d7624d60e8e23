// Package transcription turns uploaded media into transcripts and caption tracks
// through Deepgram, stores the artifacts and advances the video's task.
package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/infrastructure/deepgram"
	"github.com/creator-studio/internal/observability/metrics"
	"github.com/creator-studio/internal/pkg/id"
	"github.com/google/uuid"
)

const (
	cacheSize       = 100
	defaultMaxBytes = 100 << 20
	collaborator    = "deepgram"
)

// Result is a finished transcription.
type Result struct {
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence"`
	Language       string  `json:"language"`
	WordCount      int     `json:"wordCount"`
	ProcessingTime int64   `json:"processingTime"`
	TranscriptID   string  `json:"transcriptId,omitempty"`
}

type Outcome struct {
	Result    Result
	FromCache bool
}

// Captions is a rendered caption file ready to be served as a download.
type Captions struct {
	Body           string
	ContentType    string
	FileName       string
	Format         domain.CaptionFormat
	ProcessingTime time.Duration
}

// Ticket acknowledges a background job.
type Ticket struct {
	JobID string `json:"jobId"`
	// EstimatedTime is in seconds.
	EstimatedTime int `json:"estimatedTime"`
}

type Service interface {
	Transcribe(ctx context.Context, p domain.Principal, videoID string, m Media) (*Outcome, error)
	Captions(ctx context.Context, p domain.Principal, videoID, format string, m Media) (*Captions, error)
	StartAsync(ctx context.Context, p domain.Principal, videoID string, m Media) (*Ticket, error)
	Job(ctx context.Context, p domain.Principal, jobID string) (*Job, error)
	// RunJanitor drops expired jobs every interval until ctx is done.
	RunJanitor(ctx context.Context, interval time.Duration)
}

type transcriber interface {
	Transcribe(ctx context.Context, media io.Reader, contentType string, opts deepgram.Options) (*deepgram.Response, error)
}

type videoStore interface {
	GetOwned(ctx context.Context, videoID, userID string) (*domain.Video, error)
}

type transcriptStore interface {
	Put(ctx context.Context, t *domain.Transcript) error
}

type subtitleStore interface {
	Put(ctx context.Context, s *domain.Subtitle) error
}

type objectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

type taskAdvancer interface {
	AdvanceTask(ctx context.Context, videoID string, stage domain.Stage) (domain.TaskStatus, error)
}

type service struct {
	deepgram    transcriber
	videos      videoStore
	transcripts transcriptStore
	subtitles   subtitleStore
	objects     objectStore
	tasks       taskAdvancer
	maxBytes    int64
	cache       *resultCache
	jobs        *jobRegistry
}

type ServiceDeps struct {
	Transcriber    transcriber
	VideoRepo      videoStore
	TranscriptRepo transcriptStore
	SubtitleRepo   subtitleStore
	Storage        objectStore
	Tasks          taskAdvancer
	MaxMediaBytes  int64
	// Now defaults to time.Now; tests override it to age jobs.
	Now func() time.Time
}

func NewService(deps ServiceDeps) Service {
	maxBytes := deps.MaxMediaBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		deepgram:    deps.Transcriber,
		videos:      deps.VideoRepo,
		transcripts: deps.TranscriptRepo,
		subtitles:   deps.SubtitleRepo,
		objects:     deps.Storage,
		tasks:       deps.Tasks,
		maxBytes:    maxBytes,
		cache:       newResultCache(cacheSize),
		jobs:        newJobRegistry(now),
	}
}

func (s *service) call(ctx context.Context, m Media, opts deepgram.Options) (*deepgram.Response, error) {
	start := time.Now()
	resp, err := s.deepgram.Transcribe(ctx, bytes.NewReader(m.Data), baseType(m.ContentType), opts)
	metrics.CollaboratorDurationSeconds.WithLabelValues(collaborator).Observe(time.Since(start).Seconds())
	metrics.CollaboratorCallsTotal.WithLabelValues(collaborator, metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Transcript()) == "" {
		return nil, fmt.Errorf("no transcription result found: %w", domain.ErrUnavailable)
	}
	return resp, nil
}

// owned checks videoID belongs to the caller. An empty videoID means the
// transcription is not attached to any video.
func (s *service) owned(ctx context.Context, p domain.Principal, videoID string) error {
	if videoID == "" {
		return nil
	}
	_, err := s.videos.GetOwned(ctx, videoID, p.UserID)
	return err
}

func (s *service) Transcribe(ctx context.Context, p domain.Principal, videoID string, m Media) (*Outcome, error) {
	start := time.Now()
	if err := check(m, s.maxBytes); err != nil {
		return nil, err
	}
	if err := s.owned(ctx, p, videoID); err != nil {
		return nil, err
	}

	key := m.cacheKey(p.UserID)
	res, hit := s.cache.get(key)
	if !hit {
		resp, err := s.call(ctx, m, deepgram.Options{})
		if err != nil {
			return nil, err
		}
		res = Result{
			Text:       resp.Transcript(),
			Confidence: resp.Confidence(),
			Language:   "en-US",
			WordCount:  resp.WordCount(),
		}
		s.cache.put(key, res)
	}
	res.ProcessingTime = time.Since(start).Milliseconds()

	if videoID != "" {
		res.TranscriptID = s.storeTranscript(ctx, p.UserID, videoID, res.Text)
		s.advance(ctx, videoID, domain.StageTranscription)
	}
	return &Outcome{Result: res, FromCache: hit}, nil
}

func (s *service) Captions(ctx context.Context, p domain.Principal, videoID, format string, m Media) (*Captions, error) {
	start := time.Now()
	f, ok := domain.ParseCaptionFormat(format)
	if !ok {
		return nil, fmt.Errorf(`invalid format. Use "webvtt" or "srt": %w`, domain.ErrBadRequest)
	}
	if err := check(m, s.maxBytes); err != nil {
		return nil, err
	}
	if err := s.owned(ctx, p, videoID); err != nil {
		return nil, err
	}
	resp, err := s.call(ctx, m, deepgram.Options{Utterances: true})
	if err != nil {
		return nil, err
	}

	c := &Captions{Format: f}
	if f == domain.CaptionSRT {
		c.Body, c.ContentType, c.FileName = deepgram.SRT(resp), "application/x-subrip", "captions.srt"
	} else {
		c.Body, c.ContentType, c.FileName = deepgram.WebVTT(resp), "text/vtt", "captions.vtt"
	}
	if videoID != "" {
		s.storeSubtitle(ctx, p.UserID, videoID, c)
		s.advance(ctx, videoID, domain.StageCaptioning)
	}
	c.ProcessingTime = time.Since(start)
	return c, nil
}

func (s *service) StartAsync(ctx context.Context, p domain.Principal, videoID string, m Media) (*Ticket, error) {
	if err := check(m, s.maxBytes); err != nil {
		return nil, err
	}
	if err := s.owned(ctx, p, videoID); err != nil {
		return nil, err
	}
	jobID := "job_" + uuid.NewString()
	s.jobs.add(jobID, p.UserID)

	// The job outlives the request that started it.
	go s.runJob(context.WithoutCancel(ctx), p, videoID, jobID, m)

	mb := float64(m.Size()) / float64(1<<20)
	return &Ticket{JobID: jobID, EstimatedTime: int(math.Ceil(mb)) * 2}, nil
}

func (s *service) runJob(ctx context.Context, p domain.Principal, videoID, jobID string, m Media) {
	s.jobs.update(jobID, func(j *Job) { j.Status = JobProcessing })
	out, err := s.Transcribe(ctx, p, videoID, m)
	if err != nil {
		slog.Warn("background transcription failed", "job_id", jobID, "err", err)
		s.jobs.update(jobID, func(j *Job) {
			j.Status = JobFailed
			j.Error = "Transcription failed"
		})
		return
	}
	s.jobs.update(jobID, func(j *Job) {
		j.Status = JobCompleted
		j.Result = &out.Result
	})
}

func (s *service) Job(_ context.Context, p domain.Principal, jobID string) (*Job, error) {
	if jobID == "" {
		return nil, fmt.Errorf("job id required: %w", domain.ErrBadRequest)
	}
	j, found, expired := s.jobs.lookup(jobID)
	if !found || (!expired && j.UserID != p.UserID) {
		return nil, fmt.Errorf("job not found: %w", domain.ErrNotFound)
	}
	if expired {
		return nil, fmt.Errorf("job expired: %w", domain.ErrExpired)
	}
	return &j, nil
}

func (s *service) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.jobs.sweep(); n > 0 {
				slog.Info("expired transcription jobs dropped", "count", n)
			}
		}
	}
}

// storeTranscript saves the text to S3 and records the row. Failures are logged;
// the caller already has the transcript.
func (s *service) storeTranscript(ctx context.Context, userID, videoID, text string) string {
	key := fmt.Sprintf("transcripts/%s/%s_%s.txt", userID, videoID, id.ObjectSuffix())
	if _, err := s.objects.Upload(ctx, key, strings.NewReader(text), "text/plain"); err != nil {
		slog.Warn("failed to store transcript object", "video_id", videoID, "err", err)
		key = ""
	}
	t := &domain.Transcript{
		TranscriptID: id.New(),
		VideoID:      videoID,
		UserID:       userID,
		S3Key:        key,
		RawText:      &text,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.transcripts.Put(ctx, t); err != nil {
		slog.Warn("failed to record transcript", "video_id", videoID, "err", err)
		return ""
	}
	return t.TranscriptID
}

func (s *service) storeSubtitle(ctx context.Context, userID, videoID string, c *Captions) {
	ext := "vtt"
	if c.Format == domain.CaptionSRT {
		ext = "srt"
	}
	key := fmt.Sprintf("subtitles/%s/%s_%s.%s", userID, videoID, id.ObjectSuffix(), ext)
	if _, err := s.objects.Upload(ctx, key, strings.NewReader(c.Body), c.ContentType); err != nil {
		slog.Warn("failed to store caption object", "video_id", videoID, "err", err)
		key = ""
	}
	body := c.Body
	sub := &domain.Subtitle{
		SubtitleID: id.New(),
		VideoID:    videoID,
		UserID:     userID,
		Format:     c.Format,
		S3Key:      key,
		RawText:    &body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.subtitles.Put(ctx, sub); err != nil {
		slog.Warn("failed to record captions", "video_id", videoID, "err", err)
	}
}

func (s *service) advance(ctx context.Context, videoID string, stage domain.Stage) {
	status, err := s.tasks.AdvanceTask(ctx, videoID, stage)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("failed to advance video task", "video_id", videoID, "stage", stage, "err", err)
		}
		return
	}
	slog.Info("video task advanced", "video_id", videoID, "stage", stage, "status", status)
}
