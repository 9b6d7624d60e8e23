package transcription

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creator-studio/internal/domain"
	"github.com/creator-studio/internal/infrastructure/deepgram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeDeepgram struct {
	mu    sync.Mutex
	calls int
	opts  []deepgram.Options
	err   error
	block chan struct{}
}

func (f *fakeDeepgram) Transcribe(_ context.Context, media io.Reader, _ string, opts deepgram.Options) (*deepgram.Response, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	f.calls++
	f.opts = append(f.opts, opts)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	_, _ = io.Copy(io.Discard, media)
	return &deepgram.Response{
		Results: deepgram.Results{
			Channels: []deepgram.Channel{{Alternatives: []deepgram.Alternative{{
				Transcript: "hello there world",
				Confidence: 0.93,
				Words: []deepgram.Word{
					{Word: "hello", Start: 0, End: 0.5},
					{Word: "there", Start: 0.5, End: 1},
					{Word: "world", Start: 1, End: 1.5},
				},
			}}}},
		},
	}, nil
}

func (f *fakeDeepgram) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type mockVideoStore struct{ mock.Mock }

func (m *mockVideoStore) GetOwned(ctx context.Context, videoID, userID string) (*domain.Video, error) {
	args := m.Called(ctx, videoID, userID)
	if v, _ := args.Get(0).(*domain.Video); v != nil {
		return v, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockTranscriptStore struct{ mock.Mock }

func (m *mockTranscriptStore) Put(ctx context.Context, t *domain.Transcript) error {
	return m.Called(ctx, t).Error(0)
}

type mockSubtitleStore struct{ mock.Mock }

func (m *mockSubtitleStore) Put(ctx context.Context, s *domain.Subtitle) error {
	return m.Called(ctx, s).Error(0)
}

type mockObjects struct{ mock.Mock }

func (m *mockObjects) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, r, contentType)
	return args.String(0), args.Error(1)
}

type mockTasks struct{ mock.Mock }

func (m *mockTasks) AdvanceTask(ctx context.Context, videoID string, stage domain.Stage) (domain.TaskStatus, error) {
	args := m.Called(ctx, videoID, stage)
	return args.Get(0).(domain.TaskStatus), args.Error(1)
}

var caller = domain.Principal{UserID: "u1"}

func mp4(n int) Media {
	return Media{Name: "clip.mp4", ContentType: "video/mp4", Data: make([]byte, n)}
}

// --- policy ---

func TestTranscribe_RejectsUnsupportedType(t *testing.T) {
	dg := &fakeDeepgram{}
	svc := NewService(ServiceDeps{Transcriber: dg})
	_, err := svc.Transcribe(context.Background(), caller, "", Media{Name: "a.gif", ContentType: "image/gif", Data: []byte{1}})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.Zero(t, dg.callCount())
}

func TestTranscribe_RejectsOversized(t *testing.T) {
	svc := NewService(ServiceDeps{Transcriber: &fakeDeepgram{}, MaxMediaBytes: 10})
	_, err := svc.Transcribe(context.Background(), caller, "", mp4(11))
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestTranscribe_ContentTypeParametersIgnored(t *testing.T) {
	svc := NewService(ServiceDeps{Transcriber: &fakeDeepgram{}})
	_, err := svc.Transcribe(context.Background(), caller, "", Media{Name: "a.mp4", ContentType: "video/mp4; codecs=avc1", Data: []byte{1}})
	assert.NoError(t, err)
}

// --- Transcribe ---

func TestTranscribe_CachesRepeatUpload(t *testing.T) {
	dg := &fakeDeepgram{}
	svc := NewService(ServiceDeps{Transcriber: dg})

	first, err := svc.Transcribe(context.Background(), caller, "", mp4(8))
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, "hello there world", first.Result.Text)
	assert.Equal(t, 3, first.Result.WordCount)

	second, err := svc.Transcribe(context.Background(), caller, "", mp4(8))
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, dg.callCount())
}

func TestTranscribe_CacheIsPerUserAndPerContent(t *testing.T) {
	dg := &fakeDeepgram{}
	svc := NewService(ServiceDeps{Transcriber: dg})
	alice := domain.Principal{UserID: "alice"}
	bob := domain.Principal{UserID: "bob"}
	clip := func(fill byte) Media {
		data := make([]byte, 22)
		for i := range data {
			data[i] = fill
		}
		return Media{Name: "clip.mp4", ContentType: "video/mp4", Data: data}
	}

	first, err := svc.Transcribe(context.Background(), alice, "", clip('a'))
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	// Same name and size, different bytes, different user.
	other, err := svc.Transcribe(context.Background(), bob, "", clip('b'))
	require.NoError(t, err)
	assert.False(t, other.FromCache)

	// Same bytes, different user.
	same, err := svc.Transcribe(context.Background(), bob, "", clip('a'))
	require.NoError(t, err)
	assert.False(t, same.FromCache)

	// Same name and size, different bytes, same user.
	changed, err := svc.Transcribe(context.Background(), alice, "", clip('c'))
	require.NoError(t, err)
	assert.False(t, changed.FromCache)

	assert.Equal(t, 4, dg.callCount())
}

func TestTranscribe_StoresArtifactAndAdvancesTask(t *testing.T) {
	vs, ts, obj, tasks := &mockVideoStore{}, &mockTranscriptStore{}, &mockObjects{}, &mockTasks{}
	vs.On("GetOwned", mock.Anything, "v1", "u1").Return(&domain.Video{VideoID: "v1"}, nil)
	obj.On("Upload", mock.Anything, mock.MatchedBy(func(k string) bool {
		return strings.HasPrefix(k, "transcripts/u1/v1_") && strings.HasSuffix(k, ".txt")
	}), mock.Anything, "text/plain").Return("https://x", nil)
	ts.On("Put", mock.Anything, mock.MatchedBy(func(tr *domain.Transcript) bool {
		return tr.VideoID == "v1" && *tr.RawText == "hello there world" && tr.S3Key != ""
	})).Return(nil)
	tasks.On("AdvanceTask", mock.Anything, "v1", domain.StageTranscription).Return(domain.TaskTranscribing, nil)

	svc := NewService(ServiceDeps{Transcriber: &fakeDeepgram{}, VideoRepo: vs, TranscriptRepo: ts, Storage: obj, Tasks: tasks})
	out, err := svc.Transcribe(context.Background(), caller, "v1", mp4(4))
	require.NoError(t, err)
	assert.NotEmpty(t, out.Result.TranscriptID)
	tasks.AssertExpectations(t)
}

func TestTranscribe_CollaboratorFailureDoesNotAdvance(t *testing.T) {
	vs, tasks := &mockVideoStore{}, &mockTasks{}
	vs.On("GetOwned", mock.Anything, "v1", "u1").Return(&domain.Video{VideoID: "v1"}, nil)

	svc := NewService(ServiceDeps{Transcriber: &fakeDeepgram{err: domain.ErrUnavailable}, VideoRepo: vs, Tasks: tasks})
	_, err := svc.Transcribe(context.Background(), caller, "v1", mp4(4))
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	tasks.AssertNotCalled(t, "AdvanceTask", mock.Anything, mock.Anything, mock.Anything)
}

func TestTranscribe_ForeignVideo(t *testing.T) {
	vs := &mockVideoStore{}
	vs.On("GetOwned", mock.Anything, "v2", "u1").Return(nil, domain.ErrNotFound)
	dg := &fakeDeepgram{}

	_, err := NewService(ServiceDeps{Transcriber: dg, VideoRepo: vs}).Transcribe(context.Background(), caller, "v2", mp4(4))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, dg.callCount())
}

// --- Captions ---

func TestCaptions_InvalidFormat(t *testing.T) {
	_, err := NewService(ServiceDeps{Transcriber: &fakeDeepgram{}}).Captions(context.Background(), caller, "", "ass", mp4(4))
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCaptions_DefaultsToWebVTTWithUtterances(t *testing.T) {
	dg := &fakeDeepgram{}
	c, err := NewService(ServiceDeps{Transcriber: dg}).Captions(context.Background(), caller, "", "", mp4(4))
	require.NoError(t, err)
	assert.Equal(t, "text/vtt", c.ContentType)
	assert.Equal(t, "captions.vtt", c.FileName)
	assert.True(t, strings.HasPrefix(c.Body, "WEBVTT"))
	assert.True(t, dg.opts[0].Utterances)
}

func TestCaptions_SRTAdvancesCaptioning(t *testing.T) {
	vs, ss, obj, tasks := &mockVideoStore{}, &mockSubtitleStore{}, &mockObjects{}, &mockTasks{}
	vs.On("GetOwned", mock.Anything, "v1", "u1").Return(&domain.Video{VideoID: "v1"}, nil)
	obj.On("Upload", mock.Anything, mock.Anything, mock.Anything, "application/x-subrip").Return("", errors.New("s3 down"))
	ss.On("Put", mock.Anything, mock.MatchedBy(func(s *domain.Subtitle) bool {
		return s.Format == domain.CaptionSRT && s.S3Key == ""
	})).Return(nil)
	tasks.On("AdvanceTask", mock.Anything, "v1", domain.StageCaptioning).Return(domain.TaskCaptioning, nil)

	svc := NewService(ServiceDeps{Transcriber: &fakeDeepgram{}, VideoRepo: vs, SubtitleRepo: ss, Storage: obj, Tasks: tasks})
	c, err := svc.Captions(context.Background(), caller, "v1", "srt", mp4(4))
	require.NoError(t, err)
	assert.Equal(t, "application/x-subrip", c.ContentType)
	assert.Equal(t, "captions.srt", c.FileName)
	ss.AssertExpectations(t)
	tasks.AssertExpectations(t)
}

// --- async jobs ---

func TestStartAsync_EstimateAndCompletion(t *testing.T) {
	svc := NewService(ServiceDeps{Transcriber: &fakeDeepgram{}})
	ticket, err := svc.StartAsync(context.Background(), caller, "", mp4(3<<20+1))
	require.NoError(t, err)
	assert.Equal(t, 8, ticket.EstimatedTime)
	assert.True(t, strings.HasPrefix(ticket.JobID, "job_"))

	require.Eventually(t, func() bool {
		j, err := svc.Job(context.Background(), caller, ticket.JobID)
		return err == nil && j.Status == JobCompleted
	}, 2*time.Second, 10*time.Millisecond)

	j, _ := svc.Job(context.Background(), caller, ticket.JobID)
	require.NotNil(t, j.Result)
	assert.Equal(t, "hello there world", j.Result.Text)
}

func TestStartAsync_FailureRecorded(t *testing.T) {
	svc := NewService(ServiceDeps{Transcriber: &fakeDeepgram{err: domain.ErrUnavailable}})
	ticket, err := svc.StartAsync(context.Background(), caller, "", mp4(10))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		j, err := svc.Job(context.Background(), caller, ticket.JobID)
		return err == nil && j.Status == JobFailed && j.Error != ""
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJob_PendingUntilCollaboratorReturns(t *testing.T) {
	dg := &fakeDeepgram{block: make(chan struct{})}
	svc := NewService(ServiceDeps{Transcriber: dg})
	ticket, err := svc.StartAsync(context.Background(), caller, "", mp4(10))
	require.NoError(t, err)

	j, err := svc.Job(context.Background(), caller, ticket.JobID)
	require.NoError(t, err)
	assert.Contains(t, []JobStatus{JobPending, JobProcessing}, j.Status)
	close(dg.block)
}

func TestJob_UnknownForeignAndExpired(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	svc := NewService(ServiceDeps{Transcriber: &fakeDeepgram{}, Now: clock})

	_, err := svc.Job(context.Background(), caller, "job_missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ticket, err := svc.StartAsync(context.Background(), caller, "", mp4(10))
	require.NoError(t, err)

	_, err = svc.Job(context.Background(), domain.Principal{UserID: "u2"}, ticket.JobID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mu.Lock()
	now = now.Add(JobTTL + time.Second)
	mu.Unlock()

	_, err = svc.Job(context.Background(), caller, ticket.JobID)
	assert.ErrorIs(t, err, domain.ErrExpired)
	_, err = svc.Job(context.Background(), caller, ticket.JobID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
