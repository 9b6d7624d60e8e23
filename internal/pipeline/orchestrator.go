// Package pipeline runs the client side of a video upload: transfer, frame
// sampling, analysis, then transcription and both caption formats in parallel.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/creator-studio/internal/client"
	"github.com/creator-studio/internal/domain"
)

// API is the subset of the server the pipeline calls.
type API interface {
	RequestUpload(ctx context.Context, fileName, fileType string) (*client.UploadTarget, error)
	PutObject(ctx context.Context, uploadURL, contentType string, data []byte) error
	Analyze(ctx context.Context, videoID, transcript string, frames []client.Frame) (*client.Analysis, error)
	Transcribe(ctx context.Context, videoID string, m client.Media) (*client.Transcript, error)
	Captions(ctx context.Context, videoID, format string, m client.Media) ([]byte, error)
}

type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// Input is the file being processed. Path is only used for frame sampling.
type Input struct {
	Path        string
	Name        string
	ContentType string
	Data        []byte
}

// Report is the settled state of a run.
type Report struct {
	VideoID    string
	Analysis   *client.Analysis
	Transcript *client.Transcript
	WebVTT     []byte
	SRT        []byte
	Outcome    Outcome
	Summary    string
	Messages   []string
	Stages     []Stage
	Progress   int
}

// Pacing is a cosmetic pause between stages.
type Pacing struct {
	Step time.Duration
}

var DefaultPacing = Pacing{Step: 500 * time.Millisecond}

type Config struct {
	API    API
	Frames FrameExtractor
	Pacing Pacing
	// Rand seeds timestamp selection; a time-seeded source is used when nil.
	Rand *rand.Rand
	// Observer receives a stage snapshot after every change.
	Observer func([]Stage)
}

type Orchestrator struct {
	api      API
	frames   FrameExtractor
	pacing   Pacing
	rnd      *rand.Rand
	observer func([]Stage)
}

func New(cfg Config) *Orchestrator {
	return &Orchestrator{
		api:      cfg.API,
		frames:   cfg.Frames,
		pacing:   cfg.Pacing,
		rnd:      cfg.Rand,
		observer: cfg.Observer,
	}
}

type artifact struct {
	name string
	err  error
}

// Run processes in to settlement. Only a failed transfer returns an error;
// every later failure is reported in the Report.
func (o *Orchestrator) Run(ctx context.Context, in Input) (*Report, error) {
	tr := NewTracker(Estimates(int64(len(in.Data))), o.observer)
	rep := &Report{}
	finish := func() *Report {
		rep.Stages = tr.Stages()
		rep.Progress = Progress(rep.Stages)
		return rep
	}

	tr.set(StageUpload, StatusActive, "")
	target, err := o.api.RequestUpload(ctx, in.Name, in.ContentType)
	if err == nil {
		err = o.api.PutObject(ctx, target.UploadURL, in.ContentType, in.Data)
	}
	if err != nil {
		tr.set(StageUpload, StatusFailed, err.Error())
		rep.Outcome, rep.Summary = OutcomeFailed, "Upload failed"
		return finish(), fmt.Errorf("upload %s: %w", in.Name, err)
	}
	rep.VideoID = target.VideoFileID
	if rep.VideoID == "" {
		rep.VideoID = target.RecordID
	}
	tr.set(StageUpload, StatusCompleted, "")
	if err := o.pause(ctx); err != nil {
		return finish(), err
	}

	tr.set(StageScreenshots, StatusActive, "")
	frames, err := o.extract(ctx, in.Path)
	if err != nil {
		tr.set(StageScreenshots, StatusFailed, err.Error())
		rep.Messages = append(rep.Messages, "Screenshot extraction failed: "+err.Error())
	} else {
		tr.set(StageScreenshots, StatusCompleted, fmt.Sprintf("%d frames", len(frames)))
	}

	tr.set(StageAnalysis, StatusActive, "")
	if len(frames) == 0 {
		tr.set(StageAnalysis, StatusFailed, "skipped: no screenshots")
	} else if a, err := o.api.Analyze(ctx, rep.VideoID, "", frames); err != nil {
		tr.set(StageAnalysis, StatusFailed, err.Error())
		rep.Messages = append(rep.Messages, "AI analysis failed: "+err.Error())
	} else {
		rep.Analysis = a
		tr.set(StageAnalysis, StatusCompleted, fmt.Sprintf("%d title suggestions", len(a.Titles)))
	}

	tr.set(StageAudio, StatusActive, "")
	if err := o.pause(ctx); err != nil {
		return finish(), err
	}
	tr.set(StageAudio, StatusCompleted, "")

	tr.set(StageTranscription, StatusActive, "")
	results := o.fanOut(ctx, rep, client.Media{Name: in.Name, ContentType: in.ContentType, Data: in.Data})

	var ok, failed []string
	for _, r := range results {
		if r.err != nil {
			failed = append(failed, r.name)
			rep.Messages = append(rep.Messages, fmt.Sprintf("%s failed: %v", capitalize(r.name), r.err))
			continue
		}
		ok = append(ok, r.name)
		rep.Messages = append(rep.Messages, capitalize(r.name)+" generated")
	}

	if len(ok) == 0 {
		tr.set(StageTranscription, StatusFailed, "no transcript or captions")
		rep.Outcome = OutcomeFailed
		rep.Summary = "Processing failed: no transcript or captions could be generated"
		return finish(), nil
	}

	if len(failed) == 0 {
		tr.set(StageTranscription, StatusCompleted, "")
		rep.Outcome, rep.Summary = OutcomeComplete, "Processing complete"
	} else {
		summary := fmt.Sprintf("%s generated, %s failed", capitalize(strings.Join(ok, " and ")), strings.Join(failed, " and "))
		tr.set(StageTranscription, StatusCompleted, summary)
		rep.Outcome, rep.Summary = OutcomeDegraded, summary
	}

	tr.set(StageFinalizing, StatusActive, "")
	if err := o.pause(ctx); err != nil {
		return finish(), err
	}
	tr.set(StageFinalizing, StatusCompleted, "")
	return finish(), nil
}

// fanOut runs transcription and both caption formats concurrently and waits
// for all three regardless of individual failures.
func (o *Orchestrator) fanOut(ctx context.Context, rep *Report, m client.Media) []artifact {
	results := []artifact{{name: "transcript"}, {name: "WebVTT captions"}, {name: "SRT captions"}}

	var wg sync.WaitGroup
	wg.Add(len(results))
	go func() {
		defer wg.Done()
		rep.Transcript, results[0].err = o.api.Transcribe(ctx, rep.VideoID, m)
	}()
	go func() {
		defer wg.Done()
		rep.WebVTT, results[1].err = o.api.Captions(ctx, rep.VideoID, string(domain.CaptionWebVTT), m)
	}()
	go func() {
		defer wg.Done()
		rep.SRT, results[2].err = o.api.Captions(ctx, rep.VideoID, string(domain.CaptionSRT), m)
	}()
	wg.Wait()
	return results
}

func (o *Orchestrator) extract(ctx context.Context, path string) ([]client.Frame, error) {
	if o.frames == nil || path == "" {
		return nil, errors.New("no local file to sample")
	}
	d, err := o.frames.Duration(ctx, path)
	if err != nil {
		return nil, err
	}
	rnd := o.rnd
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var frames []client.Frame
	var lastErr error
	for _, ts := range PickTimestamps(d, FrameCount, rnd) {
		img, err := o.frames.Frame(ctx, path, ts)
		if err != nil {
			lastErr = err
			continue
		}
		frames = append(frames, client.Frame{Data: img, Timestamp: ts})
	}
	if len(frames) == 0 {
		if lastErr == nil {
			return nil, errors.New("no frames extracted")
		}
		return nil, fmt.Errorf("no frames extracted: %w", lastErr)
	}
	return frames, nil
}

func (o *Orchestrator) pause(ctx context.Context) error {
	if o.pacing.Step <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(o.pacing.Step)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
