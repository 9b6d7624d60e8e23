package pipeline

import (
	"fmt"
	"math"
	"sync"
	"time"
)

type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusActive    StageStatus = "active"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
)

const (
	StageUpload        = "Upload"
	StageScreenshots   = "Screenshot Extraction"
	StageAnalysis      = "AI Analysis"
	StageAudio         = "Audio Processing"
	StageTranscription = "Transcription & Captions"
	StageFinalizing    = "Finalizing"
)

// Stage is one row of the progress display.
type Stage struct {
	Name     string
	Estimate time.Duration
	Status   StageStatus
	Message  string
}

func (s Stage) settled() bool {
	return s.Status == StatusCompleted || s.Status == StatusFailed
}

// Estimates returns the six stages with durations derived from the file size.
func Estimates(sizeBytes int64) []Stage {
	mb := float64(sizeBytes) / (1 << 20)
	perMB := func(floor, rate float64) time.Duration {
		return seconds(math.Max(floor, rate*mb))
	}
	return []Stage{
		{Name: StageUpload, Estimate: perMB(5, 0.5), Status: StatusPending},
		{Name: StageScreenshots, Estimate: 5 * time.Second, Status: StatusPending},
		{Name: StageAnalysis, Estimate: 15 * time.Second, Status: StatusPending},
		{Name: StageAudio, Estimate: perMB(3, 0.2), Status: StatusPending},
		{Name: StageTranscription, Estimate: perMB(15, 1), Status: StatusPending},
		{Name: StageFinalizing, Estimate: 3 * time.Second, Status: StatusPending},
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Tracker holds stage state and notifies an observer on every change.
type Tracker struct {
	mu       sync.Mutex
	stages   []Stage
	observer func([]Stage)
}

func NewTracker(stages []Stage, observer func([]Stage)) *Tracker {
	return &Tracker{stages: stages, observer: observer}
}

func (t *Tracker) set(name string, status StageStatus, msg string) {
	t.mu.Lock()
	for i := range t.stages {
		if t.stages[i].Name == name {
			t.stages[i].Status = status
			t.stages[i].Message = msg
		}
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()
	if t.observer != nil {
		t.observer(snap)
	}
}

func (t *Tracker) Stages() []Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []Stage {
	out := make([]Stage, len(t.stages))
	copy(out, t.stages)
	return out
}

// Progress is the rounded percentage of settled stages.
func (t *Tracker) Progress() int {
	return Progress(t.Stages())
}

// Remaining sums the estimates of stages that have not settled.
func (t *Tracker) Remaining() time.Duration {
	return Remaining(t.Stages())
}

func Progress(stages []Stage) int {
	if len(stages) == 0 {
		return 0
	}
	done := 0
	for _, s := range stages {
		if s.settled() {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(stages)) * 100))
}

func Remaining(stages []Stage) time.Duration {
	var d time.Duration
	for _, s := range stages {
		if !s.settled() {
			d += s.Estimate
		}
	}
	return d
}

// FormatRemaining renders d as "Ns remaining" or "Mm Ss remaining".
func FormatRemaining(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 60 {
		return fmt.Sprintf("%ds remaining", secs)
	}
	return fmt.Sprintf("%dm %ds remaining", secs/60, secs%60)
}
