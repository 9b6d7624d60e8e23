package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimates(t *testing.T) {
	t.Run("small file uses floors", func(t *testing.T) {
		got := Estimates(1 << 20)
		require.Len(t, got, 6)
		assert.Equal(t, 5*time.Second, got[0].Estimate)
		assert.Equal(t, 3*time.Second, got[3].Estimate)
		assert.Equal(t, 15*time.Second, got[4].Estimate)
	})
	t.Run("20MB scales with size", func(t *testing.T) {
		got := Estimates(20 << 20)
		assert.Equal(t, 10*time.Second, got[0].Estimate)
		assert.Equal(t, 5*time.Second, got[1].Estimate)
		assert.Equal(t, 15*time.Second, got[2].Estimate)
		assert.Equal(t, 4*time.Second, got[3].Estimate)
		assert.Equal(t, 20*time.Second, got[4].Estimate)
		assert.Equal(t, 3*time.Second, got[5].Estimate)
	})
}

func TestProgressAndRemaining(t *testing.T) {
	stages := Estimates(0)
	assert.Equal(t, 0, Progress(stages))
	assert.Equal(t, 46*time.Second, Remaining(stages))

	stages[0].Status = StatusCompleted
	stages[1].Status = StatusFailed
	stages[2].Status = StatusActive
	assert.Equal(t, 33, Progress(stages))
	assert.Equal(t, 36*time.Second, Remaining(stages))

	for i := range stages {
		stages[i].Status = StatusCompleted
	}
	assert.Equal(t, 100, Progress(stages))
	assert.Zero(t, Remaining(stages))
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "45s remaining", FormatRemaining(45*time.Second))
	assert.Equal(t, "1s remaining", FormatRemaining(500*time.Millisecond))
	assert.Equal(t, "2m 5s remaining", FormatRemaining(125*time.Second))
	assert.Equal(t, "1m 0s remaining", FormatRemaining(time.Minute))
}

func TestTracker_NotifiesObserver(t *testing.T) {
	var seen [][]Stage
	tr := NewTracker(Estimates(0), func(s []Stage) { seen = append(seen, s) })

	tr.set(StageUpload, StatusActive, "")
	tr.set(StageUpload, StatusCompleted, "done")

	require.Len(t, seen, 2)
	assert.Equal(t, StatusActive, seen[0][0].Status)
	assert.Equal(t, StatusCompleted, seen[1][0].Status)
	assert.Equal(t, "done", tr.Stages()[0].Message)
	assert.Equal(t, 17, tr.Progress())
}
