package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// FrameCount is how many screenshots go to analysis.
	FrameCount = 3
	edgeSkip   = 2.0
	minGap     = 1.0
)

// PickTimestamps returns n ascending timestamps in seconds, skipping the first
// and last two seconds and at least one second apart. Clips too short for
// that get evenly spaced timestamps instead.
func PickTimestamps(duration float64, n int, rnd *rand.Rand) []float64 {
	if n <= 0 || duration <= 0 {
		return nil
	}
	lo, hi := edgeSkip, duration-edgeSkip
	width := (hi - lo) / float64(n)
	out := make([]float64, n)
	if width < minGap {
		for i := range out {
			out[i] = duration * float64(i+1) / float64(n+1)
		}
		return out
	}
	// One point per equal segment, kept minGap clear of the next segment.
	for i := range out {
		out[i] = lo + float64(i)*width + rnd.Float64()*(width-minGap)
	}
	return out
}

// FrameExtractor reads still frames out of a local video file.
type FrameExtractor interface {
	Duration(ctx context.Context, path string) (float64, error)
	Frame(ctx context.Context, path string, at float64) ([]byte, error)
}

// FFmpeg extracts frames with the ffmpeg and ffprobe binaries.
type FFmpeg struct {
	FFmpegBinary  string
	FFprobeBinary string
}

func (f FFmpeg) ffmpeg() string {
	if f.FFmpegBinary == "" {
		return "ffmpeg"
	}
	return f.FFmpegBinary
}

func (f FFmpeg) ffprobe() string {
	if f.FFprobeBinary == "" {
		return "ffprobe"
	}
	return f.FFprobeBinary
}

// Duration returns the container duration in seconds.
func (f FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	out, err := exec.CommandContext(ctx, f.ffprobe(), args...).Output() //nolint:gosec
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w", err)
	}
	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", strings.TrimSpace(string(out)), err)
	}
	return d, nil
}

// Frame returns one JPEG frame at the given offset.
func (f FFmpeg) Frame(ctx context.Context, path string, at float64) ([]byte, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "3",
		"-f", "image2",
		"-c:v", "mjpeg",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, f.ffmpeg(), args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame at %.2fs: %w: %s", at, err, strings.TrimSpace(stderr.String()))
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg frame at %.2fs: no image produced", at)
	}
	return out, nil
}
