package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/creator-studio/internal/pipeline"
	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var (
		outDir  string
		ffmpeg  string
		ffprobe string
		quiet   bool
	)
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video and generate titles, transcript and captions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := ctx.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			orch := pipeline.New(pipeline.Config{
				API:      api,
				Frames:   pipeline.FFmpeg{FFmpegBinary: ffmpeg, FFprobeBinary: ffprobe},
				Pacing:   pipeline.DefaultPacing,
				Observer: progressPrinter(out, quiet),
			})
			return runUpload(cmd.Context(), orch, out, args[0], outDir)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write transcript and caption files into")
	cmd.Flags().StringVar(&ffmpeg, "ffmpeg", "", "ffmpeg binary (default: ffmpeg on PATH)")
	cmd.Flags().StringVar(&ffprobe, "ffprobe", "", "ffprobe binary (default: ffprobe on PATH)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only print the final report")
	return cmd
}

type runner interface {
	Run(ctx context.Context, in pipeline.Input) (*pipeline.Report, error)
}

// progressPrinter prints a line whenever overall progress moves.
func progressPrinter(out io.Writer, quiet bool) func([]pipeline.Stage) {
	if quiet {
		return nil
	}
	last := -1
	return func(stages []pipeline.Stage) {
		p := pipeline.Progress(stages)
		if p == last {
			return
		}
		last = p
		fmt.Fprintln(out, progressLine(stages))
	}
}

func runUpload(ctx context.Context, r runner, out io.Writer, path, outDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read video: %w", err)
	}
	contentType := videoType(path)

	rep, runErr := r.Run(ctx, pipeline.Input{
		Path:        path,
		Name:        filepath.Base(path),
		ContentType: contentType,
		Data:        data,
	})
	if rep != nil {
		printReport(out, rep)
	}
	if runErr != nil {
		return runErr
	}
	if outDir != "" {
		if err := writeArtifacts(rep, outDir); err != nil {
			return err
		}
	}
	if rep.Outcome == pipeline.OutcomeFailed {
		return errors.New(rep.Summary)
	}
	return nil
}

func printReport(out io.Writer, rep *pipeline.Report) {
	fmt.Fprintln(out, renderStages(rep.Stages))
	if rep.VideoID != "" {
		fmt.Fprintf(out, "Video: %s\n", rep.VideoID)
	}
	if rep.Summary != "" {
		fmt.Fprintln(out, rep.Summary)
	}
	for _, m := range rep.Messages {
		fmt.Fprintf(out, "  - %s\n", m)
	}
	if a := rep.Analysis; a != nil {
		if len(a.Titles) > 0 {
			fmt.Fprintln(out, "Suggested titles:")
			for i, t := range a.Titles {
				fmt.Fprintf(out, "  %d. %s\n", i+1, t)
			}
		}
		if a.Description != "" {
			fmt.Fprintf(out, "Description:\n%s\n", a.Description)
		}
	}
	if t := rep.Transcript; t != nil {
		fmt.Fprintf(out, "Transcript: %d words, %.0f%% confidence\n", t.WordCount, t.Confidence*100)
	}
}

func writeArtifacts(rep *pipeline.Report, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := map[string][]byte{}
	if rep.Transcript != nil {
		files["transcript.txt"] = []byte(rep.Transcript.Text + "\n")
	}
	if len(rep.WebVTT) > 0 {
		files["captions.vtt"] = rep.WebVTT
	}
	if len(rep.SRT) > 0 {
		files["captions.srt"] = rep.SRT
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
}

func videoType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
