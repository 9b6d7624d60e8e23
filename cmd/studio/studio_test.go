package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/creator-studio/internal/authflow"
	"github.com/creator-studio/internal/client"
	"github.com/creator-studio/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuth struct {
	twoFactor bool
	otp       string
	issued    int
	consumed  []string
}

func (s *stubAuth) LookupAccount(ctx context.Context, email string) (*client.Account, error) {
	return &client.Account{Exists: true, TwoFactorEnabled: s.twoFactor, UserID: "u1"}, nil
}

func (s *stubAuth) IssueOTP(ctx context.Context, email string) error {
	s.issued++
	return nil
}

func (s *stubAuth) ConsumeOTP(ctx context.Context, email, code string) (*client.Session, error) {
	s.consumed = append(s.consumed, code)
	if code != s.otp {
		return nil, errors.New("invalid")
	}
	return &client.Session{AccessToken: "at-" + email}, nil
}

func (s *stubAuth) VerifySecondFactor(ctx context.Context, email, code string, isBackupCode bool) (*client.SecondFactor, error) {
	if isBackupCode && code == "ABCD2345" {
		remaining := 7
		return &client.SecondFactor{Valid: true, RemainingBackupCodes: &remaining, ChallengeToken: "ch"}, nil
	}
	return &client.SecondFactor{Valid: false}, nil
}

func (s *stubAuth) SignInWithChallenge(ctx context.Context, email, challengeToken string) (*client.Session, error) {
	return &client.Session{AccessToken: "via-" + challengeToken}, nil
}

func TestRunLogin_EmailCode(t *testing.T) {
	api := &stubAuth{otp: "123456"}
	in := strings.NewReader("me@example.com\nabc\n111-111\n123 456\n")
	var out bytes.Buffer

	session, err := runLogin(context.Background(), api, in, &out, "", authflow.Pacing{})
	require.NoError(t, err)
	assert.Equal(t, "at-me@example.com", session.AccessToken)
	assert.Equal(t, 1, api.issued)
	assert.Equal(t, []string{"111111", "123456"}, api.consumed)
	assert.Contains(t, out.String(), "Enter the 6-digit code.")
	assert.Contains(t, out.String(), "[error] Invalid OTP: 2 attempts remaining.")
	assert.Contains(t, out.String(), "[ok] Login Successful")
}

func TestRunLogin_BackupCode(t *testing.T) {
	api := &stubAuth{twoFactor: true}
	in := strings.NewReader("u\nabcd-2345\n")
	var out bytes.Buffer

	session, err := runLogin(context.Background(), api, in, &out, "me@example.com", authflow.Pacing{})
	require.NoError(t, err)
	assert.Equal(t, "via-ch", session.AccessToken)
	assert.Zero(t, api.issued)
	assert.Contains(t, out.String(), "7 backup codes remaining.")
}

func TestRunLogin_InputClosed(t *testing.T) {
	api := &stubAuth{otp: "123456"}
	_, err := runLogin(context.Background(), api, strings.NewReader("me@example.com\n"), &bytes.Buffer{}, "", authflow.Pacing{})
	assert.ErrorIs(t, err, errInputClosed)
}

type stubRunner struct {
	rep *pipeline.Report
	err error
	got pipeline.Input
}

func (s *stubRunner) Run(ctx context.Context, in pipeline.Input) (*pipeline.Report, error) {
	s.got = in
	return s.rep, s.err
}

func settledStages(status pipeline.StageStatus) []pipeline.Stage {
	stages := pipeline.Estimates(1 << 20)
	for i := range stages {
		stages[i].Status = status
	}
	return stages
}

func TestRunUpload_WritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("data"), 0o644))

	r := &stubRunner{rep: &pipeline.Report{
		VideoID:    "v1",
		Outcome:    pipeline.OutcomeComplete,
		Stages:     settledStages(pipeline.StatusCompleted),
		Analysis:   &client.Analysis{Titles: []string{"First", "Second"}},
		Transcript: &client.Transcript{Text: "hello there", WordCount: 2, Confidence: 0.9},
		WebVTT:     []byte("WEBVTT\n"),
		SRT:        []byte("1\n"),
	}}
	var out bytes.Buffer
	outDir := filepath.Join(dir, "out")

	require.NoError(t, runUpload(context.Background(), r, &out, video, outDir))
	assert.Equal(t, "clip.mp4", r.got.Name)
	assert.Equal(t, "video/mp4", r.got.ContentType)
	assert.Equal(t, []byte("data"), r.got.Data)

	vtt, err := os.ReadFile(filepath.Join(outDir, "captions.vtt"))
	require.NoError(t, err)
	assert.Equal(t, "WEBVTT\n", string(vtt))
	assert.FileExists(t, filepath.Join(outDir, "captions.srt"))
	assert.FileExists(t, filepath.Join(outDir, "transcript.txt"))

	s := out.String()
	assert.Contains(t, s, "1. First")
	assert.Contains(t, s, "Transcript: 2 words, 90% confidence")
	assert.Contains(t, s, "Screenshot Extraction")
}

func TestRunUpload_FailedOutcome(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mov")
	require.NoError(t, os.WriteFile(video, []byte("data"), 0o644))

	r := &stubRunner{rep: &pipeline.Report{
		Outcome: pipeline.OutcomeFailed,
		Summary: "Transcription, WebVTT captions and SRT captions failed",
		Stages:  settledStages(pipeline.StatusFailed),
	}}
	err := runUpload(context.Background(), r, &bytes.Buffer{}, video, "")
	require.Error(t, err)
	assert.Equal(t, r.rep.Summary, err.Error())
}

func TestRunUpload_TransferError(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(video, []byte("data"), 0o644))

	boom := errors.New("upload failed")
	r := &stubRunner{rep: &pipeline.Report{Stages: pipeline.Estimates(4)}, err: boom}
	err := runUpload(context.Background(), r, &bytes.Buffer{}, video, filepath.Join(dir, "out"))
	assert.ErrorIs(t, err, boom)
	assert.NoDirExists(t, filepath.Join(dir, "out"))
}

func TestProgressLine(t *testing.T) {
	stages := pipeline.Estimates(0)
	stages[0].Status = pipeline.StatusCompleted
	stages[1].Status = pipeline.StatusActive

	assert.Equal(t, "17%  41s remaining  [Screenshot Extraction]", progressLine(stages))
}

func TestRenderStagesLabels(t *testing.T) {
	stages := pipeline.Estimates(0)
	stages[0].Status = pipeline.StatusCompleted
	stages[2].Status = pipeline.StatusFailed
	stages[2].Message = "AI analysis failed"

	s := renderStages(stages)
	assert.Contains(t, s, "done")
	assert.Contains(t, s, "failed")
	assert.Contains(t, s, "waiting")
	assert.Contains(t, s, "AI analysis failed")
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")

	got, err := loadToken(path)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, saveToken(path, "abc"))
	got, err = loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)
}
