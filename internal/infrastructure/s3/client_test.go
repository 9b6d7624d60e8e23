package s3infra

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectContentType(t *testing.T) {
	cases := map[string]string{
		"uploads/u1/clip_1.MP4":        "video/mp4",
		"subtitles/u1/clip_1.vtt":      "text/vtt",
		"subtitles/u1/clip_1.srt":      "application/x-subrip",
		"thumbnails/u1/v1/abc.png":     "image/png",
		"transcripts/u1/clip_1.txt":    "text/plain",
		"uploads/u1/no-extension":      "application/octet-stream",
		"uploads/u1/archive.tar.bogus": "application/octet-stream",
	}
	for key, want := range cases {
		assert.Equal(t, want, DetectContentType(key), key)
	}
}

func TestObjectURL(t *testing.T) {
	s := &Store{bucket: "media"}
	assert.Equal(t, "https://media.s3.amazonaws.com/uploads/u1/a.mp4", s.ObjectURL("uploads/u1/a.mp4"))
}
