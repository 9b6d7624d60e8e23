package transcription

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/creator-studio/internal/domain"
)

// Media is an uploaded audio or video file held in memory.
type Media struct {
	Name        string
	ContentType string
	Data        []byte
}

func (m Media) Size() int64 { return int64(len(m.Data)) }

// cacheKey identifies repeat submissions of the same bytes by the same user.
// Results are never shared across users.
func (m Media) cacheKey(userID string) string {
	sum := sha256.Sum256(m.Data)
	return userID + ":" + hex.EncodeToString(sum[:])
}

var allowedTypes = map[string]bool{
	"video/mp4":        true,
	"video/avi":        true,
	"video/x-msvideo":  true,
	"video/mov":        true,
	"video/quicktime":  true,
	"video/wmv":        true,
	"video/x-ms-wmv":   true,
	"video/flv":        true,
	"video/x-flv":      true,
	"video/webm":       true,
	"video/mkv":        true,
	"video/x-matroska": true,
	"audio/mp3":        true,
	"audio/mpeg":       true,
	"audio/wav":        true,
	"audio/x-wav":      true,
	"audio/m4a":        true,
	"audio/x-m4a":      true,
	"audio/mp4":        true,
	"audio/ogg":        true,
}

func baseType(contentType string) string {
	t, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(t))
}

// check applies the upload policy: a supported media type no larger than maxBytes.
func check(m Media, maxBytes int64) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("no file provided: %w", domain.ErrBadRequest)
	}
	if !allowedTypes[baseType(m.ContentType)] {
		return fmt.Errorf("invalid file type, supported: MP4, AVI, MOV, WMV, FLV, WebM, MKV, MP3, WAV, M4A, OGG: %w", domain.ErrBadRequest)
	}
	if m.Size() > maxBytes {
		return fmt.Errorf("file too large, maximum size is %dMB: %w", maxBytes>>20, domain.ErrBadRequest)
	}
	return nil
}
