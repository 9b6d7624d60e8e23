package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
)

// UploadTarget is where the raw bytes go.
type UploadTarget struct {
	UploadURL   string `json:"uploadUrl"`
	Key         string `json:"key"`
	RecordID    string `json:"recordId"`
	VideoFileID string `json:"videoFileId,omitempty"`
}

// Transcript is a transcription result.
type Transcript struct {
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence"`
	Language       string  `json:"language"`
	WordCount      int     `json:"wordCount"`
	ProcessingTime int64   `json:"processingTime"`
}

// ThumbnailConcept describes the suggested thumbnail layout.
type ThumbnailConcept struct {
	VisualLayout       string   `json:"visual_layout"`
	TextOverlay        string   `json:"text_overlay"`
	ColorScheme        string   `json:"color_scheme"`
	KeyElements        []string `json:"key_elements"`
	MobileOptimization string   `json:"mobile_optimization"`
}

// Analysis holds the model's suggestions. GeneratedImages are data URIs.
type Analysis struct {
	Titles           []string         `json:"titles"`
	Description      string           `json:"description"`
	ThumbnailConcept ThumbnailConcept `json:"thumbnailConcept"`
	ThumbnailPrompt  string           `json:"thumbnailPrompt"`
	GeneratedImages  []string         `json:"generatedImages"`
}

// Frame is one extracted screenshot.
type Frame struct {
	Data      []byte
	Timestamp float64
}

// Media is a file sent as the "file" multipart field.
type Media struct {
	Name        string
	ContentType string
	Data        []byte
}

// PublishRequest mirrors the publish endpoint's body.
type PublishRequest struct {
	VideoID         string   `json:"videoId"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	ThumbnailBase64 string   `json:"thumbnailBase64,omitempty"`
	PrivacyStatus   string   `json:"privacyStatus,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// Published is the outcome of a publish call.
type Published struct {
	Success        bool   `json:"success"`
	YouTubeURL     string `json:"youtubeUrl"`
	YouTubeVideoID string `json:"youtubeVideoId"`
	UploadID       string `json:"uploadId"`
	ChannelTitle   string `json:"channelTitle"`
}

// RequestUpload asks for a presigned PUT target for a new video.
func (c *Client) RequestUpload(ctx context.Context, fileName, fileType string) (*UploadTarget, error) {
	in := map[string]string{"fileName": fileName, "fileType": fileType, "uploadType": "video"}
	var out UploadTarget
	if err := c.doJSON(ctx, http.MethodPost, "/v1/upload", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PutObject sends data to a presigned URL. No bearer token is attached.
func (c *Client) PutObject(ctx context.Context, uploadURL, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))
	return c.send(req, nil)
}

// ConfirmUpload marks the video as uploaded once the object exists.
func (c *Client) ConfirmUpload(ctx context.Context, videoID string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/videos/"+videoID+"/generate", nil, nil)
}

func (c *Client) Transcribe(ctx context.Context, videoID string, m Media) (*Transcript, error) {
	var out struct {
		Result Transcript `json:"result"`
	}
	fields := map[string]string{"videoId": videoID}
	if err := c.multipart(ctx, "/v1/transcribe", fields, &m, nil, &out); err != nil {
		return nil, err
	}
	return &out.Result, nil
}

// Captions returns the caption file body in the requested format.
func (c *Client) Captions(ctx context.Context, videoID, format string, m Media) ([]byte, error) {
	body, ctype, err := encodeForm(map[string]string{"videoId": videoID, "format": format}, &m, nil)
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/v1/captions", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", ctype)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /v1/captions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, decodeError(resp)
	}
	return io.ReadAll(resp.Body)
}

// Analyze sends frames and an optional transcript for title and thumbnail suggestions.
func (c *Client) Analyze(ctx context.Context, videoID, transcript string, frames []Frame) (*Analysis, error) {
	var out struct {
		Analysis Analysis `json:"analysis"`
	}
	fields := map[string]string{"videoId": videoID}
	if transcript != "" {
		fields["transcriptText"] = transcript
	}
	if err := c.multipart(ctx, "/v1/analyze-video", fields, nil, frames, &out); err != nil {
		return nil, err
	}
	return &out.Analysis, nil
}

// UpdateVideo saves the chosen title and optional base64 thumbnail.
func (c *Client) UpdateVideo(ctx context.Context, videoID, title, thumbnail string) error {
	in := map[string]string{"videoId": videoID, "title": title}
	if thumbnail != "" {
		in["thumbnailKey"] = thumbnail
	}
	return c.doJSON(ctx, http.MethodPost, "/v1/update-video", in, nil)
}

func (c *Client) Publish(ctx context.Context, req PublishRequest) (*Published, error) {
	var out Published
	if err := c.doJSON(ctx, http.MethodPost, "/v1/youtube/upload", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) multipart(ctx context.Context, path string, fields map[string]string, m *Media, frames []Frame, out any) error {
	body, ctype, err := encodeForm(fields, m, frames)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", ctype)
	return c.send(req, out)
}

func encodeForm(fields map[string]string, m *Media, frames []Frame) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if m != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, m.Name))
		h.Set("Content-Type", m.ContentType)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(m.Data); err != nil {
			return nil, "", err
		}
	}
	for i, f := range frames {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="screenshots"; filename="frame-%d.jpg"`, i+1))
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
		if err := w.WriteField("timestamps", strconv.FormatFloat(f.Timestamp, 'f', -1, 64)); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
