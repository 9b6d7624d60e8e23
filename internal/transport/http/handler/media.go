package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/creator-studio/internal/application/analysis"
	"github.com/creator-studio/internal/application/transcription"
)

const (
	// multipartMemory is how much of a form is buffered in memory before spilling to disk.
	multipartMemory = 32 << 20
	// formSlack covers multipart framing and the small text fields next to the file.
	formSlack = 1 << 20
)

// MediaHandler serves transcription, captions and thumbnail analysis over multipart forms.
type MediaHandler struct {
	transcription transcription.Service
	analysis      analysis.Service
	maxBytes      int64
}

func NewMediaHandler(ts transcription.Service, as analysis.Service, maxMediaBytes int64) *MediaHandler {
	return &MediaHandler{transcription: ts, analysis: as, maxBytes: maxMediaBytes}
}

// parseForm bounds and parses a multipart body. On failure it writes the response.
func (h *MediaHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formSlack)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("file too large, maximum size is %dMB", h.maxBytes>>20))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return false
	}
	return true
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// mediaFrom reads the "file" field.
func (h *MediaHandler) mediaFrom(w http.ResponseWriter, r *http.Request) (transcription.Media, bool) {
	if !h.parseForm(w, r) {
		return transcription.Media{}, false
	}
	_, fh, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return transcription.Media{}, false
	}
	data, err := readPart(fh)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return transcription.Media{}, false
	}
	return transcription.Media{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

type transcribeResponse struct {
	Success   bool                 `json:"success"`
	Result    transcription.Result `json:"result"`
	FromCache bool                 `json:"fromCache,omitempty"`
}

func (h *MediaHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	m, ok := h.mediaFrom(w, r)
	if !ok {
		return
	}
	out, err := h.transcription.Transcribe(r.Context(), p, r.FormValue("videoId"), m)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transcribeResponse{Success: true, Result: out.Result, FromCache: out.FromCache})
}

type ticketResponse struct {
	Success bool `json:"success"`
	transcription.Ticket
	Message string `json:"message"`
}

func (h *MediaHandler) TranscribeAsync(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	m, ok := h.mediaFrom(w, r)
	if !ok {
		return
	}
	t, err := h.transcription.StartAsync(r.Context(), p, r.FormValue("videoId"), m)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, ticketResponse{
		Success: true,
		Ticket:  *t,
		Message: "Transcription started. Poll GET /v1/transcribe-async?jobId= for progress.",
	})
}

type jobResponse struct {
	Success bool `json:"success"`
	*transcription.Job
}

func (h *MediaHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "Job ID required")
		return
	}
	job, err := h.transcription.Job(r.Context(), p, jobID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobResponse{Success: true, Job: job})
}

// Captions returns the caption file itself as an attachment.
func (h *MediaHandler) Captions(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	m, ok := h.mediaFrom(w, r)
	if !ok {
		return
	}
	c, err := h.transcription.Captions(r.Context(), p, r.FormValue("videoId"), r.FormValue("format"), m)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", c.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+c.FileName)
	w.Header().Set("X-Processing-Time", strconv.FormatInt(c.ProcessingTime.Milliseconds(), 10)+"ms")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, c.Body)
}

// Analyze accepts screenshots as file parts or base64 strings, with optional
// per-frame timestamps in seconds.
func (h *MediaHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if !h.parseForm(w, r) {
		return
	}
	shots, err := screenshots(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.analysis.Analyze(r.Context(), p, analysis.Request{
		VideoID:        r.FormValue("videoId"),
		TranscriptText: r.FormValue("transcriptText"),
		Screenshots:    shots,
	})
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func screenshots(form *multipart.Form) ([]analysis.Screenshot, error) {
	var shots []analysis.Screenshot
	for _, fh := range form.File["screenshots"] {
		data, err := readPart(fh)
		if err != nil {
			return nil, fmt.Errorf("could not read screenshot %s", fh.Filename)
		}
		shots = append(shots, analysis.Screenshot{Data: data})
	}
	for i, raw := range form.Value["screenshots"] {
		if _, rest, ok := strings.Cut(raw, ","); ok && strings.HasPrefix(raw, "data:") {
			raw = rest
		}
		data, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("screenshot %d is not valid base64", i+1)
		}
		shots = append(shots, analysis.Screenshot{Data: data})
	}
	for i, ts := range form.Value["timestamps"] {
		if i >= len(shots) {
			break
		}
		if v, err := strconv.ParseFloat(ts, 64); err == nil {
			shots[i].Timestamp = v
		}
	}
	return shots, nil
}
