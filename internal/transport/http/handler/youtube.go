package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/creator-studio/internal/application/publish"
)

// YouTubeHandler links a channel and publishes videos to it.
type YouTubeHandler struct {
	svc publish.Service
	// returnURL is where the browser lands after the OAuth callback.
	returnURL string
}

func NewYouTubeHandler(svc publish.Service, publicBaseURL string) *YouTubeHandler {
	return &YouTubeHandler{svc: svc, returnURL: strings.TrimRight(publicBaseURL, "/") + "/youtube/integration"}
}

func (h *YouTubeHandler) back(w http.ResponseWriter, r *http.Request, key, value string) {
	http.Redirect(w, r, h.returnURL+"?"+url.Values{key: {value}}.Encode(), http.StatusFound)
}

// Connect answers with the consent URL; ?redirect=1 sends the browser there directly.
func (h *YouTubeHandler) Connect(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	consent, err := h.svc.Connect(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	if r.URL.Query().Get("redirect") != "" {
		http.Redirect(w, r, consent, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authUrl": consent})
}

// Callback is the OAuth redirect target. It always answers with a redirect.
func (h *YouTubeHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		slog.Warn("youtube oauth error", "error", e)
		h.back(w, r, "error", "oauth_error")
		return
	}
	if q.Get("code") == "" || q.Get("state") == "" {
		h.back(w, r, "error", "missing_params")
		return
	}
	if _, err := h.svc.Callback(r.Context(), q.Get("code"), q.Get("state")); err != nil {
		slog.Warn("youtube oauth callback failed", "err", err)
		reason := "processing_failed"
		switch statusFor(err) {
		case http.StatusUnauthorized:
			reason = "unauthorized"
		case http.StatusBadRequest:
			reason = "no_channel_found"
		}
		h.back(w, r, "error", reason)
		return
	}
	h.back(w, r, "success", "connected")
}

func (h *YouTubeHandler) Status(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Status(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *YouTubeHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Disconnect(r.Context(), p); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "YouTube account disconnected"})
}

func (h *YouTubeHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Refresh(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type duplicateEnvelope struct {
	Error      string `json:"error"`
	YouTubeURL string `json:"youtubeUrl,omitempty"`
}

func (h *YouTubeHandler) Upload(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req publish.UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.Upload(r.Context(), p, req)
	var dup *publish.DuplicateError
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, duplicateEnvelope{Error: dup.Error(), YouTubeURL: dup.YouTubeURL})
	case err != nil:
		httpError(w, err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *YouTubeHandler) History(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	uploads, err := h.svc.History(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "uploads": uploads})
}
