package handler

import (
	"net/http"

	"github.com/creator-studio/internal/application/video"
	"github.com/go-chi/chi/v5"
)

// VideoHandler handles upload URLs, the video library and post-pipeline metadata.
type VideoHandler struct {
	svc video.Service
}

func NewVideoHandler(svc video.Service) *VideoHandler { return &VideoHandler{svc: svc} }

func (h *VideoHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req video.UploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	target, err := h.svc.RequestUpload(r.Context(), p, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// ConfirmUpload marks the video's bytes as present and returns its pipeline task.
func (h *VideoHandler) ConfirmUpload(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	task, err := h.svc.ConfirmUpload(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "task": task})
}

func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	videos, err := h.svc.List(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, videos)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *VideoHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req video.UpdateMetadataRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v, err := h.svc.UpdateMetadata(r.Context(), p, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "video": v})
}
