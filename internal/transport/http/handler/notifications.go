package handler

import (
	"log/slog"
	"net/http"

	"github.com/creator-studio/internal/application/notification"
	"github.com/go-chi/chi/v5"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) ListUnread(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	notifications, err := h.svc.ListUnread(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkAsRead(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// MarkAllAsRead reports the rows it changed even when some updates failed.
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkAllAsRead(r.Context(), p)
	if err != nil {
		slog.Warn("mark all notifications read incomplete", "user_id", p.UserID, "marked", n, "err", err)
		writeError(w, http.StatusInternalServerError, "some notifications could not be updated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}
