package handler

import (
	"net/http"
	"strconv"

	"github.com/creator-studio/internal/application/user"
	"github.com/creator-studio/internal/domain"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles profile endpoints. "me" in the path resolves to the caller.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

// target resolves the {id} path parameter, defaulting to the caller.
func target(r *http.Request, p domain.Principal) string {
	id := chi.URLParam(r, "id")
	if id == "" || id == "me" {
		return p.UserID
	}
	return id
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if limit < 1 {
		limit = 50
	}
	users, next, err := h.svc.List(r.Context(), p, limit, r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PaginatedUsersEnvelope{Data: users, NextCursor: next, PerPage: limit})
}

func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.svc.Get(r.Context(), p, target(r, p))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req domain.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.svc.Update(r.Context(), p, target(r, p), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), p, target(r, p)); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "user deleted"})
}
