package handler

import (
	"net/http"

	"github.com/creator-studio/internal/application/twofactor"
)

// TwoFactorHandler handles authenticator enrollment for the signed-in user.
type TwoFactorHandler struct {
	svc twofactor.Service
}

func NewTwoFactorHandler(svc twofactor.Service) *TwoFactorHandler {
	return &TwoFactorHandler{svc: svc}
}

func (h *TwoFactorHandler) Setup(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Setup(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *TwoFactorHandler) VerifySetup(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req twofactor.VerifySetupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.VerifySetup(r.Context(), p, req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Code verified"})
}

func (h *TwoFactorHandler) Enable(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	var req twofactor.EnableRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.Enable(r.Context(), p, req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Two-factor authentication enabled"})
}

func (h *TwoFactorHandler) Disable(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Disable(r.Context(), p); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Success: true, Message: "Two-factor authentication disabled"})
}
