package handler

import (
	"net/http"
	"strings"

	"github.com/creator-studio/internal/application/auth"
)

// AuthHandler serves the sign-in wizard: account lookup, email codes and the second factor.
type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) CheckUser(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.LookupAccount(r.Context(), req.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) IssueOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.IssueOTP(r.Context(), req.Email); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Verification code sent"})
}

// EmailCallback consumes the emailed code. Any failure is reported as 401.
func (h *AuthHandler) EmailCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	email, code := q.Get("email"), q.Get("token")
	if email == "" || code == "" {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	res, err := h.svc.ConsumeOTP(r.Context(), email, code)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired code")
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		AccessToken:  res.Bearer,
		RefreshToken: res.RefreshToken,
		Session:      res.Session,
		User:         res.Session.User,
		CallbackURL:  safeCallback(q.Get("callbackUrl")),
	})
}

func (h *AuthHandler) VerifySecondFactor(w http.ResponseWriter, r *http.Request) {
	var req auth.SecondFactorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.VerifySecondFactor(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// safeCallback only allows same-origin paths.
func safeCallback(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, `\`) {
		return "/"
	}
	return raw
}
