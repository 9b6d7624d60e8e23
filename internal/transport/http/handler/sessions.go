package handler

import (
	"net/http"

	"github.com/creator-studio/internal/application/auth"
	"github.com/creator-studio/internal/application/session"
)

// SessionHandler handles session endpoints.
type SessionHandler struct {
	auth auth.Service
	svc  session.Service
}

func NewSessionHandler(authSvc auth.Service, svc session.Service) *SessionHandler {
	return &SessionHandler{auth: authSvc, svc: svc}
}

type credentialsRequest struct {
	Email          string `json:"email" validate:"required,email"`
	ChallengeToken string `json:"challengeToken" validate:"required"`
}

// Credentials completes a two-factor sign-in with the challenge token.
func (h *SessionHandler) Credentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.auth.SignInWithChallenge(r.Context(), req.Email, req.ChallengeToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signedIn(res))
}

type googleRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

func (h *SessionHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req googleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.auth.SignInWithGoogle(r.Context(), req.IDToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, signedIn(res))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	bearer, newToken, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{AccessToken: bearer, RefreshToken: newToken})
}

func (h *SessionHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	sess, err := h.svc.GetCurrent(r.Context(), p)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionEnvelope{Session: sess, User: sess.User})
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p, ok := caller(w, r)
	if !ok {
		return
	}
	if err := h.svc.Logout(r.Context(), p); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "logged out"})
}

func signedIn(res *auth.SignInResult) AuthEnvelope {
	return AuthEnvelope{
		AccessToken:  res.Bearer,
		RefreshToken: res.RefreshToken,
		Session:      res.Session,
		User:         res.Session.User,
	}
}
