package domain

import "errors"

// Services wrap one of these; handlers and the API client map them to and
// from HTTP status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
	ErrExpired      = errors.New("expired")
	ErrRateLimited  = errors.New("rate limited")
	// ErrUnavailable marks a collaborator (transcription, analysis,
	// publishing) that failed or could not be reached.
	ErrUnavailable = errors.New("collaborator unavailable")
)
