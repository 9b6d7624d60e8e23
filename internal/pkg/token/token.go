// Package token generates opaque bearer secrets.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// refreshBytes is the entropy of a refresh token, rendered as 64 hex chars.
const refreshBytes = 32

// NewRefreshToken returns a random hex token used as a session's refresh secret.
func NewRefreshToken() (string, error) {
	b, err := read(refreshBytes)
	if err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// URLSafe returns n random bytes encoded for use in query strings.
func URLSafe(n int) (string, error) {
	b, err := read(n)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func read(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
