package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/creator-studio/internal/config"
	"github.com/creator-studio/internal/pkg/id"
	"github.com/golang-jwt/jwt/v5"
)

// PurposeSecondFactor marks a token that only proves the first factor passed.
const PurposeSecondFactor = "2fa_challenge"

// ErrWrongPurpose is returned when a token is presented where another kind is expected.
var ErrWrongPurpose = errors.New("token purpose mismatch")

// Claims holds the JWT payload fields.
type Claims struct {
	UserID    string `json:"user_id"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Email     string `json:"email,omitempty"`
	// Purpose is empty on session tokens.
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 JWTs.
type Provider struct {
	privateKey      *rsa.PrivateKey
	publicKey       *rsa.PublicKey
	expiry          time.Duration
	challengeExpiry time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	challenge := cfg.ChallengeExpiry
	if challenge <= 0 {
		challenge = 5 * time.Minute
	}
	return &Provider{privateKey: privKey, publicKey: pubKey, expiry: cfg.JWTExpiry, challengeExpiry: challenge}, nil
}

// Sign issues a session access token.
func (p *Provider) Sign(userID, email, role, sessionID string) (string, error) {
	return p.sign(Claims{UserID: userID, Email: email, Role: role, SessionID: sessionID}, p.expiry)
}

// SignChallenge issues a short-lived token proving the second factor was verified
// for userID. It cannot be used as a bearer token.
func (p *Provider) SignChallenge(userID, email string) (string, error) {
	return p.sign(Claims{UserID: userID, Email: email, Purpose: PurposeSecondFactor}, p.challengeExpiry)
}

func (p *Provider) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        id.New(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

// Verify parses a session token. Challenge tokens are rejected.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	claims, err := p.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != "" {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

// VerifyChallenge parses a challenge token issued by SignChallenge.
func (p *Provider) VerifyChallenge(tokenStr string) (*Claims, error) {
	claims, err := p.parse(tokenStr)
	if err != nil {
		return nil, err
	}
	if claims.Purpose != PurposeSecondFactor {
		return nil, ErrWrongPurpose
	}
	return claims, nil
}

func (p *Provider) parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
