package client

import (
	"context"
	"net/http"
	"net/url"
)

// Account is the result of an email lookup.
type Account struct {
	Exists           bool   `json:"exists"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
	UserID           string `json:"userId,omitempty"`
}

// SecondFactor is the result of a TOTP or backup-code check.
type SecondFactor struct {
	Valid                bool   `json:"valid"`
	RemainingBackupCodes *int   `json:"remainingBackupCodes,omitempty"`
	ChallengeToken       string `json:"challengeToken"`
}

// Session holds the tokens minted by a successful sign-in.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	CallbackURL  string `json:"callbackUrl,omitempty"`
}

type emailBody struct {
	Email string `json:"email"`
}

func (c *Client) LookupAccount(ctx context.Context, email string) (*Account, error) {
	var out Account
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/check-user", emailBody{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) IssueOTP(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/auth/otp", emailBody{Email: email}, nil)
}

// ConsumeOTP redeems an emailed code and stores the access token on success.
func (c *Client) ConsumeOTP(ctx context.Context, email, code string) (*Session, error) {
	path := query("/v1/auth/callback/email", url.Values{"email": {email}, "token": {code}})
	var out Session
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}

func (c *Client) VerifySecondFactor(ctx context.Context, email, code string, isBackupCode bool) (*SecondFactor, error) {
	in := struct {
		Email        string `json:"email"`
		Code         string `json:"code"`
		IsBackupCode bool   `json:"isBackupCode"`
	}{email, code, isBackupCode}
	var out SecondFactor
	if err := c.doJSON(ctx, http.MethodPost, "/v1/auth/2fa/verify", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignInWithChallenge exchanges a second-factor challenge token for a session.
func (c *Client) SignInWithChallenge(ctx context.Context, email, challengeToken string) (*Session, error) {
	in := struct {
		Email          string `json:"email"`
		ChallengeToken string `json:"challengeToken"`
	}{email, challengeToken}
	var out Session
	if err := c.doJSON(ctx, http.MethodPost, "/v1/sessions/credentials", in, &out); err != nil {
		return nil, err
	}
	c.SetToken(out.AccessToken)
	return &out, nil
}
