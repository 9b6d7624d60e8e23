// Package youtube links channels over OAuth and publishes through the YouTube Data API.
package youtube

import (
	"context"
	"fmt"

	"github.com/creator-studio/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

// OAuth drives the authorization-code flow for channel linking.
type OAuth struct {
	cfg *oauth2.Config
}

func NewOAuth(clientID, clientSecret, redirectURL string) *OAuth {
	return &OAuth{cfg: &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			youtube.YoutubeUploadScope,
			youtube.YoutubeScope,
			youtube.YoutubeForceSslScope,
		},
		Endpoint: google.Endpoint,
	}}
}

// AuthURL is the consent URL. state carries the caller's user id back to the callback.
func (o *OAuth) AuthURL(state string) string {
	return o.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for tokens.
func (o *OAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := o.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w: %v", domain.ErrUnauthorized, err)
	}
	return tok, nil
}

// Refresh obtains a new access token from a stored refresh token.
func (o *OAuth) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tok, err := o.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w: %v", domain.ErrUnauthorized, err)
	}
	return tok, nil
}
