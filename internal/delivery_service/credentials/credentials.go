// Package credentials provides access tokens for the Gmail API sender.
package credentials

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/oauth2"

	"github.com/aradsms/greeting_services/internal/delivery_service/domain"
)

// GmailSendScope is the only scope the sender needs.
const GmailSendScope = "https://www.googleapis.com/auth/gmail.send"

var (
	_ domain.CredentialProvider = (*OAuth2Provider)(nil)
	_ domain.CredentialProvider = Static("")
)

// OAuth2Provider exchanges a stored refresh token for short-lived access tokens.
// Tokens are cached until shortly before expiry and refreshed on demand.
type OAuth2Provider struct {
	config       *oauth2.Config
	refreshToken string
	httpClient   *http.Client
	logger       *slog.Logger

	mu sync.Mutex
	ts oauth2.TokenSource
}

// NewOAuth2Provider builds a provider for the given client and token endpoint.
// httpClient may be nil.
func NewOAuth2Provider(clientID, clientSecret, tokenURL, refreshToken string, httpClient *http.Client, logger *slog.Logger) *OAuth2Provider {
	return &OAuth2Provider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
			Scopes:       []string{GmailSendScope},
		},
		refreshToken: refreshToken,
		httpClient:   httpClient,
		logger:       logger.With("component", "oauth2_credentials"),
	}
}

func (p *OAuth2Provider) tokenSource() oauth2.TokenSource {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ts == nil {
		// The context only carries the HTTP client used for refreshes; it must outlive any single request.
		ctx := context.Background()
		if p.httpClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
		}
		p.ts = p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: p.refreshToken})
	}
	return p.ts
}

// AccessToken returns a valid access token, refreshing it if the cached one expired.
func (p *OAuth2Provider) AccessToken(ctx context.Context) (string, error) {
	if p.refreshToken == "" {
		return "", fmt.Errorf("%w: no refresh token configured", domain.ErrCredentials)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.tokenSource().Token()
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to refresh OAuth2 access token", "error", err)
		return "", fmt.Errorf("%w: %v", domain.ErrCredentials, err)
	}
	return tok.AccessToken, nil
}

// Static is a fixed access token, for development or externally managed tokens.
type Static string

func (s Static) AccessToken(context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty static token", domain.ErrCredentials)
	}
	return string(s), nil
}
