package oauth

import (
	"context"
	"encoding/json"
	"io"

	"golang.org/x/oauth2"

	"antigravity2api-go/internal/constants"
)

// Flow is the thin interactive capture helper: it produces the consent
// URL and exchanges the pasted authorization code for tokens, so admins
// can import new credentials without leaving the gateway.
type Flow struct {
	config *oauth2.Config
}

// FlowOption customizes Flow creation.
type FlowOption func(*Flow)

// WithFlowEndpoint overrides the consent and token endpoints.
func WithFlowEndpoint(authURL, tokenURL string) FlowOption {
	return func(f *Flow) {
		if authURL != "" {
			f.config.Endpoint.AuthURL = authURL
		}
		if tokenURL != "" {
			f.config.Endpoint.TokenURL = tokenURL
		}
	}
}

// NewFlow builds the interactive flow for the baked-in Antigravity client.
func NewFlow(redirectURI string, opts ...FlowOption) *Flow {
	if redirectURI == "" {
		redirectURI = constants.OAuthRedirectURI
	}
	f := &Flow{
		config: &oauth2.Config{
			ClientID:     constants.OAuthClientID,
			ClientSecret: constants.OAuthClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       constants.OAuthScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  constants.OAuthAuthURL,
				TokenURL: constants.OAuthTokenURL,
			},
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// AuthCodeURL returns the consent page URL for the given CSRF state.
func (f *Flow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token pair.
func (f *Flow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return f.config.Exchange(ctx, code)
}

func decodeJSON(r io.Reader, out any) error {
	return json.NewDecoder(r).Decode(out)
}
