package oauth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/monitoring"
)

// TokenResponse is the OAuth token endpoint payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope,omitempty"`
}

// RefreshError carries the token endpoint HTTP status so the rotator
// can tell fatal rejections (400/403, credential revoked) from
// transient failures.
type RefreshError struct {
	StatusCode int
	Body       string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("token refresh failed: status %d: %s", e.StatusCode, e.Body)
}

// Fatal reports whether the credential should be disabled.
func (e *RefreshError) Fatal() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusForbidden
}

// ManagerOption customizes Manager creation.
type ManagerOption func(*Manager)

// Manager refreshes access tokens against the Google OAuth2 endpoint
// using the IDE's baked-in client. A small process-wide rate limiter
// keeps a misbehaving credential file from hammering the endpoint.
type Manager struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewManager creates an OAuth refresh manager.
func NewManager(clientID, clientSecret string, opts ...ManagerOption) *Manager {
	m := &Manager{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     constants.OAuthTokenURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(constants.OAuthRefreshRateLimit), constants.OAuthRefreshBurst),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// WithHTTPClient overrides the HTTP client used for outbound calls.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithTokenURL overrides the token refresh endpoint.
func WithTokenURL(tokenURL string) ManagerOption {
	return func(m *Manager) {
		if tokenURL != "" {
			m.tokenURL = tokenURL
		}
	}
}

// Refresh exchanges a refresh token for a fresh access token.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	if err := m.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", m.clientID)
	form.Set("client_secret", m.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		monitoring.CredentialRefreshes.WithLabelValues("network_error").Inc()
		return nil, fmt.Errorf("token refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		monitoring.CredentialRefreshes.WithLabelValues(fmt.Sprintf("http_%d", resp.StatusCode)).Inc()
		return nil, &RefreshError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tok TokenResponse
	if err := decodeJSON(resp.Body, &tok); err != nil {
		return nil, fmt.Errorf("token refresh decode: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token refresh returned empty access_token")
	}

	monitoring.CredentialRefreshes.WithLabelValues("ok").Inc()
	log.Debugf("refreshed access token, expires in %ds", tok.ExpiresIn)
	return &tok, nil
}
