package credential

import (
	"time"

	"github.com/google/uuid"

	"antigravity2api-go/internal/constants"
)

// Credential 一条 OAuth 账号记录，与 accounts.json 的行一一对应。
// RefreshToken 是稳定主键；SessionId 每次加载重新生成，从不落盘。
type Credential struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	// Timestamp is the ms epoch of the last refresh.
	Timestamp int64  `json:"timestamp,omitempty"`
	Enable    bool   `json:"enable"`
	HasQuota  bool   `json:"hasQuota"`
	ProjectID string `json:"projectId,omitempty"`
	Email     string `json:"email,omitempty"`
	SessionID string `json:"-"`
}

// NewSessionID 生成一次进程生命周期内使用的会话标识。
func NewSessionID() string {
	return uuid.NewString()
}

// IsExpired reports whether the access token needs a refresh at the
// given instant: now >= timestamp + (expires_in - 300s) in ms.
func (c *Credential) IsExpired(now time.Time) bool {
	if c.AccessToken == "" {
		return true
	}
	deadline := c.Timestamp + c.ExpiresIn*1000 - constants.TokenExpirySkew.Milliseconds()
	return now.UnixMilli() >= deadline
}

// ApplyRefresh records a successful token refresh.
func (c *Credential) ApplyRefresh(accessToken string, expiresIn int64, now time.Time) {
	c.AccessToken = accessToken
	c.ExpiresIn = expiresIn
	c.Timestamp = now.UnixMilli()
}

// Redacted returns a listing-safe copy: token material trimmed down to
// recognizable prefixes.
func (c *Credential) Redacted() map[string]any {
	return map[string]any{
		"refresh_token": redactToken(c.RefreshToken),
		"enable":        c.Enable,
		"hasQuota":      c.HasQuota,
		"projectId":     c.ProjectID,
		"email":         c.Email,
		"expired":       c.IsExpired(time.Now()),
	}
}

func redactToken(tok string) string {
	if len(tok) <= 10 {
		return "..."
	}
	return tok[:6] + "..." + tok[len(tok)-4:]
}
