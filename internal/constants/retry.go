package constants

import "time"

// 429 重试策略
const (
	// DefaultRetryTimes is how many additional attempts follow the first
	// upstream request when it fails with HTTP 429 before any response
	// byte has reached the client.
	DefaultRetryTimes = 3
	// RetryBackoffStep is multiplied by the attempt number to space out
	// consecutive 429 retries.
	RetryBackoffStep = 500 * time.Millisecond
)

// OAuth 刷新限流
const (
	// OAuthRefreshRateLimit 每个进程每秒允许的 token 刷新次数。
	OAuthRefreshRateLimit = 2
	// OAuthRefreshBurst 刷新限流桶容量。
	OAuthRefreshBurst = 4
)
