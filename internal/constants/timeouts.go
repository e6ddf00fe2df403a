package constants

import "time"

const (
	// UpstreamUnaryTimeout bounds non-stream upstream calls.
	UpstreamUnaryTimeout = 300 * time.Second
	// ProjectDiscoveryTimeout bounds loadCodeAssist/onboardUser calls.
	ProjectDiscoveryTimeout = 30 * time.Second
	// QuotaFetchTimeout bounds fetchAvailableModels calls.
	QuotaFetchTimeout = 30 * time.Second
	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
	// ServerGracefulWait defines post-shutdown wait window for cleanup.
	ServerGracefulWait = 2 * time.Second
)

// Token 生命周期
const (
	// TokenExpirySkew is subtracted from expires_in when deciding whether
	// an access token is still usable.
	TokenExpirySkew = 300 * time.Second
)

// 心跳与内存巡检
const (
	// DefaultHeartbeatInterval is the idle gap after which an SSE comment
	// line is emitted to keep proxies from closing the connection.
	DefaultHeartbeatInterval = 15 * time.Second
	// MemoryCheckInterval is the memory regulator sampling period.
	MemoryCheckInterval = 30 * time.Second
	// GCHintCooldown limits how often a HIGH pressure tick may request GC.
	GCHintCooldown = 10 * time.Second
)
