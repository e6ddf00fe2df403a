package constants

import "time"

// 思维链签名缓存
const (
	// SignatureCacheMaxEntries caps each signature map (text and tool).
	SignatureCacheMaxEntries = 16
	// SignatureCacheTTL is the age after which a cached signature is
	// considered stale.
	SignatureCacheTTL = 30 * time.Minute
)

// 配额缓存
const (
	// QuotaReadTTL is how long a persisted quota entry is trusted before
	// a refresh is required.
	QuotaReadTTL = 5 * time.Minute
	// QuotaSweepInterval is how often entries older than QuotaSweepTTL
	// are purged from the persisted quota file.
	QuotaSweepInterval = 1 * time.Hour
	// QuotaSweepTTL is the retention window for quota entries.
	QuotaSweepTTL = 1 * time.Hour
)

// WebSocket 日志缓存
const (
	WSLogBroadcastBuffer = 100
	WSLogHistorySize     = 500
	WSLogMaxConnections  = 100
)
