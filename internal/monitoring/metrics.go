package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"surface", "method", "path", "status_class"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ag2api_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"surface", "method", "path", "status_class"},
	)

	// HTTP 并发请求数
	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ag2api_http_inflight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// 上游调用指标
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_upstream_requests_total",
			Help: "Total number of upstream code-assist requests",
		},
		[]string{"rpc", "status_class"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ag2api_upstream_request_duration_seconds",
			Help:    "Upstream request latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"rpc"},
	)

	UpstreamRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_upstream_retries_total",
			Help: "Total number of 429-triggered upstream retries",
		},
		[]string{"outcome"},
	)

	// 凭证池指标
	CredentialRotationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_credential_rotations_total",
			Help: "Total number of credential selections",
		},
		[]string{"strategy"},
	)

	CredentialRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_credential_refreshes_total",
			Help: "Total number of OAuth token refreshes",
		},
		[]string{"status"},
	)

	CredentialDisabledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_credential_disabled_total",
			Help: "Total number of credentials disabled by the rotator",
		},
		[]string{"reason"},
	)

	ActiveCredentials = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ag2api_active_credentials",
			Help: "Number of enabled credentials",
		},
	)

	DisabledCredentials = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ag2api_disabled_credentials",
			Help: "Number of disabled credentials",
		},
	)

	// 配额指标
	QuotaExhaustedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_quota_exhausted_total",
			Help: "Total number of quota exhaustion signals",
		},
		[]string{"model"},
	)

	// 流式传输指标
	SSEHeartbeatsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_sse_heartbeats_total",
			Help: "Total number of SSE heartbeat comments written",
		},
		[]string{"surface"},
	)

	SSEDisconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_sse_disconnects_total",
			Help: "Total number of SSE disconnects by reason",
		},
		[]string{"surface", "reason"},
	)

	// 内存调节指标
	MemoryPressureLevel = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ag2api_memory_pressure_level",
			Help: "Current memory pressure tier (0=low 1=medium 2=high 3=critical)",
		},
	)

	GCOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_gc_operations_total",
			Help: "Total number of regulator-initiated GC operations",
		},
		[]string{"kind"},
	)

	// 签名缓存指标
	SignatureCacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ag2api_signature_cache_entries",
			Help: "Current number of cached reasoning signatures",
		},
		[]string{"kind"},
	)

	// Token 使用指标
	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_tokens_used_total",
			Help: "Total number of tokens reported by upstream usage metadata",
		},
		[]string{"model", "type"}, // type: prompt, completion, thoughts, total
	)

	// 存储后端指标
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ag2api_storage_operations_total",
			Help: "Total number of storage backend operations",
		},
		[]string{"backend", "op", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ag2api_storage_operation_duration_seconds",
			Help:    "Storage backend operation latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend", "op"},
	)
)

// StatusClass buckets an HTTP status code into 2xx/4xx style labels.
func StatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "other"
	}
}
