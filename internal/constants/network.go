package constants

import "time"

// 上游 HTTP 连接池配置（长 SSE 流场景）
const (
	UpstreamMaxIdleConns        = 256
	UpstreamMaxIdleConnsPerHost = 64
	UpstreamIdleConnTimeout     = 90 * time.Second

	// 缓冲区大小
	UpstreamWriteBufferSize = 64 * 1024 // 64KB 写缓冲
	UpstreamReadBufferSize  = 64 * 1024 // 64KB 读缓冲

	// Keep-Alive 设置
	DefaultKeepAlive = 30 * time.Second
)

// 连接阶段超时。整体请求超时保持为 0，流式响应可以
// 任意长，截断由上游 finishReason 决定。
const (
	DefaultDialTimeout           = 10 * time.Second
	DefaultTLSHandshakeTimeout   = 10 * time.Second
	DefaultResponseHeaderTimeout = 120 * time.Second
	DefaultExpectContinueTimeout = 2 * time.Second
)
