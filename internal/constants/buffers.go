package constants

const (
	// SSEScannerInitialBufferSize defines the initial buffer for upstream SSE scanners (64KB).
	SSEScannerInitialBufferSize = 64 * 1024
	// SSEScannerMaxBufferSize defines the max buffer size for upstream SSE scanners (4MB).
	SSEScannerMaxBufferSize = 4 * 1024 * 1024
)

// Per-tier buffer pool sizing. The memory regulator publishes one of
// these rows and stream writers size their scratch buffers from it.
const (
	ChunkBufferLow      = 512
	ChunkBufferMedium   = 256
	ChunkBufferHigh     = 128
	ChunkBufferCritical = 32

	ToolCallBufferLow      = 128
	ToolCallBufferMedium   = 64
	ToolCallBufferHigh     = 32
	ToolCallBufferCritical = 8

	LineBufferLow      = 256
	LineBufferMedium   = 128
	LineBufferHigh     = 64
	LineBufferCritical = 16
)
