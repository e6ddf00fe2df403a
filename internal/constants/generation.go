package constants

// 推理预算（token 数）
const (
	// ReasoningBudgetLow 对应 reasoning_effort=low。
	ReasoningBudgetLow = 1024
	// ReasoningBudgetMedium 对应 reasoning_effort=medium。
	ReasoningBudgetMedium = 16000
	// ReasoningBudgetHigh 对应 reasoning_effort=high。
	ReasoningBudgetHigh = 32000
)

const (
	// DefaultCandidateCount 单候选响应，上游仅支持 1。
	DefaultCandidateCount = 1
)
