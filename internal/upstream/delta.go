package upstream

// DeltaKind 上游流事件的种类。
type DeltaKind int

const (
	DeltaContent DeltaKind = iota
	DeltaReasoning
	DeltaToolCalls
	DeltaUsage
)

func (k DeltaKind) String() string {
	switch k {
	case DeltaContent:
		return "content"
	case DeltaReasoning:
		return "reasoning"
	case DeltaToolCalls:
		return "tool_calls"
	case DeltaUsage:
		return "usage"
	default:
		return "unknown"
	}
}

// ToolCall is one structured function invocation from the model.
// Arguments is the raw JSON object string.
type ToolCall struct {
	ID               string
	Name             string
	Arguments        string
	ThoughtSignature string
}

// Usage is the upstream token accounting.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
	ThoughtsTokens   int `json:"thoughts_tokens,omitempty"`
}

// Delta is the tagged union the response translators pattern-match on.
// Exactly the fields implied by Kind are set.
type Delta struct {
	Kind DeltaKind

	// DeltaContent
	Content string

	// DeltaReasoning
	Reasoning        string
	ThoughtSignature string

	// DeltaToolCalls
	ToolCalls []ToolCall

	// DeltaUsage
	Usage *Usage
}

// DeltaFunc receives parsed deltas in arrival order. Calls never
// overlap for one stream.
type DeltaFunc func(Delta)

// UnaryResult is the fully assembled non-streaming response.
type UnaryResult struct {
	Content            string
	ReasoningContent   string
	ReasoningSignature string
	ToolCalls          []ToolCall
	Usage              *Usage
}
