package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestNormalizeParityAcrossSurfaces(t *testing.T) {
	openai := NormalizeOpenAI(gjson.Parse(`{"max_tokens":2048,"temperature":0.7,"top_p":0.9,"top_k":40,"thinking_budget":1000}`))
	claude := NormalizeClaude(gjson.Parse(`{"max_tokens":2048,"temperature":0.7,"top_p":0.9,"top_k":40,"thinking":{"type":"enabled","budget_tokens":1000}}`))
	gemini := NormalizeGemini(gjson.Parse(`{"maxOutputTokens":2048,"temperature":0.7,"topP":0.9,"topK":40,"thinkingConfig":{"includeThoughts":true,"thinkingBudget":1000}}`))

	for _, p := range []GenerationParams{openai, claude, gemini} {
		assert.Equal(t, 2048, p.MaxTokens)
		require.NotNil(t, p.Temperature)
		assert.InDelta(t, 0.7, *p.Temperature, 1e-9)
		require.NotNil(t, p.TopP)
		assert.InDelta(t, 0.9, *p.TopP, 1e-9)
		require.NotNil(t, p.TopK)
		assert.Equal(t, 40, *p.TopK)
		require.NotNil(t, p.ThinkingBudget)
		assert.Equal(t, 1000, *p.ThinkingBudget)
	}

	// 同一意图在三种方言下投影出同一个 generationConfig
	cfgA := openai.GenerationConfig("gemini-3-pro-high")
	cfgB := claude.GenerationConfig("gemini-3-pro-high")
	cfgC := gemini.GenerationConfig("gemini-3-pro-high")
	assert.Equal(t, cfgA, cfgB)
	assert.Equal(t, cfgB, cfgC)
	assert.Equal(t, 2048, cfgA["maxOutputTokens"])
	assert.Equal(t, 1, cfgA["candidateCount"])
}

func TestReasoningEffortMapping(t *testing.T) {
	cases := map[string]int{"low": 1024, "medium": 16000, "high": 32000}
	for effort, want := range cases {
		p := NormalizeOpenAI(gjson.Parse(`{"reasoning_effort":"` + effort + `"}`))
		require.NotNil(t, p.ThinkingBudget, effort)
		assert.Equal(t, want, *p.ThinkingBudget, effort)
	}
}

func TestThinkingBudgetZeroDisablesThoughts(t *testing.T) {
	zero := 0
	p := GenerationParams{ThinkingBudget: &zero}
	cfg := p.GenerationConfig("gemini-3-pro-high")
	tc := cfg["thinkingConfig"].(map[string]interface{})
	assert.Equal(t, false, tc["includeThoughts"])

	disabled := NormalizeClaude(gjson.Parse(`{"max_tokens":100,"thinking":{"type":"disabled"}}`))
	require.NotNil(t, disabled.ThinkingBudget)
	assert.Equal(t, 0, *disabled.ThinkingBudget)

	noThoughts := NormalizeGemini(gjson.Parse(`{"thinkingConfig":{"includeThoughts":false,"thinkingBudget":500}}`))
	require.NotNil(t, noThoughts.ThinkingBudget)
	assert.Equal(t, 0, *noThoughts.ThinkingBudget)
}

func TestThinkingUnsupportedModelDisablesThoughts(t *testing.T) {
	budget := 4096
	p := GenerationParams{ThinkingBudget: &budget}
	cfg := p.GenerationConfig("claude-sonnet-4-5")
	tc := cfg["thinkingConfig"].(map[string]interface{})
	assert.Equal(t, false, tc["includeThoughts"])
}

func TestClaudeThinkingDropsTopP(t *testing.T) {
	topP := 0.9
	budget := 2048
	p := GenerationParams{TopP: &topP, ThinkingBudget: &budget}

	withThinking := p.GenerationConfig("claude-sonnet-4-5-thinking")
	_, hasTopP := withThinking["topP"]
	assert.False(t, hasTopP, "claude with thinking must not send topP")

	gemini := p.GenerationConfig("gemini-3-pro-high")
	assert.InDelta(t, 0.9, gemini["topP"].(float64), 1e-9)
}
