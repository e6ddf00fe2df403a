package translator

import (
	"strings"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/models"
)

// GenerationParams 三种入站方言统一后的生成参数。
// 指针字段 nil 表示调用方未提供。
type GenerationParams struct {
	MaxTokens      int
	Temperature    *float64
	TopP           *float64
	TopK           *int
	ThinkingBudget *int
}

// NormalizeOpenAI extracts generation parameters from an OpenAI Chat
// Completions body. reasoning_effort is mapped onto a token budget when
// thinking_budget is not given explicitly.
func NormalizeOpenAI(body gjson.Result) GenerationParams {
	p := GenerationParams{MaxTokens: int(body.Get("max_tokens").Int())}
	if v := body.Get("temperature"); v.Exists() {
		f := v.Float()
		p.Temperature = &f
	}
	if v := body.Get("top_p"); v.Exists() {
		f := v.Float()
		p.TopP = &f
	}
	if v := body.Get("top_k"); v.Exists() {
		k := int(v.Int())
		p.TopK = &k
	}
	if v := body.Get("thinking_budget"); v.Exists() {
		b := int(v.Int())
		p.ThinkingBudget = &b
	} else if effort := body.Get("reasoning_effort").String(); effort != "" {
		b := reasoningEffortBudget(effort)
		p.ThinkingBudget = &b
	}
	return p
}

func reasoningEffortBudget(effort string) int {
	switch strings.ToLower(effort) {
	case "low":
		return constants.ReasoningBudgetLow
	case "high":
		return constants.ReasoningBudgetHigh
	default:
		return constants.ReasoningBudgetMedium
	}
}

// NormalizeClaude extracts generation parameters from an Anthropic
// Messages body. thinking.type=enabled carries an explicit budget,
// thinking.type=disabled pins the budget to 0.
func NormalizeClaude(body gjson.Result) GenerationParams {
	p := GenerationParams{MaxTokens: int(body.Get("max_tokens").Int())}
	if v := body.Get("temperature"); v.Exists() {
		f := v.Float()
		p.Temperature = &f
	}
	if v := body.Get("top_p"); v.Exists() {
		f := v.Float()
		p.TopP = &f
	}
	if v := body.Get("top_k"); v.Exists() {
		k := int(v.Int())
		p.TopK = &k
	}
	switch body.Get("thinking.type").String() {
	case "enabled":
		b := int(body.Get("thinking.budget_tokens").Int())
		p.ThinkingBudget = &b
	case "disabled":
		zero := 0
		p.ThinkingBudget = &zero
	}
	return p
}

// NormalizeGemini extracts generation parameters from a native
// generationConfig node.
func NormalizeGemini(genCfg gjson.Result) GenerationParams {
	p := GenerationParams{MaxTokens: int(genCfg.Get("maxOutputTokens").Int())}
	if v := genCfg.Get("temperature"); v.Exists() {
		f := v.Float()
		p.Temperature = &f
	}
	if v := genCfg.Get("topP"); v.Exists() {
		f := v.Float()
		p.TopP = &f
	}
	if v := genCfg.Get("topK"); v.Exists() {
		k := int(v.Int())
		p.TopK = &k
	}
	tc := genCfg.Get("thinkingConfig")
	if tc.Exists() {
		if inc := tc.Get("includeThoughts"); inc.Exists() && !inc.Bool() {
			zero := 0
			p.ThinkingBudget = &zero
		} else if v := tc.Get("thinkingBudget"); v.Exists() {
			b := int(v.Int())
			p.ThinkingBudget = &b
		}
	}
	return p
}

// GenerationConfig projects the normalized parameters onto the upstream
// shape for the given resolved model. Claude models with thinking
// enabled reject topP, so it is dropped there.
func (p GenerationParams) GenerationConfig(model string) map[string]interface{} {
	thinking := p.thinkingEnabled(model)

	cfg := map[string]interface{}{
		"candidateCount": constants.DefaultCandidateCount,
	}
	if p.MaxTokens > 0 {
		cfg["maxOutputTokens"] = p.MaxTokens
	}
	if p.Temperature != nil {
		cfg["temperature"] = *p.Temperature
	}
	if p.TopP != nil && !(thinking && strings.Contains(model, "claude")) {
		cfg["topP"] = *p.TopP
	}
	if p.TopK != nil {
		cfg["topK"] = *p.TopK
	}

	thinkingCfg := map[string]interface{}{"includeThoughts": thinking}
	if thinking && p.ThinkingBudget != nil && *p.ThinkingBudget > 0 {
		thinkingCfg["thinkingBudget"] = *p.ThinkingBudget
	}
	cfg["thinkingConfig"] = thinkingCfg
	return cfg
}

// thinkingEnabled 预算为 0 时强制关闭，模型不支持时恒为 false。
func (p GenerationParams) thinkingEnabled(model string) bool {
	if !models.IsThinking(model) {
		return false
	}
	return p.ThinkingBudget == nil || *p.ThinkingBudget != 0
}
