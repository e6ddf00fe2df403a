package translator

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/upstream"
)

// GeminiStream frames upstream deltas as candidates[0].content.parts
// fragments. finishReason stays "STOP" for every completion, including
// tool calls; consumers of this gateway rely on that.
type GeminiStream struct {
	model         string
	passSignature bool
	usage         *upstream.Usage
}

func NewGeminiStream(model string, passSignature bool) *GeminiStream {
	return &GeminiStream{model: model, passSignature: passSignature}
}

func (s *GeminiStream) Chunk(d upstream.Delta) []byte {
	var parts []map[string]interface{}

	switch d.Kind {
	case upstream.DeltaContent:
		parts = []map[string]interface{}{{"text": d.Content}}
	case upstream.DeltaReasoning:
		part := map[string]interface{}{"text": d.Reasoning, "thought": true}
		if s.passSignature && d.ThoughtSignature != "" {
			part["thoughtSignature"] = d.ThoughtSignature
		}
		parts = []map[string]interface{}{part}
	case upstream.DeltaToolCalls:
		for _, call := range d.ToolCalls {
			parts = append(parts, functionCallPart(call, s.passSignature))
		}
	case upstream.DeltaUsage:
		s.usage = d.Usage
		return nil
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content": map[string]interface{}{"parts": parts, "role": "model"},
			"index":   0,
		}},
		"modelVersion": s.model,
	})
	return sseData(payload)
}

// Finish emits the terminal candidate carrying finishReason and usage.
func (s *GeminiStream) Finish() []byte {
	final := map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content":      map[string]interface{}{"parts": []map[string]interface{}{}, "role": "model"},
			"finishReason": "STOP",
			"index":        0,
		}},
		"modelVersion": s.model,
	}
	if s.usage != nil {
		final["usageMetadata"] = usageMetadata(s.usage)
	}
	payload, _ := json.Marshal(final)
	return sseData(payload)
}

func functionCallPart(call upstream.ToolCall, passSignature bool) map[string]interface{} {
	fc := map[string]interface{}{
		"name": call.Name,
		"args": parsedArgs(call.Arguments),
	}
	part := map[string]interface{}{"functionCall": fc}
	if passSignature && call.ThoughtSignature != "" {
		part["thoughtSignature"] = call.ThoughtSignature
	}
	return part
}

// parsedArgs 上游参数是 JSON 字符串，Gemini 面需要对象。
func parsedArgs(arguments string) interface{} {
	parsed := gjson.Parse(arguments)
	if parsed.IsObject() || parsed.IsArray() {
		return parsed.Value()
	}
	return map[string]interface{}{}
}

func usageMetadata(u *upstream.Usage) map[string]interface{} {
	meta := map[string]interface{}{
		"promptTokenCount":     u.PromptTokens,
		"candidatesTokenCount": u.CompletionTokens,
		"totalTokenCount":      u.TotalTokens,
	}
	if u.ThoughtsTokens > 0 {
		meta["thoughtsTokenCount"] = u.ThoughtsTokens
	}
	return meta
}
