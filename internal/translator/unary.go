package translator

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"antigravity2api-go/internal/upstream"
)

// OpenAIUnary projects an assembled upstream result onto a
// chat.completion object.
func OpenAIUnary(model string, res *upstream.UnaryResult) []byte {
	message := map[string]interface{}{
		"role":    "assistant",
		"content": res.Content,
	}
	if res.ReasoningContent != "" {
		message["reasoning_content"] = res.ReasoningContent
	}
	if len(res.ToolCalls) > 0 {
		calls := make([]map[string]interface{}, 0, len(res.ToolCalls))
		for _, call := range res.ToolCalls {
			id := call.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			calls = append(calls, map[string]interface{}{
				"id":   id,
				"type": "function",
				"function": map[string]interface{}{
					"name":      call.Name,
					"arguments": call.Arguments,
				},
			})
		}
		message["tool_calls"] = calls
	}

	finishReason := "stop"
	if len(res.ToolCalls) > 0 {
		finishReason = "tool_calls"
	}

	response := map[string]interface{}{
		"id":      "chatcmpl-" + uuid.NewString(),
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   model,
		"choices": []map[string]interface{}{{
			"index":         0,
			"message":       message,
			"finish_reason": finishReason,
		}},
	}
	if res.Usage != nil {
		response["usage"] = usageObject(res.Usage)
	}

	payload, _ := json.Marshal(response)
	return payload
}

// GeminiUnary projects onto a generateContent response. finishReason is
// always STOP, matching the streaming behavior.
func GeminiUnary(model string, res *upstream.UnaryResult, passSignature bool) []byte {
	var parts []map[string]interface{}
	if res.ReasoningContent != "" {
		part := map[string]interface{}{"text": res.ReasoningContent, "thought": true}
		if passSignature && res.ReasoningSignature != "" {
			part["thoughtSignature"] = res.ReasoningSignature
		}
		parts = append(parts, part)
	}
	if res.Content != "" {
		parts = append(parts, map[string]interface{}{"text": res.Content})
	}
	for _, call := range res.ToolCalls {
		parts = append(parts, functionCallPart(call, passSignature))
	}
	if parts == nil {
		parts = []map[string]interface{}{}
	}

	response := map[string]interface{}{
		"candidates": []map[string]interface{}{{
			"content":      map[string]interface{}{"parts": parts, "role": "model"},
			"finishReason": "STOP",
			"index":        0,
		}},
		"modelVersion": model,
	}
	if res.Usage != nil {
		response["usageMetadata"] = usageMetadata(res.Usage)
	}

	payload, _ := json.Marshal(response)
	return payload
}

// ClaudeUnary assembles the typed content blocks in the same order the
// streaming machine would emit them: thinking, text, then tool_use.
func ClaudeUnary(model string, res *upstream.UnaryResult, passSignature bool) []byte {
	var blocks []map[string]interface{}
	if res.ReasoningContent != "" {
		block := map[string]interface{}{"type": "thinking", "thinking": res.ReasoningContent}
		if passSignature && res.ReasoningSignature != "" {
			block["signature"] = res.ReasoningSignature
		}
		blocks = append(blocks, block)
	}
	if res.Content != "" {
		blocks = append(blocks, map[string]interface{}{"type": "text", "text": res.Content})
	}
	for _, call := range res.ToolCalls {
		id := call.ID
		if id == "" {
			id = "toolu_" + uuid.NewString()
		}
		blocks = append(blocks, map[string]interface{}{
			"type":  "tool_use",
			"id":    id,
			"name":  call.Name,
			"input": parsedArgs(call.Arguments),
		})
	}
	if blocks == nil {
		blocks = []map[string]interface{}{}
	}

	stopReason := "end_turn"
	if len(res.ToolCalls) > 0 {
		stopReason = "tool_use"
	}
	inputTokens, outputTokens := 0, 0
	if res.Usage != nil {
		inputTokens = res.Usage.PromptTokens
		outputTokens = res.Usage.CompletionTokens
	}

	response := map[string]interface{}{
		"id":            "msg_" + uuid.NewString(),
		"type":          "message",
		"role":          "assistant",
		"model":         model,
		"content":       blocks,
		"stop_reason":   stopReason,
		"stop_sequence": nil,
		"usage": map[string]interface{}{
			"input_tokens":  inputTokens,
			"output_tokens": outputTokens,
		},
	}

	payload, _ := json.Marshal(response)
	return payload
}
