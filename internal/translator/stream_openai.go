package translator

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"antigravity2api-go/internal/upstream"
)

// OpenAIStream is the stateless chunk projection: every upstream delta
// becomes exactly one chat.completion.chunk frame. Only the terminal
// frame and the accumulated usage need state.
type OpenAIStream struct {
	id      string
	model   string
	created int64

	sentRole bool
	sawTools bool
	usage    *upstream.Usage
}

func NewOpenAIStream(model string) *OpenAIStream {
	return &OpenAIStream{
		id:      "chatcmpl-" + uuid.NewString(),
		model:   model,
		created: time.Now().Unix(),
	}
}

// Chunk renders one delta as a `data:` frame. Usage deltas are absorbed
// into the terminal frame and produce no output.
func (s *OpenAIStream) Chunk(d upstream.Delta) []byte {
	if d.Kind == upstream.DeltaUsage {
		s.usage = d.Usage
		return nil
	}

	delta := map[string]interface{}{}
	if !s.sentRole {
		delta["role"] = "assistant"
		s.sentRole = true
	}

	switch d.Kind {
	case upstream.DeltaContent:
		delta["content"] = d.Content
	case upstream.DeltaReasoning:
		delta["reasoning_content"] = d.Reasoning
	case upstream.DeltaToolCalls:
		s.sawTools = true
		calls := make([]map[string]interface{}, 0, len(d.ToolCalls))
		for i, call := range d.ToolCalls {
			id := call.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			calls = append(calls, map[string]interface{}{
				"index": i,
				"id":    id,
				"type":  "function",
				"function": map[string]interface{}{
					"name":      call.Name,
					"arguments": call.Arguments,
				},
			})
		}
		delta["tool_calls"] = calls
	}

	return s.frame(delta, nil)
}

// Finish emits the terminal chunk plus the [DONE] marker.
func (s *OpenAIStream) Finish() []byte {
	reason := "stop"
	if s.sawTools {
		reason = "tool_calls"
	}
	out := s.frame(map[string]interface{}{}, &reason)
	return append(out, []byte("data: [DONE]\n\n")...)
}

func (s *OpenAIStream) frame(delta map[string]interface{}, finishReason *string) []byte {
	choice := map[string]interface{}{
		"index":         0,
		"delta":         delta,
		"finish_reason": nil,
	}
	if finishReason != nil {
		choice["finish_reason"] = *finishReason
	}
	chunk := map[string]interface{}{
		"id":      s.id,
		"object":  "chat.completion.chunk",
		"created": s.created,
		"model":   s.model,
		"choices": []map[string]interface{}{choice},
	}
	if finishReason != nil && s.usage != nil {
		chunk["usage"] = usageObject(s.usage)
	}

	payload, _ := json.Marshal(chunk)
	return sseData(payload)
}

func usageObject(u *upstream.Usage) map[string]interface{} {
	obj := map[string]interface{}{
		"prompt_tokens":     u.PromptTokens,
		"completion_tokens": u.CompletionTokens,
		"total_tokens":      u.TotalTokens,
	}
	if u.ThoughtsTokens > 0 {
		obj["completion_tokens_details"] = map[string]interface{}{
			"reasoning_tokens": u.ThoughtsTokens,
		}
	}
	return obj
}

func sseData(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+8)
	out = append(out, "data: "...)
	out = append(out, payload...)
	out = append(out, '\n', '\n')
	return out
}
