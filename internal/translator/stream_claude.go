package translator

import (
	"encoding/json"

	"github.com/google/uuid"

	"antigravity2api-go/internal/upstream"
)

type claudeCursor int

const (
	cursorNone claudeCursor = iota
	cursorThinking
	cursorText
)

// ClaudeStream drives the Anthropic block-cursor protocol. Block
// indices are contiguous from 0; exactly one block is open at a time
// and tool_use blocks are emitted start/delta/stop as a unit.
type ClaudeStream struct {
	id            string
	model         string
	passSignature bool

	started bool
	cursor  claudeCursor
	index   int
	sawTool bool
	usage   *upstream.Usage
}

func NewClaudeStream(model string, passSignature bool) *ClaudeStream {
	return &ClaudeStream{
		id:            "msg_" + uuid.NewString(),
		model:         model,
		passSignature: passSignature,
	}
}

// Chunk renders one upstream delta as zero or more named SSE events.
func (s *ClaudeStream) Chunk(d upstream.Delta) []byte {
	var out []byte

	switch d.Kind {
	case upstream.DeltaReasoning:
		out = append(out, s.ensureStarted()...)
		if s.cursor != cursorThinking {
			out = append(out, s.closeBlock()...)
			block := map[string]interface{}{"type": "thinking", "thinking": ""}
			if s.passSignature && d.ThoughtSignature != "" {
				block["signature"] = d.ThoughtSignature
			}
			out = append(out, s.event("content_block_start", map[string]interface{}{
				"type":          "content_block_start",
				"index":         s.index,
				"content_block": block,
			})...)
			s.cursor = cursorThinking
		}
		delta := map[string]interface{}{"type": "thinking_delta", "thinking": d.Reasoning}
		if s.passSignature && d.ThoughtSignature != "" {
			delta["signature"] = d.ThoughtSignature
		}
		out = append(out, s.event("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": s.index,
			"delta": delta,
		})...)

	case upstream.DeltaContent:
		out = append(out, s.ensureStarted()...)
		if s.cursor != cursorText {
			out = append(out, s.closeBlock()...)
			out = append(out, s.event("content_block_start", map[string]interface{}{
				"type":          "content_block_start",
				"index":         s.index,
				"content_block": map[string]interface{}{"type": "text", "text": ""},
			})...)
			s.cursor = cursorText
		}
		out = append(out, s.event("content_block_delta", map[string]interface{}{
			"type":  "content_block_delta",
			"index": s.index,
			"delta": map[string]interface{}{"type": "text_delta", "text": d.Content},
		})...)

	case upstream.DeltaToolCalls:
		out = append(out, s.ensureStarted()...)
		out = append(out, s.closeBlock()...)
		s.sawTool = true
		for _, call := range d.ToolCalls {
			id := call.ID
			if id == "" {
				id = "toolu_" + uuid.NewString()
			}
			out = append(out, s.event("content_block_start", map[string]interface{}{
				"type":  "content_block_start",
				"index": s.index,
				"content_block": map[string]interface{}{
					"type":  "tool_use",
					"id":    id,
					"name":  call.Name,
					"input": map[string]interface{}{},
				},
			})...)
			out = append(out, s.event("content_block_delta", map[string]interface{}{
				"type":  "content_block_delta",
				"index": s.index,
				"delta": map[string]interface{}{"type": "input_json_delta", "partial_json": call.Arguments},
			})...)
			out = append(out, s.event("content_block_stop", map[string]interface{}{
				"type":  "content_block_stop",
				"index": s.index,
			})...)
			s.index++
		}

	case upstream.DeltaUsage:
		s.usage = d.Usage
	}

	return out
}

// Finish closes the open block and emits message_delta + message_stop.
func (s *ClaudeStream) Finish() []byte {
	out := s.ensureStarted()
	out = append(out, s.closeBlock()...)

	stopReason := "end_turn"
	if s.sawTool {
		stopReason = "tool_use"
	}
	outputTokens := 0
	if s.usage != nil {
		outputTokens = s.usage.CompletionTokens
	}
	out = append(out, s.event("message_delta", map[string]interface{}{
		"type": "message_delta",
		"delta": map[string]interface{}{
			"stop_reason":   stopReason,
			"stop_sequence": nil,
		},
		"usage": map[string]interface{}{"output_tokens": outputTokens},
	})...)
	out = append(out, s.event("message_stop", map[string]interface{}{
		"type": "message_stop",
	})...)
	return out
}

// ErrorEvent 流中途失败时的带内错误事件。
func (s *ClaudeStream) ErrorEvent(message string) []byte {
	return s.event("error", map[string]interface{}{
		"type":  "error",
		"error": map[string]interface{}{"type": "api_error", "message": message},
	})
}

func (s *ClaudeStream) ensureStarted() []byte {
	if s.started {
		return nil
	}
	s.started = true
	inputTokens := 0
	if s.usage != nil {
		inputTokens = s.usage.PromptTokens
	}
	return s.event("message_start", map[string]interface{}{
		"type": "message_start",
		"message": map[string]interface{}{
			"id":            s.id,
			"type":          "message",
			"role":          "assistant",
			"model":         s.model,
			"content":       []interface{}{},
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage":         map[string]interface{}{"input_tokens": inputTokens, "output_tokens": 0},
		},
	})
}

func (s *ClaudeStream) closeBlock() []byte {
	if s.cursor == cursorNone {
		return nil
	}
	out := s.event("content_block_stop", map[string]interface{}{
		"type":  "content_block_stop",
		"index": s.index,
	})
	s.index++
	s.cursor = cursorNone
	return out
}

func (s *ClaudeStream) event(name string, payload map[string]interface{}) []byte {
	data, _ := json.Marshal(payload)
	out := make([]byte, 0, len(name)+len(data)+16)
	out = append(out, "event: "...)
	out = append(out, name...)
	out = append(out, "\ndata: "...)
	out = append(out, data...)
	out = append(out, '\n', '\n')
	return out
}
