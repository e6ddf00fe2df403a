package upstream

import (
	"bufio"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/constants"
)

// parseSSE consumes the upstream event stream line by line and turns
// every `data:` payload into typed deltas. Comment lines and blank
// separators are skipped.
func parseSSE(body io.Reader, fn DeltaFunc) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, constants.SSEScannerInitialBufferSize), constants.SSEScannerMaxBufferSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(line[len("data:"):])
		if payload == "" {
			continue
		}
		emitFrame(gjson.Parse(payload), fn)
	}
	if err := scanner.Err(); err != nil {
		return &Error{Message: "read upstream stream: " + err.Error()}
	}
	return nil
}

// emitFrame walks one v1internal frame. The code-assist dialect wraps
// the standard generateContent payload in a `response` envelope.
func emitFrame(frame gjson.Result, fn DeltaFunc) {
	if wrapped := frame.Get("response"); wrapped.Exists() {
		frame = wrapped
	}

	frame.Get("candidates.0.content.parts").ForEach(func(_, part gjson.Result) bool {
		emitPart(part, fn)
		return true
	})

	if usage := frame.Get("usageMetadata"); usage.Exists() {
		fn(Delta{Kind: DeltaUsage, Usage: parseUsage(usage)})
	}
}

func emitPart(part gjson.Result, fn DeltaFunc) {
	if call := part.Get("functionCall"); call.Exists() {
		fn(Delta{Kind: DeltaToolCalls, ToolCalls: []ToolCall{{
			ID:               call.Get("id").String(),
			Name:             call.Get("name").String(),
			Arguments:        functionArgs(call),
			ThoughtSignature: part.Get("thoughtSignature").String(),
		}}})
		return
	}

	text := part.Get("text").String()
	if text == "" {
		return
	}
	if part.Get("thought").Bool() {
		fn(Delta{
			Kind:             DeltaReasoning,
			Reasoning:        text,
			ThoughtSignature: part.Get("thoughtSignature").String(),
		})
		return
	}
	fn(Delta{Kind: DeltaContent, Content: text})
}

func functionArgs(call gjson.Result) string {
	if args := call.Get("args"); args.Exists() {
		return args.Raw
	}
	return "{}"
}

func parseUsage(usage gjson.Result) *Usage {
	return &Usage{
		PromptTokens:     int(usage.Get("promptTokenCount").Int()),
		CompletionTokens: int(usage.Get("candidatesTokenCount").Int()),
		TotalTokens:      int(usage.Get("totalTokenCount").Int()),
		ThoughtsTokens:   int(usage.Get("thoughtsTokenCount").Int()),
	}
}

// parseUnary assembles a complete response body into one result.
func parseUnary(raw []byte) *UnaryResult {
	result := &UnaryResult{}
	emitFrame(gjson.ParseBytes(raw), func(d Delta) {
		switch d.Kind {
		case DeltaContent:
			result.Content += d.Content
		case DeltaReasoning:
			result.ReasoningContent += d.Reasoning
			if d.ThoughtSignature != "" {
				result.ReasoningSignature = d.ThoughtSignature
			}
		case DeltaToolCalls:
			result.ToolCalls = append(result.ToolCalls, d.ToolCalls...)
		case DeltaUsage:
			result.Usage = d.Usage
		}
	})
	return result
}
