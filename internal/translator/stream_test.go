package translator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/upstream"
)

// dataPayloads 从 data: 帧流里取出每个 JSON 负载。
func dataPayloads(t *testing.T, raw string) []gjson.Result {
	t.Helper()
	var out []gjson.Result
	for _, line := range strings.Split(raw, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			continue
		}
		out = append(out, gjson.Parse(payload))
	}
	return out
}

type claudeEvent struct {
	name string
	data gjson.Result
}

func claudeEvents(t *testing.T, raw string) []claudeEvent {
	t.Helper()
	var out []claudeEvent
	lines := strings.Split(raw, "\n")
	for i := 0; i < len(lines); i++ {
		if !strings.HasPrefix(lines[i], "event: ") {
			continue
		}
		require.Less(t, i+1, len(lines))
		require.True(t, strings.HasPrefix(lines[i+1], "data: "))
		out = append(out, claudeEvent{
			name: strings.TrimPrefix(lines[i], "event: "),
			data: gjson.Parse(strings.TrimPrefix(lines[i+1], "data: ")),
		})
	}
	return out
}

func TestOpenAIStreamContentOnly(t *testing.T) {
	s := NewOpenAIStream("gpt-x")

	var raw strings.Builder
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaContent, Content: "he"}))
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaContent, Content: "llo"}))
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaUsage, Usage: &upstream.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3}}))
	raw.Write(s.Finish())

	out := raw.String()
	assert.True(t, strings.HasSuffix(out, "data: [DONE]\n\n"))

	chunks := dataPayloads(t, out)
	require.Len(t, chunks, 3)
	assert.Equal(t, "he", chunks[0].Get("choices.0.delta.content").String())
	assert.Equal(t, "assistant", chunks[0].Get("choices.0.delta.role").String())
	assert.Equal(t, "llo", chunks[1].Get("choices.0.delta.content").String())

	final := chunks[2]
	assert.Equal(t, "stop", final.Get("choices.0.finish_reason").String())
	assert.Equal(t, int64(0), int64(len(final.Get("choices.0.delta").Map())))
	assert.Equal(t, int64(3), final.Get("usage.total_tokens").Int())
	for _, c := range chunks {
		assert.Equal(t, "chat.completion.chunk", c.Get("object").String())
		assert.Equal(t, "gpt-x", c.Get("model").String())
	}
}

func TestOpenAIStreamToolCallsFinishReason(t *testing.T) {
	s := NewOpenAIStream("gpt-x")
	out := string(s.Chunk(upstream.Delta{Kind: upstream.DeltaToolCalls, ToolCalls: []upstream.ToolCall{
		{ID: "t1", Name: "lookup", Arguments: `{"q":"x"}`},
	}}))
	out += string(s.Finish())

	chunks := dataPayloads(t, out)
	require.Len(t, chunks, 2)
	call := chunks[0].Get("choices.0.delta.tool_calls.0")
	assert.Equal(t, "t1", call.Get("id").String())
	assert.Equal(t, "lookup", call.Get("function.name").String())
	assert.Equal(t, `{"q":"x"}`, call.Get("function.arguments").String())
	assert.Equal(t, "tool_calls", chunks[1].Get("choices.0.finish_reason").String())
}

func TestGeminiStreamToolCall(t *testing.T) {
	s := NewGeminiStream("gemini-3-pro-high", true)

	var raw strings.Builder
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaToolCalls, ToolCalls: []upstream.ToolCall{
		{ID: "t1", Name: "lookup", Arguments: `{"q":"x"}`},
	}}))
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaUsage, Usage: &upstream.Usage{PromptTokens: 2, CompletionTokens: 4, TotalTokens: 6}}))
	raw.Write(s.Finish())

	chunks := dataPayloads(t, raw.String())
	require.Len(t, chunks, 2)

	fc := chunks[0].Get("candidates.0.content.parts.0.functionCall")
	assert.Equal(t, "lookup", fc.Get("name").String())
	assert.Equal(t, "x", fc.Get("args.q").String())

	final := chunks[1]
	assert.Equal(t, "STOP", final.Get("candidates.0.finishReason").String(), "finishReason stays STOP even for tool calls")
	assert.Equal(t, int64(6), final.Get("usageMetadata.totalTokenCount").Int())
}

func TestGeminiStreamSignatureStripping(t *testing.T) {
	delta := upstream.Delta{Kind: upstream.DeltaReasoning, Reasoning: "hmm", ThoughtSignature: "sig-1"}

	pass := dataPayloads(t, string(NewGeminiStream("m", true).Chunk(delta)))
	require.Len(t, pass, 1)
	assert.Equal(t, "sig-1", pass[0].Get("candidates.0.content.parts.0.thoughtSignature").String())

	strip := dataPayloads(t, string(NewGeminiStream("m", false).Chunk(delta)))
	require.Len(t, strip, 1)
	assert.False(t, strip[0].Get("candidates.0.content.parts.0.thoughtSignature").Exists())
}

func TestClaudeStreamThinkingThenText(t *testing.T) {
	s := NewClaudeStream("claude-sonnet-4-5-thinking", true)

	var raw strings.Builder
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaReasoning, Reasoning: "let me think"}))
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaReasoning, Reasoning: "."}))
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaContent, Content: "Hello"}))
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaUsage, Usage: &upstream.Usage{CompletionTokens: 5}}))
	raw.Write(s.Finish())

	events := claudeEvents(t, raw.String())
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.name
	}
	assert.Equal(t, []string{
		"message_start",
		"content_block_start",
		"content_block_delta",
		"content_block_delta",
		"content_block_stop",
		"content_block_start",
		"content_block_delta",
		"content_block_stop",
		"message_delta",
		"message_stop",
	}, names)

	assert.Equal(t, "thinking", events[1].data.Get("content_block.type").String())
	assert.Equal(t, int64(0), events[1].data.Get("index").Int())
	assert.Equal(t, "let me think", events[2].data.Get("delta.thinking").String())
	assert.Equal(t, ".", events[3].data.Get("delta.thinking").String())
	assert.Equal(t, "text", events[5].data.Get("content_block.type").String())
	assert.Equal(t, int64(1), events[5].data.Get("index").Int())
	assert.Equal(t, "Hello", events[6].data.Get("delta.text").String())
	assert.Equal(t, "end_turn", events[8].data.Get("delta.stop_reason").String())
	assert.Equal(t, int64(5), events[8].data.Get("usage.output_tokens").Int())
}

func TestClaudeStreamToolUseIndices(t *testing.T) {
	s := NewClaudeStream("claude-sonnet-4-5", true)

	var raw strings.Builder
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaContent, Content: "using tools"}))
	raw.Write(s.Chunk(upstream.Delta{Kind: upstream.DeltaToolCalls, ToolCalls: []upstream.ToolCall{
		{ID: "t1", Name: "a", Arguments: `{"x":1}`},
		{Name: "b", Arguments: `{}`},
	}}))
	raw.Write(s.Finish())

	events := claudeEvents(t, raw.String())

	// 块索引必须从 0 起连续递增
	var lastStart int64 = -1
	for _, e := range events {
		if e.name == "content_block_start" {
			idx := e.data.Get("index").Int()
			assert.Equal(t, lastStart+1, idx)
			lastStart = idx
		}
	}
	assert.Equal(t, int64(2), lastStart, "text block plus two tool blocks")

	var toolStarts, inputDeltas int
	for _, e := range events {
		switch {
		case e.name == "content_block_start" && e.data.Get("content_block.type").String() == "tool_use":
			toolStarts++
			assert.NotEmpty(t, e.data.Get("content_block.id").String())
		case e.name == "content_block_delta" && e.data.Get("delta.type").String() == "input_json_delta":
			inputDeltas++
		}
	}
	assert.Equal(t, 2, toolStarts)
	assert.Equal(t, 2, inputDeltas)

	last := events[len(events)-2]
	assert.Equal(t, "message_delta", last.name)
	assert.Equal(t, "tool_use", last.data.Get("delta.stop_reason").String())
	assert.Equal(t, "message_stop", events[len(events)-1].name)
}

func TestClaudeStreamEmptyCompletion(t *testing.T) {
	s := NewClaudeStream("claude-sonnet-4-5", false)
	events := claudeEvents(t, string(s.Finish()))
	require.Len(t, events, 3)
	assert.Equal(t, "message_start", events[0].name)
	assert.Equal(t, "message_delta", events[1].name)
	assert.Equal(t, "message_stop", events[2].name)
}

func TestUnaryProjections(t *testing.T) {
	res := &upstream.UnaryResult{
		Content:            "answer",
		ReasoningContent:   "thoughts",
		ReasoningSignature: "sig-u",
		ToolCalls:          []upstream.ToolCall{{ID: "t1", Name: "lookup", Arguments: `{"q":"x"}`}},
		Usage:              &upstream.Usage{PromptTokens: 3, CompletionTokens: 7, TotalTokens: 10},
	}

	openai := gjson.ParseBytes(OpenAIUnary("gpt-x", res))
	assert.Equal(t, "chat.completion", openai.Get("object").String())
	assert.Equal(t, "answer", openai.Get("choices.0.message.content").String())
	assert.Equal(t, "thoughts", openai.Get("choices.0.message.reasoning_content").String())
	assert.Equal(t, "tool_calls", openai.Get("choices.0.finish_reason").String())
	assert.Equal(t, int64(10), openai.Get("usage.total_tokens").Int())

	gemini := gjson.ParseBytes(GeminiUnary("gemini-3-pro-high", res, true))
	assert.Equal(t, "STOP", gemini.Get("candidates.0.finishReason").String())
	parts := gemini.Get("candidates.0.content.parts").Array()
	require.Len(t, parts, 3)
	assert.Equal(t, true, parts[0].Get("thought").Bool())
	assert.Equal(t, "sig-u", parts[0].Get("thoughtSignature").String())
	assert.Equal(t, "x", parts[2].Get("functionCall.args.q").String())

	claude := gjson.ParseBytes(ClaudeUnary("claude-sonnet-4-5", res, false))
	blocks := claude.Get("content").Array()
	require.Len(t, blocks, 3)
	assert.Equal(t, "thinking", blocks[0].Get("type").String())
	assert.False(t, blocks[0].Get("signature").Exists(), "signature stripped when passthrough off")
	assert.Equal(t, "text", blocks[1].Get("type").String())
	assert.Equal(t, "tool_use", blocks[2].Get("type").String())
	assert.Equal(t, "tool_use", claude.Get("stop_reason").String())
	assert.Equal(t, int64(7), claude.Get("usage.output_tokens").Int())
}
