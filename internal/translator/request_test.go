package translator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/signature"
)

func newTestBuilder() *Builder {
	return NewBuilder(signature.NewCache(), "You are a test gateway.")
}

func TestParseOpenAIRequest(t *testing.T) {
	body := []byte(`{
		"model": "gemini-3-pro",
		"stream": true,
		"messages": [
			{"role": "system", "content": "be brief"},
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": "hello", "tool_calls": [
				{"id": "call_1", "type": "function", "function": {"name": "lookup", "arguments": "{\"q\":\"x\"}"}}
			]},
			{"role": "tool", "tool_call_id": "call_1", "content": "found"}
		],
		"tools": [{"type": "function", "function": {"name": "lookup", "description": "search", "parameters": {"type": "object"}}}]
	}`)

	req, err := ParseOpenAIRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro-high", req.Model)
	assert.Equal(t, "gemini-3-pro", req.RawModel)
	assert.True(t, req.Stream)
	assert.Equal(t, "be brief", req.SystemText)
	require.Len(t, req.Contents, 3)
	assert.Equal(t, "user", req.Contents[0]["role"])
	assert.Equal(t, "model", req.Contents[1]["role"])

	toolMsg := req.Contents[2]
	resp := partsOf(toolMsg)[0]["functionResponse"].(map[string]interface{})
	assert.Equal(t, "call_1", resp["id"])

	require.Len(t, req.Tools, 1)
	assert.Equal(t, "lookup", req.Tools[0]["name"])
}

func TestParseOpenAIRequestValidation(t *testing.T) {
	_, err := ParseOpenAIRequest([]byte(`{"messages":[{"role":"user","content":"hi"}]}`))
	assert.Error(t, err)
	_, err = ParseOpenAIRequest([]byte(`{"model":"gemini-3-flash","messages":[]}`))
	assert.Error(t, err)
}

func TestParseClaudeRequest(t *testing.T) {
	body := []byte(`{
		"model": "claude-sonnet-4-5-thinking",
		"max_tokens": 1024,
		"system": "be precise",
		"messages": [
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": [
				{"type": "thinking", "thinking": "hmm", "signature": "sig-1"},
				{"type": "text", "text": "hello"},
				{"type": "tool_use", "id": "toolu_1", "name": "lookup", "input": {"q": "x"}}
			]},
			{"role": "user", "content": [
				{"type": "tool_result", "tool_use_id": "toolu_1", "content": "found"}
			]}
		]
	}`)

	req, err := ParseClaudeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5-thinking", req.Model)
	assert.Equal(t, "be precise", req.SystemText)
	require.Len(t, req.Contents, 3)

	assistant := partsOf(req.Contents[1])
	require.Len(t, assistant, 3)
	assert.Equal(t, true, assistant[0]["thought"])
	assert.Equal(t, "sig-1", assistant[0]["thoughtSignature"])
	call := assistant[2]["functionCall"].(map[string]interface{})
	assert.Equal(t, "toolu_1", call["id"])
}

func TestParseClaudeRequestRequiresMaxTokens(t *testing.T) {
	_, err := ParseClaudeRequest([]byte(`{"model":"claude-sonnet-4-5","messages":[{"role":"user","content":"hi"}]}`))
	assert.Error(t, err)
}

func TestParseGeminiRequest(t *testing.T) {
	body := []byte(`{
		"contents": [{"role": "user", "parts": [{"text": "hi"}]}],
		"systemInstruction": {"parts": [{"text": "be kind"}]},
		"generationConfig": {"maxOutputTokens": 512, "temperature": 0.5},
		"tools": [{"functionDeclarations": [{"name": "lookup", "parameters": {"type": "object"}}]}]
	}`)

	req, err := ParseGeminiRequest("models/gemini-3-flash", true, body)
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-flash", req.Model)
	assert.Equal(t, "be kind", req.SystemText)
	assert.Equal(t, 512, req.Params.MaxTokens)
	require.Len(t, req.Tools, 1)
}

func TestFunctionCallIDThreading(t *testing.T) {
	contents := []map[string]interface{}{
		{"role": "model", "parts": []map[string]interface{}{
			{"functionCall": map[string]interface{}{"name": "a", "args": map[string]interface{}{}}},
			{"functionCall": map[string]interface{}{"name": "b", "args": map[string]interface{}{}}},
		}},
		{"role": "user", "parts": []map[string]interface{}{
			{"functionResponse": map[string]interface{}{"name": "a", "response": map[string]interface{}{}}},
			{"functionResponse": map[string]interface{}{"name": "b", "response": map[string]interface{}{}}},
		}},
	}

	threadFunctionCallIDs(contents)

	calls := partsOf(contents[0])
	responses := partsOf(contents[1])
	for i := range calls {
		callID := calls[i]["functionCall"].(map[string]interface{})["id"]
		respID := responses[i]["functionResponse"].(map[string]interface{})["id"]
		assert.NotEmpty(t, callID)
		assert.Equal(t, callID, respID, "response %d must pair with call %d", i, i)
	}
}

func TestStitchMergesStandaloneSignature(t *testing.T) {
	b := newTestBuilder()
	contents := []map[string]interface{}{
		{"role": "model", "parts": []map[string]interface{}{
			{"text": "thinking...", "thought": true},
			{"thoughtSignature": "sig-standalone"},
			{"text": "answer"},
		}},
	}

	b.stitchThoughtSignatures(contents, "gemini-3-pro-high")

	parts := partsOf(contents[0])
	require.Len(t, parts, 2, "standalone signature part must be removed")
	assert.Equal(t, "sig-standalone", parts[0]["thoughtSignature"])
}

func TestStitchInjectsPlaceholderThought(t *testing.T) {
	b := newTestBuilder()
	contents := []map[string]interface{}{
		{"role": "model", "parts": []map[string]interface{}{{"text": "answer"}}},
	}

	b.stitchThoughtSignatures(contents, "gemini-3-pro-high")

	parts := partsOf(contents[0])
	require.Len(t, parts, 2)
	assert.Equal(t, true, parts[0]["thought"])
	assert.Equal(t, constants.PlaceholderThoughtSignature, parts[0]["thoughtSignature"])
}

func TestStitchUsesCachedSignatures(t *testing.T) {
	cache := signature.NewCache()
	cache.StoreText("gemini-3-pro-high", "cached-text-sig")
	cache.StoreTool("gemini-3-pro-high", "cached-tool-sig")
	b := NewBuilder(cache, "")

	contents := []map[string]interface{}{
		{"role": "model", "parts": []map[string]interface{}{
			{"text": "answer"},
			{"functionCall": map[string]interface{}{"name": "a", "args": map[string]interface{}{}}},
		}},
	}
	b.stitchThoughtSignatures(contents, "gemini-3-pro-high")

	parts := partsOf(contents[0])
	require.Len(t, parts, 3)
	assert.Equal(t, "cached-text-sig", parts[0]["thoughtSignature"])
	assert.Equal(t, "cached-tool-sig", parts[2]["thoughtSignature"])
}

func TestUpstreamBodyEnvelope(t *testing.T) {
	b := newTestBuilder()
	req := &Request{
		Model:      "gemini-3-pro-high",
		RawModel:   "gemini-3-pro",
		SystemText: "caller system",
		Contents: []map[string]interface{}{
			{"role": "user", "parts": []map[string]interface{}{{"text": "hi"}}},
		},
		Tools: []map[string]interface{}{{"name": "lookup"}},
	}

	body, err := b.UpstreamBody(req, "proj-1", "sess-1")
	require.NoError(t, err)

	root := gjson.ParseBytes(body)
	assert.Equal(t, "proj-1", root.Get("project").String())
	assert.Equal(t, "gemini-3-pro-high", root.Get("model").String())
	assert.Equal(t, "antigravity", root.Get("userAgent").String())
	assert.NotEmpty(t, root.Get("requestId").String())
	assert.Equal(t, "sess-1", root.Get("request.sessionId").String())
	assert.Equal(t, "VALIDATED", root.Get("request.toolConfig.functionCallingConfig.mode").String())
	assert.Equal(t, "user", root.Get("request.systemInstruction.role").String())

	sys := root.Get("request.systemInstruction.parts.0.text").String()
	assert.Contains(t, sys, "You are a test gateway.")
	assert.Contains(t, sys, "caller system")
}

func TestUpstreamBodyRejectsEmpty(t *testing.T) {
	b := newTestBuilder()
	_, err := b.UpstreamBody(&Request{Model: "gemini-3-flash"}, "p", "s")
	assert.Error(t, err)
	_, err = b.UpstreamBody(&Request{Contents: []map[string]interface{}{{"role": "user"}}}, "p", "s")
	assert.Error(t, err)
}
