package translator

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/models"
)

// ParseClaudeRequest maps an Anthropic Messages body onto the internal
// request shape. thinking blocks become thought parts, tool_use becomes
// functionCall, tool_result becomes functionResponse.
func ParseClaudeRequest(body []byte) (*Request, error) {
	root := gjson.ParseBytes(body)

	rawModel := root.Get("model").String()
	if rawModel == "" {
		return nil, fmt.Errorf("model is required")
	}
	messages := root.Get("messages")
	if !messages.IsArray() || len(messages.Array()) == 0 {
		return nil, fmt.Errorf("messages is required")
	}
	if root.Get("max_tokens").Int() <= 0 {
		return nil, fmt.Errorf("max_tokens is required")
	}

	req := &Request{
		Model:      models.Resolve(rawModel),
		RawModel:   rawModel,
		Stream:     root.Get("stream").Bool(),
		Params:     NormalizeClaude(root),
		SystemText: claudeSystemText(root.Get("system")),
	}

	for _, msg := range messages.Array() {
		role := "user"
		if msg.Get("role").String() == "assistant" {
			role = "model"
		}
		parts := claudeParts(msg.Get("content"))
		if len(parts) == 0 {
			continue
		}
		req.Contents = append(req.Contents, map[string]interface{}{"role": role, "parts": parts})
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("messages is required")
	}

	root.Get("tools").ForEach(func(_, tool gjson.Result) bool {
		req.Tools = append(req.Tools, functionDeclaration(
			tool.Get("name").String(),
			tool.Get("description").String(),
			tool.Get("input_schema"),
		))
		return true
	})

	return req, nil
}

func claudeSystemText(system gjson.Result) string {
	if system.Type == gjson.String {
		return system.String()
	}
	if !system.IsArray() {
		return ""
	}
	var texts []string
	system.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			texts = append(texts, block.Get("text").String())
		}
		return true
	})
	return strings.Join(texts, "\n\n")
}

func claudeParts(content gjson.Result) []map[string]interface{} {
	if content.Type == gjson.String {
		if content.String() == "" {
			return nil
		}
		return []map[string]interface{}{{"text": content.String()}}
	}

	var parts []map[string]interface{}
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			parts = append(parts, map[string]interface{}{"text": block.Get("text").String()})
		case "thinking":
			part := map[string]interface{}{
				"text":    block.Get("thinking").String(),
				"thought": true,
			}
			if sig := block.Get("signature").String(); sig != "" {
				part["thoughtSignature"] = sig
			}
			parts = append(parts, part)
		case "tool_use":
			parts = append(parts, map[string]interface{}{
				"functionCall": map[string]interface{}{
					"id":   block.Get("id").String(),
					"name": block.Get("name").String(),
					"args": jsonValue(block.Get("input")),
				},
			})
		case "tool_result":
			parts = append(parts, map[string]interface{}{
				"functionResponse": map[string]interface{}{
					"id":       block.Get("tool_use_id").String(),
					"response": map[string]interface{}{"result": claudeResultText(block.Get("content"))},
				},
			})
		}
		return true
	})
	return parts
}

// claudeResultText tool_result 的 content 可能是字符串或文本块数组。
func claudeResultText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}
	if !content.IsArray() {
		return content.Raw
	}
	var sb strings.Builder
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").String() == "text" {
			sb.WriteString(block.Get("text").String())
		}
		return true
	})
	return sb.String()
}
