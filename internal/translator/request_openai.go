package translator

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/models"
)

// ParseOpenAIRequest maps a Chat Completions body onto the internal
// request shape. system messages are lifted out of the history, tool
// messages become functionResponse parts.
func ParseOpenAIRequest(body []byte) (*Request, error) {
	root := gjson.ParseBytes(body)

	rawModel := root.Get("model").String()
	if rawModel == "" {
		return nil, fmt.Errorf("model is required")
	}
	messages := root.Get("messages")
	if !messages.IsArray() || len(messages.Array()) == 0 {
		return nil, fmt.Errorf("messages is required")
	}

	req := &Request{
		Model:    models.Resolve(rawModel),
		RawModel: rawModel,
		Stream:   root.Get("stream").Bool(),
		Params:   NormalizeOpenAI(root),
	}

	var system []string
	for _, msg := range messages.Array() {
		switch msg.Get("role").String() {
		case "system", "developer":
			system = append(system, openaiContentText(msg.Get("content")))
		case "user":
			req.Contents = append(req.Contents, map[string]interface{}{
				"role":  "user",
				"parts": []map[string]interface{}{{"text": openaiContentText(msg.Get("content"))}},
			})
		case "assistant":
			req.Contents = append(req.Contents, openaiAssistantMessage(msg))
		case "tool":
			req.Contents = append(req.Contents, map[string]interface{}{
				"role": "user",
				"parts": []map[string]interface{}{{
					"functionResponse": map[string]interface{}{
						"id":       msg.Get("tool_call_id").String(),
						"name":     msg.Get("name").String(),
						"response": map[string]interface{}{"result": openaiContentText(msg.Get("content"))},
					},
				}},
			})
		}
	}
	req.SystemText = strings.Join(system, "\n\n")

	root.Get("tools").ForEach(func(_, tool gjson.Result) bool {
		if tool.Get("type").String() != "function" {
			return true
		}
		fn := tool.Get("function")
		req.Tools = append(req.Tools, functionDeclaration(
			fn.Get("name").String(),
			fn.Get("description").String(),
			fn.Get("parameters"),
		))
		return true
	})

	return req, nil
}

func openaiAssistantMessage(msg gjson.Result) map[string]interface{} {
	var parts []map[string]interface{}

	if reasoning := msg.Get("reasoning_content").String(); reasoning != "" {
		parts = append(parts, map[string]interface{}{"text": reasoning, "thought": true})
	}
	if text := openaiContentText(msg.Get("content")); text != "" {
		parts = append(parts, map[string]interface{}{"text": text})
	}
	msg.Get("tool_calls").ForEach(func(_, call gjson.Result) bool {
		fn := call.Get("function")
		parts = append(parts, map[string]interface{}{
			"functionCall": map[string]interface{}{
				"id":   call.Get("id").String(),
				"name": fn.Get("name").String(),
				"args": jsonValue(fn.Get("arguments")),
			},
		})
		return true
	})
	if len(parts) == 0 {
		parts = append(parts, map[string]interface{}{"text": ""})
	}

	return map[string]interface{}{"role": "model", "parts": parts}
}

// openaiContentText flattens either the plain-string or the typed-array
// content form into one text blob.
func openaiContentText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.String()
	}
	if !content.IsArray() {
		return ""
	}
	var sb strings.Builder
	content.ForEach(func(_, item gjson.Result) bool {
		if item.Get("type").String() == "text" {
			sb.WriteString(item.Get("text").String())
		}
		return true
	})
	return sb.String()
}

// jsonValue decodes the OpenAI arguments field, which arrives either as
// a JSON object or as a string-encoded JSON object.
func jsonValue(args gjson.Result) interface{} {
	switch {
	case args.IsObject() || args.IsArray():
		return args.Value()
	case args.Type == gjson.String:
		parsed := gjson.Parse(args.String())
		if parsed.IsObject() || parsed.IsArray() {
			return parsed.Value()
		}
	}
	return map[string]interface{}{}
}

func functionDeclaration(name, description string, parameters gjson.Result) map[string]interface{} {
	decl := map[string]interface{}{"name": name}
	if description != "" {
		decl["description"] = description
	}
	if parameters.IsObject() {
		decl["parameters"] = parameters.Value()
	}
	return decl
}
