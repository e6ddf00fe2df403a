package translator

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"antigravity2api-go/internal/models"
)

// ParseGeminiRequest maps a native generateContent body onto the
// internal shape. The model comes from the route, not the body; the
// contents are already parts-shaped and only need coercion.
func ParseGeminiRequest(model string, stream bool, body []byte) (*Request, error) {
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	root := gjson.ParseBytes(body)

	contents := root.Get("contents")
	if !contents.IsArray() || len(contents.Array()) == 0 {
		return nil, fmt.Errorf("contents is required")
	}

	req := &Request{
		Model:    models.Resolve(model),
		RawModel: model,
		Stream:   stream,
		Params:   NormalizeGemini(root.Get("generationConfig")),
	}

	for _, msg := range contents.Array() {
		role := msg.Get("role").String()
		if role == "" {
			role = "user"
		}
		var parts []map[string]interface{}
		msg.Get("parts").ForEach(func(_, part gjson.Result) bool {
			if m, ok := part.Value().(map[string]interface{}); ok {
				parts = append(parts, m)
			}
			return true
		})
		if len(parts) == 0 {
			continue
		}
		req.Contents = append(req.Contents, map[string]interface{}{"role": role, "parts": parts})
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("contents is required")
	}

	sys := root.Get("systemInstruction")
	if !sys.Exists() {
		sys = root.Get("system_instruction")
	}
	req.SystemText = geminiSystemText(sys)

	root.Get("tools").ForEach(func(_, tool gjson.Result) bool {
		tool.Get("functionDeclarations").ForEach(func(_, decl gjson.Result) bool {
			req.Tools = append(req.Tools, functionDeclaration(
				decl.Get("name").String(),
				decl.Get("description").String(),
				decl.Get("parameters"),
			))
			return true
		})
		return true
	})

	return req, nil
}

func geminiSystemText(sys gjson.Result) string {
	if sys.Type == gjson.String {
		return sys.String()
	}
	var texts []string
	sys.Get("parts").ForEach(func(_, part gjson.Result) bool {
		if text := part.Get("text").String(); text != "" {
			texts = append(texts, text)
		}
		return true
	})
	return strings.Join(texts, "\n")
}
