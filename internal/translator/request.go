package translator

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"antigravity2api-go/internal/constants"
	"antigravity2api-go/internal/models"
	"antigravity2api-go/internal/signature"
)

// Request 三种入站方言解析后的中间表示，内容已是上游 parts 形状。
type Request struct {
	// Model is the resolved upstream model id; RawModel echoes what the
	// caller sent and goes back out in responses.
	Model    string
	RawModel string
	Stream   bool

	Contents   []map[string]interface{}
	SystemText string
	Tools      []map[string]interface{}
	Params     GenerationParams
}

// Builder assembles the upstream v1internal body from a parsed Request.
// One builder is shared across requests; it owns no per-call state.
type Builder struct {
	signatures        *signature.Cache
	systemInstruction string
}

// NewBuilder wires the signature cache and the process-wide system
// instruction prefix. An empty prefix falls back to the pinned
// Antigravity instruction the upstream expects.
func NewBuilder(signatures *signature.Cache, systemInstruction string) *Builder {
	if systemInstruction == "" {
		systemInstruction = constants.DefaultSystemInstruction
	}
	return &Builder{signatures: signatures, systemInstruction: systemInstruction}
}

// UpstreamBody runs the shared post-processing pipeline and wraps the
// result in the v1internal envelope.
func (b *Builder) UpstreamBody(req *Request, projectID, sessionID string) ([]byte, error) {
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("messages are required")
	}

	threadFunctionCallIDs(req.Contents)
	if models.IsThinking(req.Model) {
		b.stitchThoughtSignatures(req.Contents, req.Model)
	}

	inner := map[string]interface{}{
		"contents":          req.Contents,
		"systemInstruction": b.systemInstructionNode(req.SystemText),
		"generationConfig":  req.Params.GenerationConfig(req.Model),
		"sessionId":         sessionID,
	}
	if len(req.Tools) > 0 {
		inner["tools"] = []map[string]interface{}{{"functionDeclarations": req.Tools}}
		inner["toolConfig"] = map[string]interface{}{
			"functionCallingConfig": map[string]interface{}{"mode": "VALIDATED"},
		}
	}

	envelope := map[string]interface{}{
		"project":   projectID,
		"requestId": uuid.NewString(),
		"request":   inner,
		"model":     req.Model,
		"userAgent": "antigravity",
	}
	return json.Marshal(envelope)
}

// systemInstructionNode 进程级指令在前，调用方 system 文本在后。
func (b *Builder) systemInstructionNode(callerText string) map[string]interface{} {
	text := b.systemInstruction
	if callerText != "" {
		text += "\n\n" + callerText
	}
	return map[string]interface{}{
		"role":  "user",
		"parts": []map[string]interface{}{{"text": text}},
	}
}

// threadFunctionCallIDs pairs functionCall and functionResponse parts
// across the history. Model-side calls get fresh ids when the SDK
// dropped them; user-side responses then consume those ids in order.
func threadFunctionCallIDs(contents []map[string]interface{}) {
	var pending []string

	for _, msg := range contents {
		parts := partsOf(msg)
		switch msg["role"] {
		case "model":
			for _, part := range parts {
				call, ok := part["functionCall"].(map[string]interface{})
				if !ok {
					continue
				}
				id, _ := call["id"].(string)
				if id == "" {
					id = "call_" + uuid.NewString()
					call["id"] = id
				}
				pending = append(pending, id)
			}
		default:
			for _, part := range parts {
				resp, ok := part["functionResponse"].(map[string]interface{})
				if !ok {
					continue
				}
				if id, _ := resp["id"].(string); id != "" {
					continue
				}
				if len(pending) == 0 {
					continue
				}
				resp["id"] = pending[0]
				pending = pending[1:]
			}
		}
	}
}

// stitchThoughtSignatures repairs thought-signature threading on every
// historical model message: standalone signature parts are folded into
// the first unsigned thought part, then into unsigned functionCall
// parts in order; whatever is still unsigned falls back to the cached
// signature for the model, and finally to the upstream placeholder.
func (b *Builder) stitchThoughtSignatures(contents []map[string]interface{}, model string) {
	for _, msg := range contents {
		if msg["role"] != "model" {
			continue
		}
		parts := partsOf(msg)
		if len(parts) == 0 {
			continue
		}

		var standalone []string
		kept := make([]map[string]interface{}, 0, len(parts))
		for _, part := range parts {
			if sig, ok := standaloneSignature(part); ok {
				standalone = append(standalone, sig)
				continue
			}
			kept = append(kept, part)
		}

		thoughtIdx := -1
		for i, part := range kept {
			if thought, _ := part["thought"].(bool); !thought {
				continue
			}
			if sig, _ := part["thoughtSignature"].(string); sig == "" {
				thoughtIdx = i
				break
			}
		}

		if thoughtIdx >= 0 && len(standalone) > 0 {
			kept[thoughtIdx]["thoughtSignature"] = standalone[0]
			standalone = standalone[1:]
		} else if thoughtIdx < 0 && !hasThoughtPart(kept) {
			kept = append([]map[string]interface{}{{
				"text":             "",
				"thought":          true,
				"thoughtSignature": b.reasoningSignature(model),
			}}, kept...)
		}

		for _, part := range kept {
			if _, ok := part["functionCall"].(map[string]interface{}); !ok {
				continue
			}
			if sig, _ := part["thoughtSignature"].(string); sig != "" {
				continue
			}
			if len(standalone) > 0 {
				part["thoughtSignature"] = standalone[0]
				standalone = standalone[1:]
			} else {
				part["thoughtSignature"] = b.toolSignature(model)
			}
		}

		msg["parts"] = kept
	}
}

// standaloneSignature 仅携带 thoughtSignature、没有任何内容的部件。
func standaloneSignature(part map[string]interface{}) (string, bool) {
	sig, _ := part["thoughtSignature"].(string)
	if sig == "" {
		return "", false
	}
	if text, _ := part["text"].(string); text != "" {
		return "", false
	}
	if thought, _ := part["thought"].(bool); thought {
		return "", false
	}
	if _, ok := part["functionCall"]; ok {
		return "", false
	}
	return sig, true
}

func hasThoughtPart(parts []map[string]interface{}) bool {
	for _, part := range parts {
		if thought, _ := part["thought"].(bool); thought {
			return true
		}
	}
	return false
}

func (b *Builder) reasoningSignature(model string) string {
	if sig, ok := b.signatures.Text(model); ok {
		return sig
	}
	return constants.PlaceholderThoughtSignature
}

func (b *Builder) toolSignature(model string) string {
	if sig, ok := b.signatures.Tool(model); ok {
		return sig
	}
	return constants.PlaceholderThoughtSignature
}

func partsOf(msg map[string]interface{}) []map[string]interface{} {
	parts, _ := msg["parts"].([]map[string]interface{})
	return parts
}
