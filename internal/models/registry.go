package models

import (
	"strconv"
	"strings"
)

// Info describes one model exposed by the gateway and accepted upstream.
type Info struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Family      string `json:"family"` // gemini | claude
	Thinking    bool   `json:"thinking"`
}

// catalog is ordered the way the upstream lists models.
var catalog = []Info{
	{ID: "gemini-3-pro-high", DisplayName: "Gemini 3 Pro (High)", Family: "gemini", Thinking: true},
	{ID: "gemini-3-pro-low", DisplayName: "Gemini 3 Pro (Low)", Family: "gemini", Thinking: true},
	{ID: "gemini-3-flash", DisplayName: "Gemini 3 Flash", Family: "gemini", Thinking: true},
	{ID: "claude-sonnet-4-5", DisplayName: "Claude Sonnet 4.5", Family: "claude", Thinking: false},
	{ID: "claude-sonnet-4-5-thinking", DisplayName: "Claude Sonnet 4.5 (Thinking)", Family: "claude", Thinking: true},
	{ID: "claude-opus-4-6-thinking", DisplayName: "Claude Opus 4.6 (Thinking)", Family: "claude", Thinking: true},
}

// Catalog returns the exposed model list in upstream order.
func Catalog() []Info {
	out := make([]Info, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog entry by exact id.
func Lookup(id string) (Info, bool) {
	for _, m := range catalog {
		if m.ID == id {
			return m, true
		}
	}
	return Info{}, false
}

// IsThinking reports whether the model emits reasoning parts. Claude
// models are thinking-capable only when the id says so; Gemini models
// are thinking-capable from major version 3 onward.
func IsThinking(model string) bool {
	m := strings.ToLower(strings.TrimSpace(model))
	if strings.Contains(m, "claude") {
		return strings.Contains(m, "thinking")
	}
	if geminiMajor(m) >= 3 {
		return true
	}
	return strings.Contains(m, "thinking")
}

// geminiMajor extracts the major version from ids like gemini-3-flash or
// gemini-2.5-pro. Returns 0 when the id is not a gemini model.
func geminiMajor(id string) int {
	rest, found := strings.CutPrefix(id, "gemini-")
	if !found {
		return 0
	}
	head, _, _ := strings.Cut(rest, "-")
	if f, err := strconv.ParseFloat(head, 64); err == nil {
		return int(f)
	}
	return 0
}
