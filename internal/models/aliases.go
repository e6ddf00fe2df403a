package models

import "strings"

// 常见客户端写法到目录模型名的归一化。
// "models/" 前缀来自 Gemini 路由，"[1m]" 这类方括号后缀来自
// IDE 预设，"-latest" 来自 OpenAI 客户端习惯，
// "-20250929" 这类日期后缀来自 Anthropic 客户端。
func Resolve(raw string) string {
	m := strings.TrimSpace(raw)
	m = strings.TrimPrefix(m, "models/")
	if i := strings.Index(m, "["); i > 0 {
		m = m[:i]
	}
	m = strings.TrimSuffix(m, "-latest")
	if strings.HasPrefix(m, "claude-") {
		if i := strings.LastIndex(m, "-"); i > 0 && isDateSuffix(m[i+1:]) {
			m = m[:i]
		}
	}

	switch m {
	case "gemini-3-pro":
		return "gemini-3-pro-high"
	}
	return m
}

func isDateSuffix(s string) bool {
	if len(s) != 8 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
