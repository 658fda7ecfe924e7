package service

import (
	"log"
	"strings"
	"time"
	"unicode/utf8"
)

const maxAILogSnippetRunes = 1024

// visionCall 记录一次识图调用，日志统一带上平台与模型，便于对比不同模型的表现。
type visionCall struct {
	provider string
	model    string
	started  time.Time
}

func startVisionCall(provider, model string, image VisionImage) *visionCall {
	log.Printf("[vision %s/%s] request: %s, %d bytes", provider, model, image.MIMEType, len(image.Data))
	return &visionCall{provider: provider, model: model, started: time.Now()}
}

// finish 输出耗时与响应片段，失败时只记录错误。
func (c *visionCall) finish(content string, err error) {
	elapsed := time.Since(c.started).Round(time.Millisecond)
	if err != nil {
		log.Printf("[vision %s/%s] failed after %s: %v", c.provider, c.model, elapsed, err)
		return
	}
	runes, snippet := logSnippet(content)
	log.Printf("[vision %s/%s] response after %s (runes=%d): %s", c.provider, c.model, elapsed, runes, snippet)
}

func logSnippet(content string) (int, string) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return 0, "<empty>"
	}
	runeCount := utf8.RuneCountInString(trimmed)
	if runeCount > maxAILogSnippetRunes {
		return runeCount, string([]rune(trimmed)[:maxAILogSnippetRunes]) + "…(truncated)"
	}
	return runeCount, trimmed
}
