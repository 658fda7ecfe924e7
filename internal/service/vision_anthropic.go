package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5"

// AnthropicDetector 通过 Anthropic Messages API 识别衣物，照片以 base64 图片块发送。
type AnthropicDetector struct {
	client anthropic.Client
	model  string
}

// NewAnthropicDetector 创建 Anthropic 客户端，opts 可覆盖 BaseURL 等，便于测试。
func NewAnthropicDetector(apiKey, model string, opts ...anthropicoption.RequestOption) *AnthropicDetector {
	if strings.TrimSpace(model) == "" {
		model = defaultAnthropicModel
	}
	clientOpts := append([]anthropicoption.RequestOption{anthropicoption.WithAPIKey(apiKey)}, opts...)
	return &AnthropicDetector{client: anthropic.NewClient(clientOpts...), model: model}
}

// Detect 发送照片并拼接返回的文本块。
func (d *AnthropicDetector) Detect(ctx context.Context, image VisionImage) (string, error) {
	mimeType := strings.ToLower(strings.TrimSpace(image.MIMEType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	call := startVisionCall(VisionProviderAnthropic, d.model, image)
	resp, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(d.model),
		MaxTokens: maxVisionOutputTokens,
		System:    []anthropic.TextBlockParam{{Text: visionSystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mimeType, base64.StdEncoding.EncodeToString(image.Data)),
				anthropic.NewTextBlock(visionUserPrompt),
			),
		},
	})
	if err != nil {
		err = fmt.Errorf("anthropic messages: %w", err)
		call.finish("", err)
		return "", err
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}
	call.finish(builder.String(), nil)
	return builder.String(), nil
}
