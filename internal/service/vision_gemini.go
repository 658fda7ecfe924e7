package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiDetector 通过 Google Gemini 识别衣物，要求模型直接返回 JSON。
type GeminiDetector struct {
	client *genai.Client
	model  string
}

// NewGeminiDetector 创建 Gemini 客户端，opts 会追加在 API Key 之后。
func NewGeminiDetector(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiDetector, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAIAPIKeyMissing
	}
	if strings.TrimSpace(model) == "" {
		model = defaultGeminiModel
	}

	clientOpts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiDetector{client: client, model: model}, nil
}

// Close 释放底层连接。
func (d *GeminiDetector) Close() error {
	return d.client.Close()
}

// Detect 发送照片并返回模型输出的文本。
func (d *GeminiDetector) Detect(ctx context.Context, image VisionImage) (string, error) {
	model := d.client.GenerativeModel(d.model)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(visionSystemPrompt)}}
	model.SetMaxOutputTokens(maxVisionOutputTokens)
	model.SetTemperature(0.2)

	format := strings.TrimPrefix(strings.ToLower(image.MIMEType), "image/")
	if format == "" {
		format = "jpeg"
	}

	call := startVisionCall(VisionProviderGemini, d.model, image)
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, image.Data), genai.Text(visionUserPrompt))
	if err != nil {
		err = fmt.Errorf("gemini generate content: %w", err)
		call.finish("", err)
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		err = fmt.Errorf("gemini returned no candidates")
		call.finish("", err)
		return "", err
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			builder.WriteString(string(text))
		}
	}
	call.finish(builder.String(), nil)
	return builder.String(), nil
}
