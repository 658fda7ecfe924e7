package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemSettingServiceDefaults(t *testing.T) {
	gdb, _ := setupWardrobeTestDB(t)

	svc := NewSystemSettingService(gdb, VisionSettings{GeminiAPIKey: "env-gemini", Model: ""})
	settings, err := svc.GetVisionSettings(context.Background())
	require.NoError(t, err)

	assert.Equal(t, VisionProviderGemini, settings.Provider)
	assert.Equal(t, "env-gemini", settings.APIKey())
}

func TestSystemSettingServiceUpdate(t *testing.T) {
	gdb, _ := setupWardrobeTestDB(t)
	ctx := context.Background()

	svc := NewSystemSettingService(gdb, VisionSettings{Provider: VisionProviderGemini, GeminiAPIKey: "env-gemini"})
	updated, err := svc.UpdateVisionSettings(ctx, VisionSettings{
		Provider:        " Anthropic ",
		AnthropicAPIKey: "  sk-ant  ",
		Model:           "claude-test",
	})
	require.NoError(t, err)
	assert.Equal(t, VisionProviderAnthropic, updated.Provider)
	assert.Equal(t, "sk-ant", updated.APIKey())
	assert.Equal(t, "claude-test", updated.Model)
	assert.Equal(t, "env-gemini", updated.GeminiAPIKey, "empty gemini key falls back to env")

	again, err := svc.UpdateVisionSettings(ctx, VisionSettings{Provider: VisionProviderGemini, GeminiAPIKey: "db-gemini"})
	require.NoError(t, err)
	assert.Equal(t, VisionProviderGemini, again.Provider)
	assert.Equal(t, "db-gemini", again.APIKey())
	assert.Empty(t, again.AnthropicAPIKey)
	assert.Empty(t, again.Model)

	_, err = svc.UpdateVisionSettings(ctx, VisionSettings{Provider: "openai"})
	assert.ErrorIs(t, err, ErrVisionProviderInvalid)
}
