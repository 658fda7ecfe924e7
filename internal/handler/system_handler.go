package handler

import (
	"net/http"
	"strings"

	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
)

// HealthCheck 提供部署平台与监控系统使用的健康检查端点。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"message": "database handle unavailable",
		})
		return
	}

	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "error",
			"message": "database unreachable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
	})
}

type visionSettingsRequest struct {
	Provider        string `json:"provider"`
	GeminiAPIKey    string `json:"geminiApiKey"`
	AnthropicAPIKey string `json:"anthropicApiKey"`
	Model           string `json:"model"`
}

// GetVisionSettings 返回当前识图配置，Key 只返回掩码。
func (a *API) GetVisionSettings(c *gin.Context) {
	settings, err := a.system.GetVisionSettings(c.Request.Context())
	if err != nil {
		respondServiceError(c, err, "获取系统设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": visionSettingsPayload(settings)})
}

// UpdateVisionSettings 保存识图配置。提交的 Key 与掩码一致时保留原值。
func (a *API) UpdateVisionSettings(c *gin.Context) {
	var payload visionSettingsRequest
	if !bindJSON(c, &payload, "请填写完整的系统设置") {
		return
	}

	ctx := c.Request.Context()
	current, err := a.system.GetVisionSettings(ctx)
	if err != nil {
		respondServiceError(c, err, "获取系统设置失败")
		return
	}

	settings, err := a.system.UpdateVisionSettings(ctx, service.VisionSettings{
		Provider:        payload.Provider,
		GeminiAPIKey:    keepMaskedKey(payload.GeminiAPIKey, current.GeminiAPIKey),
		AnthropicAPIKey: keepMaskedKey(payload.AnthropicAPIKey, current.AnthropicAPIKey),
		Model:           payload.Model,
	})
	if err != nil {
		respondServiceError(c, err, "保存系统设置失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "系统设置已保存",
		"settings": visionSettingsPayload(settings),
	})
}

func visionSettingsPayload(settings service.VisionSettings) gin.H {
	return gin.H{
		"provider":        settings.Provider,
		"geminiApiKey":    maskAPIKey(settings.GeminiAPIKey),
		"anthropicApiKey": maskAPIKey(settings.AnthropicAPIKey),
		"model":           settings.Model,
		"configured":      strings.TrimSpace(settings.APIKey()) != "",
	}
}

// maskAPIKey 只保留末尾 4 位。
func maskAPIKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

func keepMaskedKey(submitted, current string) string {
	submitted = strings.TrimSpace(submitted)
	if submitted != "" && submitted == maskAPIKey(current) {
		return current
	}
	return submitted
}
