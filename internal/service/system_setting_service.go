package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/closetlog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// VisionProviderGemini 表示使用 Google Gemini 识图。
	VisionProviderGemini = "gemini"
	// VisionProviderAnthropic 表示使用 Anthropic Claude 识图。
	VisionProviderAnthropic = "anthropic"
)

var supportedVisionProviders = []string{VisionProviderGemini, VisionProviderAnthropic}

// ErrAIAPIKeyMissing 表示当前识图平台没有可用的 API Key。
var ErrAIAPIKeyMissing = errors.New("api key is required")

// ErrVisionProviderInvalid 表示不支持的识图平台。
var ErrVisionProviderInvalid = errors.New("vision provider is not supported")

// VisionSettings 描述识图能力的配置。
type VisionSettings struct {
	Provider        string
	GeminiAPIKey    string
	AnthropicAPIKey string
	Model           string
}

// APIKey 返回当前平台对应的 Key。
func (v VisionSettings) APIKey() string {
	if v.Provider == VisionProviderAnthropic {
		return v.AnthropicAPIKey
	}
	return v.GeminiAPIKey
}

// SystemSettingService 提供识图配置的读取与更新能力。
// 数据库中没有的项回退到 defaults（来自环境变量）。
type SystemSettingService struct {
	db       *gorm.DB
	defaults VisionSettings
}

// NewSystemSettingService 构造 SystemSettingService。
func NewSystemSettingService(gdb *gorm.DB, defaults VisionSettings) *SystemSettingService {
	if normalizeVisionProvider(defaults.Provider) == "" {
		defaults.Provider = VisionProviderGemini
	}
	return &SystemSettingService{db: gdb, defaults: defaults}
}

var visionSettingKeys = []string{
	db.SettingKeyVisionProvider,
	db.SettingKeyGeminiAPIKey,
	db.SettingKeyAnthropicAPIKey,
	db.SettingKeyVisionModel,
}

// GetVisionSettings 读取识图配置。
func (s *SystemSettingService) GetVisionSettings(ctx context.Context) (VisionSettings, error) {
	result := s.defaults

	var records []db.SystemSetting
	if err := s.db.WithContext(ctx).Where("key IN ?", visionSettingKeys).Find(&records).Error; err != nil {
		return result, fmt.Errorf("load system settings: %w", err)
	}

	for _, record := range records {
		value := strings.TrimSpace(record.Value)
		if value == "" {
			continue
		}
		switch record.Key {
		case db.SettingKeyVisionProvider:
			if provider := normalizeVisionProvider(value); provider != "" {
				result.Provider = provider
			}
		case db.SettingKeyGeminiAPIKey:
			result.GeminiAPIKey = value
		case db.SettingKeyAnthropicAPIKey:
			result.AnthropicAPIKey = value
		case db.SettingKeyVisionModel:
			result.Model = value
		}
	}

	return result, nil
}

// UpdateVisionSettings 保存识图配置，空字段会清除数据库中的值并回退到默认配置。
func (s *SystemSettingService) UpdateVisionSettings(ctx context.Context, input VisionSettings) (VisionSettings, error) {
	provider := normalizeVisionProvider(input.Provider)
	if provider == "" {
		if strings.TrimSpace(input.Provider) != "" {
			return VisionSettings{}, ErrVisionProviderInvalid
		}
		provider = s.defaults.Provider
	}

	values := map[string]string{
		db.SettingKeyVisionProvider:  provider,
		db.SettingKeyGeminiAPIKey:    strings.TrimSpace(input.GeminiAPIKey),
		db.SettingKeyAnthropicAPIKey: strings.TrimSpace(input.AnthropicAPIKey),
		db.SettingKeyVisionModel:     strings.TrimSpace(input.Model),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, key := range visionSettingKeys {
			if err := upsertSetting(tx, key, values[key]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return VisionSettings{}, fmt.Errorf("update system settings: %w", err)
	}

	return s.GetVisionSettings(ctx)
}

func upsertSetting(tx *gorm.DB, key, value string) error {
	setting := db.SystemSetting{Key: key, Value: value}
	if err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&setting).Error; err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

func normalizeVisionProvider(provider string) string {
	trimmed := strings.ToLower(strings.TrimSpace(provider))
	for _, candidate := range supportedVisionProviders {
		if trimmed == candidate {
			return candidate
		}
	}
	return ""
}
