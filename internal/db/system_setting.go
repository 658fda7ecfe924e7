package db

import "gorm.io/gorm"

// SystemSetting 存储全局可配置的系统级键值对。
type SystemSetting struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (SystemSetting) TableName() string {
	return "system_settings"
}

const (
	// SettingKeyVisionProvider 表示识图所用的模型平台。
	SettingKeyVisionProvider = "vision_provider"
	// SettingKeyGeminiAPIKey 表示 Gemini API Key。
	SettingKeyGeminiAPIKey = "gemini_api_key"
	// SettingKeyAnthropicAPIKey 表示 Anthropic API Key。
	SettingKeyAnthropicAPIKey = "anthropic_api_key"
	// SettingKeyVisionModel 覆盖默认的识图模型名称。
	SettingKeyVisionModel = "vision_model"
)
