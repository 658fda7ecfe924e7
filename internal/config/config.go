package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// 照片存储后端。
const (
	ImageStoreLocal = "local"
	ImageStoreS3    = "s3"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	DatabasePath  string
	SessionSecret string
	GinMode       string

	ImageStore    string
	UploadDir     string
	UploadURLPath string
	AWSRegion     string
	AWSBucketName string

	VisionProvider  string
	GeminiAPIKey    string
	AnthropicAPIKey string
	GeminiModel     string
	AnthropicModel  string

	MatcherSimilarity    string
	AnalyzeRatePerMinute int
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
// 当前目录存在 .env 时先加载，已有的环境变量不会被覆盖。
func Load() AppConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("[config] load .env failed: %v", err)
	}

	port := envOr("PORT", "8080")
	listenAddr := envOr("LISTEN_ADDR", fmt.Sprintf(":%s", port))

	imageStore := strings.ToLower(envOr("IMAGE_STORE", ImageStoreLocal))
	if imageStore != ImageStoreS3 {
		imageStore = ImageStoreLocal
	}

	rate, err := strconv.Atoi(envOr("ANALYZE_RATE_PER_MINUTE", "10"))
	if err != nil || rate < 0 {
		log.Printf("[config] invalid ANALYZE_RATE_PER_MINUTE, using 10")
		rate = 10
	}

	return AppConfig{
		ListenAddr:    listenAddr,
		Port:          port,
		DatabasePath:  envOr("DATABASE_PATH", "closetlog.db"),
		SessionSecret: envOr("SESSION_SECRET", "closetlog-dev-secret"),
		GinMode:       envOr("GIN_MODE", "release"),

		ImageStore:    imageStore,
		UploadDir:     envOr("UPLOAD_DIR", "web/static/uploads"),
		UploadURLPath: envOr("UPLOAD_URL_PATH", "/static/uploads"),
		AWSRegion:     envOr("AWS_REGION", "us-east-1"),
		AWSBucketName: envOr("AWS_BUCKET_NAME", ""),

		VisionProvider:  strings.ToLower(envOr("VISION_PROVIDER", "gemini")),
		GeminiAPIKey:    envOr("GEMINI_API_KEY", ""),
		AnthropicAPIKey: envOr("ANTHROPIC_API_KEY", ""),
		GeminiModel:     envOr("GEMINI_MODEL", "gemini-1.5-flash"),
		AnthropicModel:  envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5"),

		MatcherSimilarity:    strings.ToLower(envOr("MATCHER_SIMILARITY", "token")),
		AnalyzeRatePerMinute: rate,
	}
}

// VisionModel 返回当前识图平台的默认模型名称。
func (c AppConfig) VisionModel() string {
	if c.VisionProvider == "anthropic" {
		return c.AnthropicModel
	}
	return c.GeminiModel
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
