package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LISTEN_ADDR", "DATABASE_PATH", "SESSION_SECRET", "GIN_MODE", "IMAGE_STORE",
		"UPLOAD_DIR", "UPLOAD_URL_PATH", "AWS_REGION", "AWS_BUCKET_NAME", "VISION_PROVIDER",
		"GEMINI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_MODEL", "ANTHROPIC_MODEL",
		"MATCHER_SIMILARITY", "ANALYZE_RATE_PER_MINUTE",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.ListenAddr != ":8080" || cfg.DatabasePath != "closetlog.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ImageStore != ImageStoreLocal || cfg.UploadURLPath != "/static/uploads" {
		t.Fatalf("unexpected image store defaults: %+v", cfg)
	}
	if cfg.VisionProvider != "gemini" || cfg.VisionModel() != "gemini-1.5-flash" {
		t.Fatalf("unexpected vision defaults: %+v", cfg)
	}
	if cfg.MatcherSimilarity != "token" || cfg.AnalyzeRatePerMinute != 10 {
		t.Fatalf("unexpected matcher defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("IMAGE_STORE", "S3")
	t.Setenv("AWS_BUCKET_NAME", "closet-photos")
	t.Setenv("VISION_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_MODEL", "claude-test")
	t.Setenv("ANALYZE_RATE_PER_MINUTE", "abc")

	cfg := Load()
	if cfg.ListenAddr != ":9090" {
		t.Fatalf("expected listen addr to follow port, got %s", cfg.ListenAddr)
	}
	if cfg.ImageStore != ImageStoreS3 || cfg.AWSBucketName != "closet-photos" {
		t.Fatalf("unexpected s3 config: %+v", cfg)
	}
	if cfg.VisionModel() != "claude-test" {
		t.Fatalf("expected anthropic model, got %s", cfg.VisionModel())
	}
	if cfg.AnalyzeRatePerMinute != 10 {
		t.Fatalf("expected invalid rate to fall back, got %d", cfg.AnalyzeRatePerMinute)
	}
}
