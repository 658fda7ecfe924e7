package main

import (
	"context"
	"fmt"
	"log"

	"github.com/closetlog/internal/config"
	"github.com/closetlog/internal/handler"
	"github.com/closetlog/internal/router"
	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		gin.SetMode(cfg.GinMode)

		gdb, err := openDatabase(cfg)
		if err != nil {
			return err
		}

		images, uploadDir, err := newImageStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}

		api := handler.NewAPI(gdb, images, handler.Options{
			VisionDefaults: service.VisionSettings{
				Provider:        cfg.VisionProvider,
				GeminiAPIKey:    cfg.GeminiAPIKey,
				AnthropicAPIKey: cfg.AnthropicAPIKey,
				Model:           cfg.VisionModel(),
			},
			Similarity:           cfg.MatcherSimilarity,
			AnalyzeRatePerMinute: cfg.AnalyzeRatePerMinute,
		})

		r := router.SetupRouter(api, cfg.SessionSecret, uploadDir, cfg.UploadURLPath)
		log.Printf("[http] listening on %s (images=%s vision=%s)", cfg.ListenAddr, cfg.ImageStore, cfg.VisionProvider)
		if err := r.Run(cfg.ListenAddr); err != nil {
			return fmt.Errorf("run server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// newImageStore 按配置返回存储实现；本地存储同时返回需要挂载的目录。
func newImageStore(ctx context.Context, cfg config.AppConfig) (service.ImageStore, string, error) {
	if cfg.ImageStore == config.ImageStoreS3 {
		if ctx == nil {
			ctx = context.Background()
		}
		store, err := service.NewS3ImageStore(ctx, cfg.AWSRegion, cfg.AWSBucketName)
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	}
	return service.NewLocalImageStore(cfg.UploadDir, cfg.UploadURLPath), cfg.UploadDir, nil
}
