package handler

import (
	"context"

	"github.com/closetlog/internal/db"
	"github.com/closetlog/internal/service"
	"gorm.io/gorm"
)

// Options 汇总构造 API 时可调整的依赖。
type Options struct {
	VisionDefaults       service.VisionSettings
	Similarity           string
	DetectorFactory      service.DetectorFactory
	AnalyzeRatePerMinute int
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	store       service.WardrobeStore
	images      service.ImageStore
	garments    *service.GarmentService
	outfits     *service.OutfitService
	reconciler  *service.OutfitReconciler
	analyzer    *service.OutfitAnalyzer
	analytics   *service.AnalyticsService
	preferences *service.PreferenceService
	donations   *service.DonationService
	system      *service.SystemSettingService
	analyzeRate *userRateLimiter
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, images service.ImageStore, opts Options) *API {
	store := db.NewWardrobeStore(gdb)
	systemService := service.NewSystemSettingService(gdb, opts.VisionDefaults)
	preferences := service.NewPreferenceService(gdb)
	reconciler := service.NewOutfitReconciler(
		service.NewGarmentMatcher(service.NewSimilarity(opts.Similarity)),
		store,
		images,
	)

	return &API{
		db:          gdb,
		store:       store,
		images:      images,
		garments:    service.NewGarmentService(store, images),
		outfits:     service.NewOutfitService(store),
		reconciler:  reconciler,
		analyzer:    service.NewOutfitAnalyzer(store, systemService, reconciler, opts.DetectorFactory),
		analytics:   service.NewAnalyticsService(store, preferences),
		preferences: preferences,
		donations:   service.NewDonationService(gdb),
		system:      systemService,
		analyzeRate: newUserRateLimiter(opts.AnalyzeRatePerMinute),
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// photoSrc 把存储键转换为前端可访问的地址，失败时返回原值。
func (a *API) photoSrc(ctx context.Context, key string) string {
	if a.images == nil || key == "" {
		return key
	}
	url, err := a.images.URL(ctx, key)
	if err != nil {
		return key
	}
	return url
}
