package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/closetlog/internal/db"
)

const analyticsListLimit = 5

// WardrobeStats 是首页的汇总数字。
type WardrobeStats struct {
	TotalGarments      int   `json:"total_garments"`
	TotalOutfits       int64 `json:"total_outfits"`
	UtilizationPercent int   `json:"utilization_percent"`
}

// WardrobeOverview 汇总穿着频率与捐赠建议。
type WardrobeOverview struct {
	Stats               WardrobeStats `json:"stats"`
	MostWorn            []db.Garment  `json:"most_worn"`
	LeastWorn           []db.Garment  `json:"least_worn"`
	DonationSuggestions []db.Garment  `json:"donation_suggestions"`
	ThresholdMonths     int           `json:"threshold_months"`
}

// AnalyticsService 基于衣物使用次数计算衣橱统计。
type AnalyticsService struct {
	store       WardrobeStore
	preferences *PreferenceService
	now         func() time.Time
}

// NewAnalyticsService 创建 AnalyticsService，preferences 为空时阈值固定为默认值。
func NewAnalyticsService(store WardrobeStore, preferences *PreferenceService) *AnalyticsService {
	return &AnalyticsService{store: store, preferences: preferences, now: time.Now}
}

// WithClock 允许在测试中固定当前时间。
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	if now == nil {
		return s
	}
	s.now = now
	return s
}

// Overview 计算统计数据。thresholdMonths <= 0 时使用用户偏好。
// 捐赠建议：使用次数不超过 1 且创建时间早于 now - thresholdMonths。
func (s *AnalyticsService) Overview(ctx context.Context, userID uint, thresholdMonths int) (*WardrobeOverview, error) {
	if thresholdMonths <= 0 {
		thresholdMonths = db.DefaultDonationThresholdMonths
		if s.preferences != nil {
			months, err := s.preferences.DonationThreshold(ctx, userID)
			if err != nil {
				return nil, err
			}
			thresholdMonths = months
		}
	}

	garments, err := s.store.FindGarmentsByUser(ctx, userID, db.GarmentQuery{SortBy: "use_count", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("load garments: %w", err)
	}
	totalOutfits, err := s.store.CountOutfits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count outfits: %w", err)
	}

	overview := &WardrobeOverview{
		Stats:               WardrobeStats{TotalGarments: len(garments), TotalOutfits: totalOutfits},
		MostWorn:            head(garments, analyticsListLimit),
		DonationSuggestions: []db.Garment{},
		ThresholdMonths:     thresholdMonths,
	}

	leastWorn := append([]db.Garment(nil), garments...)
	sort.SliceStable(leastWorn, func(i, j int) bool {
		return leastWorn[i].UseCount < leastWorn[j].UseCount
	})
	overview.LeastWorn = head(leastWorn, analyticsListLimit)

	cutoff := s.now().AddDate(0, -thresholdMonths, 0)
	worn := 0
	for _, garment := range garments {
		if garment.UseCount > 0 {
			worn++
		}
		if garment.UseCount <= 1 && garment.CreatedAt.Before(cutoff) {
			overview.DonationSuggestions = append(overview.DonationSuggestions, garment)
		}
	}
	if len(garments) > 0 {
		overview.Stats.UtilizationPercent = int(math.Round(float64(worn) / float64(len(garments)) * 100))
	}

	return overview, nil
}

func head(garments []db.Garment, limit int) []db.Garment {
	if len(garments) > limit {
		garments = garments[:limit]
	}
	return append([]db.Garment{}, garments...)
}
