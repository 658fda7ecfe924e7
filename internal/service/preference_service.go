package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/closetlog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrPreferenceThresholdInvalid 表示捐赠阈值月数小于 1。
var ErrPreferenceThresholdInvalid = errors.New("donation threshold must be at least 1 month")

// PreferenceService 读写用户偏好。
type PreferenceService struct {
	db *gorm.DB
}

// NewPreferenceService 构造 PreferenceService。
func NewPreferenceService(gdb *gorm.DB) *PreferenceService {
	return &PreferenceService{db: gdb}
}

// Get 返回用户偏好，没有记录时返回默认值（不落库）。
func (s *PreferenceService) Get(ctx context.Context, userID uint) (db.Preference, error) {
	var pref db.Preference
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&pref).Error
	switch {
	case err == nil:
		return pref, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return db.Preference{UserID: userID, DonationThresholdMonths: db.DefaultDonationThresholdMonths}, nil
	default:
		return db.Preference{}, fmt.Errorf("load preference: %w", err)
	}
}

// DonationThreshold 返回用户的捐赠阈值月数。
func (s *PreferenceService) DonationThreshold(ctx context.Context, userID uint) (int, error) {
	pref, err := s.Get(ctx, userID)
	if err != nil {
		return 0, err
	}
	return pref.DonationThresholdMonths, nil
}

// UpdateDonationThreshold 写入捐赠阈值，每个用户仅保留一行。
func (s *PreferenceService) UpdateDonationThreshold(ctx context.Context, userID uint, months int) (db.Preference, error) {
	if months < 1 {
		return db.Preference{}, ErrPreferenceThresholdInvalid
	}

	pref := db.Preference{UserID: userID, DonationThresholdMonths: months}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"donation_threshold_months": months,
			"updated_at":                gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&pref).Error; err != nil {
		return db.Preference{}, fmt.Errorf("update preference: %w", err)
	}

	return s.Get(ctx, userID)
}
