package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/closetlog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrDonationNotFound       = errors.New("saved donation not found")
	ErrDonationAlreadySaved   = errors.New("garment is already saved for donation")
	ErrDonationGarmentMissing = errors.New("garment id is required")
)

// DonationService 管理用户标记为待捐赠的衣物。
type DonationService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDonationService 构造 DonationService。
func NewDonationService(gdb *gorm.DB) *DonationService {
	return &DonationService{db: gdb, now: time.Now}
}

// ListPending 返回尚未捐出的记录，附带衣物信息，最新保存的在前。
func (s *DonationService) ListPending(ctx context.Context, userID uint) ([]db.SavedDonation, error) {
	var donations []db.SavedDonation
	if err := s.db.WithContext(ctx).
		Preload("Garment").
		Where("user_id = ? AND donated_at IS NULL", userID).
		Order("saved_at DESC").
		Order("id DESC").
		Find(&donations).Error; err != nil {
		return nil, fmt.Errorf("list saved donations: %w", err)
	}
	return donations, nil
}

// Save 把衣物加入待捐赠列表，重复保存返回 ErrDonationAlreadySaved。
func (s *DonationService) Save(ctx context.Context, userID, garmentID uint) (*db.SavedDonation, error) {
	if garmentID == 0 {
		return nil, ErrDonationGarmentMissing
	}

	var donation db.SavedDonation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var garment db.Garment
		if err := tx.Where("id = ? AND user_id = ?", garmentID, userID).First(&garment).Error; err != nil {
			return notFound(err, ErrGarmentNotFound)
		}

		donation = db.SavedDonation{UserID: userID, GarmentID: garmentID, SavedAt: s.now()}
		result := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&donation)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrDonationAlreadySaved
		}
		donation.Garment = garment
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrGarmentNotFound) || errors.Is(err, ErrDonationAlreadySaved) {
			return nil, err
		}
		return nil, fmt.Errorf("save donation: %w", err)
	}
	return &donation, nil
}

// Remove 将衣物从待捐赠列表移除。
func (s *DonationService) Remove(ctx context.Context, userID, garmentID uint) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND garment_id = ?", userID, garmentID).
		Delete(&db.SavedDonation{})
	if result.Error != nil {
		return fmt.Errorf("remove donation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDonationNotFound
	}
	return nil
}

// MarkDonated 记录衣物已捐出，重复标记保留第一次的时间。
func (s *DonationService) MarkDonated(ctx context.Context, userID, garmentID uint) (*db.SavedDonation, error) {
	var donation db.SavedDonation
	if err := s.db.WithContext(ctx).
		Preload("Garment").
		Where("user_id = ? AND garment_id = ?", userID, garmentID).
		First(&donation).Error; err != nil {
		return nil, notFound(err, ErrDonationNotFound)
	}
	if donation.DonatedAt != nil {
		return &donation, nil
	}

	donatedAt := s.now()
	if err := s.db.WithContext(ctx).Model(&db.SavedDonation{}).
		Where("id = ?", donation.ID).
		Update("donated_at", donatedAt).Error; err != nil {
		return nil, fmt.Errorf("mark donated: %w", err)
	}
	donation.DonatedAt = &donatedAt
	return &donation, nil
}
