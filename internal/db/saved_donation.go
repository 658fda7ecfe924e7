package db

import "time"

// SavedDonation 标记用户打算捐赠的衣物，DonatedAt 为空表示尚未捐出。
type SavedDonation struct {
	ID        uint       `gorm:"primarykey" json:"id"`
	UserID    uint       `gorm:"not null;uniqueIndex:idx_saved_donation_unique" json:"user_id"`
	GarmentID uint       `gorm:"not null;uniqueIndex:idx_saved_donation_unique" json:"garment_id"`
	Garment   Garment    `gorm:"constraint:OnDelete:CASCADE" json:"garment"`
	SavedAt   time.Time  `gorm:"not null" json:"saved_at"`
	DonatedAt *time.Time `json:"donated_at"`
}

// TableName 固定表名。
func (SavedDonation) TableName() string {
	return "saved_donations"
}
