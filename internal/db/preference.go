package db

import "time"

// DefaultDonationThresholdMonths 在用户未设置偏好时使用。
const DefaultDonationThresholdMonths = 6

// Preference 保存每个用户的偏好设置，每个用户最多一行。
type Preference struct {
	ID                      uint      `gorm:"primarykey" json:"id"`
	UserID                  uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	DonationThresholdMonths int       `gorm:"not null;default:6" json:"donation_threshold_months"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

// TableName 固定表名。
func (Preference) TableName() string {
	return "preferences"
}
