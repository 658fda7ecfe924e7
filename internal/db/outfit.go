package db

import "time"

// Outfit 记录某一天穿过的一套搭配
// WornDate 只保留日期部分，按本地时区零点存储，避免 UTC 换算导致跨日
type Outfit struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	PhotoURL  string    `gorm:"not null" json:"photo_url"`
	WornDate  time.Time `gorm:"index;not null" json:"worn_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 固定表名。
func (Outfit) TableName() string {
	return "outfits"
}

// OutfitGarment 是穿搭与衣物的关联行
// OutfitID + GarmentID 唯一；删除穿搭或衣物时级联清理
type OutfitGarment struct {
	ID        uint    `gorm:"primarykey"`
	UserID    uint    `gorm:"index;not null"`
	OutfitID  uint    `gorm:"not null;uniqueIndex:idx_outfit_garment_unique"`
	Outfit    Outfit  `gorm:"constraint:OnDelete:CASCADE"`
	GarmentID uint    `gorm:"not null;index;uniqueIndex:idx_outfit_garment_unique"`
	Garment   Garment `gorm:"constraint:OnDelete:CASCADE"`
}

// TableName 固定表名，唯一索引作用到 outfit_id + garment_id。
func (OutfitGarment) TableName() string {
	return "outfit_garments"
}
