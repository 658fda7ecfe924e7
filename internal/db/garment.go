package db

import "time"

// 衣物分类，与前端筛选项保持一致。
const (
	CategoryTops        = "tops"
	CategoryBottoms     = "bottoms"
	CategoryDresses     = "dresses"
	CategoryOuterwear   = "outerwear"
	CategoryShoes       = "shoes"
	CategoryAccessories = "accessories"
	CategoryPijama      = "pijama"
)

// 适用季节。
const (
	SeasonMid    = "mid-season"
	SeasonSummer = "summer"
	SeasonWinter = "winter"
	SeasonAll    = "all-season"
)

// Categories 列出全部合法分类，顺序即展示顺序。
var Categories = []string{
	CategoryTops,
	CategoryBottoms,
	CategoryDresses,
	CategoryOuterwear,
	CategoryShoes,
	CategoryAccessories,
	CategoryPijama,
}

// Seasons 列出全部合法季节。
var Seasons = []string{SeasonMid, SeasonSummer, SeasonWinter, SeasonAll}

// Garment 表示用户衣橱中的一件衣物
// UseCount 记录被多少套穿搭引用，只能通过穿搭的创建/删除调整，永远不小于 0
type Garment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Name      string    `gorm:"not null" json:"name"`
	PhotoURL  string    `gorm:"not null" json:"photo_url"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	UseCount  int       `gorm:"not null;default:0;index" json:"use_count"`
	Category  string    `gorm:"size:32;index;not null" json:"category"`
	Season    string    `gorm:"size:32;index;not null" json:"season"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 固定表名。
func (Garment) TableName() string {
	return "garments"
}
