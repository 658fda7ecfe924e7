package service

import (
	"context"

	"github.com/closetlog/internal/db"
)

// WardrobeStore 是业务层依赖的持久化能力，默认实现为 db.WardrobeStore，测试中可替换为内存实现。
// 找不到记录或记录不属于 userID 时，实现需返回 gorm.ErrRecordNotFound。
type WardrobeStore interface {
	FindGarmentsByUser(ctx context.Context, userID uint, query db.GarmentQuery) ([]db.Garment, error)
	FindGarmentsByIDs(ctx context.Context, userID uint, ids []uint) ([]db.Garment, error)
	GetGarment(ctx context.Context, garmentID, userID uint) (*db.Garment, error)
	InsertGarment(ctx context.Context, garment *db.Garment) error
	SaveGarment(ctx context.Context, garment *db.Garment) error
	DeleteGarment(ctx context.Context, garmentID, userID uint) error

	GetGarmentUseCount(ctx context.Context, garmentID, userID uint) (int, error)
	SetGarmentUseCount(ctx context.Context, garmentID, userID uint, value int) error
	IncrementGarmentUseCount(ctx context.Context, garmentID, userID uint) error

	InsertOutfit(ctx context.Context, outfit *db.Outfit) error
	GetOutfit(ctx context.Context, outfitID, userID uint) (*db.Outfit, error)
	FindOutfits(ctx context.Context, userID uint, query db.OutfitQuery) ([]db.Outfit, error)
	CountOutfits(ctx context.Context, userID uint) (int64, error)
	DeleteOutfit(ctx context.Context, outfitID, userID uint) (*db.OutfitRemoval, error)

	InsertOutfitGarmentLinks(ctx context.Context, userID, outfitID uint, garmentIDs []uint) error
	FindOutfitGarmentLinks(ctx context.Context, outfitID uint) ([]uint, error)
	CountOutfitLinksByGarment(ctx context.Context, userID uint) (map[uint]int, error)
}

var _ WardrobeStore = (*db.WardrobeStore)(nil)
