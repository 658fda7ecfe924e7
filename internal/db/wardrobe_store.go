package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNegativeUseCount 表示试图把使用次数写成负数。
var ErrNegativeUseCount = errors.New("use count must not be negative")

// garmentSortColumns 白名单，排序字段只能取这些列。
var garmentSortColumns = map[string]struct{}{
	"created_at": {},
	"use_count":  {},
	"name":       {},
	"quantity":   {},
}

// GarmentQuery 描述衣橱列表的筛选与排序条件，空值表示不过滤。
type GarmentQuery struct {
	Category string
	Season   string
	SortBy   string
	Desc     bool
}

// OutfitQuery 描述穿搭列表的日期区间，[From, To) 左闭右开，零值表示不限。
type OutfitQuery struct {
	From time.Time
	To   time.Time
}

// WardrobeStore 基于 gorm 实现衣物、穿搭及关联表的持久化操作
// 所有读写都按 userID 限定范围；记录不存在或不属于该用户时返回 gorm.ErrRecordNotFound
type WardrobeStore struct {
	db *gorm.DB
}

// NewWardrobeStore 构造 WardrobeStore。
func NewWardrobeStore(gdb *gorm.DB) *WardrobeStore {
	return &WardrobeStore{db: gdb}
}

// FindGarmentsByUser 返回用户的衣物列表。
func (s *WardrobeStore) FindGarmentsByUser(ctx context.Context, userID uint, query GarmentQuery) ([]Garment, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if category := strings.TrimSpace(query.Category); category != "" {
		tx = tx.Where("category = ?", category)
	}
	if season := strings.TrimSpace(query.Season); season != "" {
		tx = tx.Where("season = ?", season)
	}

	column := strings.TrimSpace(query.SortBy)
	if _, ok := garmentSortColumns[column]; !ok {
		column = "created_at"
	}
	tx = tx.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: query.Desc}).
		Order("id ASC")

	var garments []Garment
	if err := tx.Find(&garments).Error; err != nil {
		return nil, err
	}
	return garments, nil
}

// FindGarmentsByIDs 按 ID 批量读取，只返回属于该用户的衣物，结果按 ID 升序。
func (s *WardrobeStore) FindGarmentsByIDs(ctx context.Context, userID uint, ids []uint) ([]Garment, error) {
	if len(ids) == 0 {
		return []Garment{}, nil
	}

	var garments []Garment
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Order("id ASC").
		Find(&garments).Error; err != nil {
		return nil, err
	}
	return garments, nil
}

// GetGarment 读取单件衣物。
func (s *WardrobeStore) GetGarment(ctx context.Context, garmentID, userID uint) (*Garment, error) {
	var garment Garment
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", garmentID, userID).
		First(&garment).Error; err != nil {
		return nil, err
	}
	return &garment, nil
}

// InsertGarment 新增衣物，写入后 garment.ID 被回填。
func (s *WardrobeStore) InsertGarment(ctx context.Context, garment *Garment) error {
	return s.db.WithContext(ctx).Create(garment).Error
}

// SaveGarment 覆盖保存衣物的全部字段。
func (s *WardrobeStore) SaveGarment(ctx context.Context, garment *Garment) error {
	return s.db.WithContext(ctx).Save(garment).Error
}

// DeleteGarment 删除衣物及其关联行、待捐赠记录。
func (s *WardrobeStore) DeleteGarment(ctx context.Context, garmentID, userID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var garment Garment
		if err := tx.Where("id = ? AND user_id = ?", garmentID, userID).First(&garment).Error; err != nil {
			return err
		}
		if err := tx.Where("garment_id = ?", garmentID).Delete(&OutfitGarment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("garment_id = ?", garmentID).Delete(&SavedDonation{}).Error; err != nil {
			return err
		}
		return tx.Delete(&garment).Error
	})
}

// GetGarmentUseCount 读取使用次数。
func (s *WardrobeStore) GetGarmentUseCount(ctx context.Context, garmentID, userID uint) (int, error) {
	garment, err := s.GetGarment(ctx, garmentID, userID)
	if err != nil {
		return 0, err
	}
	return garment.UseCount, nil
}

// SetGarmentUseCount 直接写入使用次数；衣物属于其他用户时不做任何修改并返回 gorm.ErrRecordNotFound。
func (s *WardrobeStore) SetGarmentUseCount(ctx context.Context, garmentID, userID uint, value int) error {
	if value < 0 {
		return ErrNegativeUseCount
	}
	return s.updateUseCount(ctx, garmentID, userID, value)
}

// IncrementGarmentUseCount 以单条 UPDATE 原子地加一，并发创建穿搭时不会丢失计数。
func (s *WardrobeStore) IncrementGarmentUseCount(ctx context.Context, garmentID, userID uint) error {
	return s.updateUseCount(ctx, garmentID, userID, gorm.Expr("use_count + 1"))
}

// DecrementGarmentUseCount 以单条 UPDATE 原子地减一，下限为 0。
func (s *WardrobeStore) DecrementGarmentUseCount(ctx context.Context, garmentID, userID uint) error {
	return s.updateUseCount(ctx, garmentID, userID, decrementExpr)
}

var decrementExpr = gorm.Expr("CASE WHEN use_count > 0 THEN use_count - 1 ELSE 0 END")

func (s *WardrobeStore) updateUseCount(ctx context.Context, garmentID, userID uint, value interface{}) error {
	return updateUseCount(s.db.WithContext(ctx), garmentID, userID, value)
}

func updateUseCount(tx *gorm.DB, garmentID, userID uint, value interface{}) error {
	result := tx.Model(&Garment{}).
		Where("id = ? AND user_id = ?", garmentID, userID).
		Update("use_count", value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// InsertOutfit 新增穿搭记录。
func (s *WardrobeStore) InsertOutfit(ctx context.Context, outfit *Outfit) error {
	return s.db.WithContext(ctx).Create(outfit).Error
}

// GetOutfit 读取单条穿搭。
func (s *WardrobeStore) GetOutfit(ctx context.Context, outfitID, userID uint) (*Outfit, error) {
	var outfit Outfit
	if err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", outfitID, userID).
		First(&outfit).Error; err != nil {
		return nil, err
	}
	return &outfit, nil
}

// FindOutfits 按穿着日期倒序返回穿搭列表。
func (s *WardrobeStore) FindOutfits(ctx context.Context, userID uint, query OutfitQuery) ([]Outfit, error) {
	tx := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if !query.From.IsZero() {
		tx = tx.Where("worn_date >= ?", query.From)
	}
	if !query.To.IsZero() {
		tx = tx.Where("worn_date < ?", query.To)
	}

	var outfits []Outfit
	if err := tx.Order("worn_date DESC").Order("id DESC").Find(&outfits).Error; err != nil {
		return nil, err
	}
	return outfits, nil
}

// CountOutfits 返回用户的穿搭总数。
func (s *WardrobeStore) CountOutfits(ctx context.Context, userID uint) (int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&Outfit{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// InsertOutfitGarmentLinks 写入关联行，已存在的 outfit_id + garment_id 组合会被忽略。
func (s *WardrobeStore) InsertOutfitGarmentLinks(ctx context.Context, userID, outfitID uint, garmentIDs []uint) error {
	if len(garmentIDs) == 0 {
		return nil
	}

	links := make([]OutfitGarment, 0, len(garmentIDs))
	for _, garmentID := range garmentIDs {
		links = append(links, OutfitGarment{UserID: userID, OutfitID: outfitID, GarmentID: garmentID})
	}

	return s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "outfit_id"}, {Name: "garment_id"}},
			DoNothing: true,
		}).
		Create(&links).Error
}

// FindOutfitGarmentLinks 返回穿搭关联的衣物 ID，按写入顺序排列。
func (s *WardrobeStore) FindOutfitGarmentLinks(ctx context.Context, outfitID uint) ([]uint, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&OutfitGarment{}).
		Where("outfit_id = ?", outfitID).
		Order("id ASC").
		Pluck("garment_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// CountOutfitLinksByGarment 统计用户每件衣物出现在多少套自己的穿搭中。
func (s *WardrobeStore) CountOutfitLinksByGarment(ctx context.Context, userID uint) (map[uint]int, error) {
	var rows []struct {
		GarmentID uint
		Total     int
	}
	if err := s.db.WithContext(ctx).Model(&OutfitGarment{}).
		Select("outfit_garments.garment_id AS garment_id, COUNT(*) AS total").
		Joins("JOIN garments ON garments.id = outfit_garments.garment_id").
		Where("outfit_garments.user_id = ? AND garments.user_id = ?", userID, userID).
		Group("outfit_garments.garment_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.GarmentID] = row.Total
	}
	return counts, nil
}

// OutfitRemoval 是删除穿搭的结果：被回退使用次数的衣物，以及单件扣减失败的原因。
type OutfitRemoval struct {
	GarmentIDs        []uint
	DecrementFailures map[uint]error
}

// DeleteOutfit 在同一事务中删除穿搭与关联行，并为这些关联扣减衣物使用次数（下限为 0）。
// 只有本事务确实删除了穿搭行才会扣减，同一穿搭被并发删除时计数只回退一次。
// 单件扣减在保存点中执行，失败记入 DecrementFailures，不影响删除本身。
func (s *WardrobeStore) DeleteOutfit(ctx context.Context, outfitID, userID uint) (*OutfitRemoval, error) {
	removal := &OutfitRemoval{DecrementFailures: map[uint]error{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var garmentIDs []uint
		if err := tx.Model(&OutfitGarment{}).
			Where("outfit_id = ?", outfitID).
			Order("id ASC").
			Pluck("garment_id", &garmentIDs).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND user_id = ?", outfitID, userID).Delete(&Outfit{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("outfit_id = ?", outfitID).Delete(&OutfitGarment{}).Error; err != nil {
			return err
		}

		for _, garmentID := range garmentIDs {
			err := tx.Transaction(func(sp *gorm.DB) error {
				return updateUseCount(sp, garmentID, userID, decrementExpr)
			})
			if err != nil {
				removal.DecrementFailures[garmentID] = err
				continue
			}
			removal.GarmentIDs = append(removal.GarmentIDs, garmentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removal, nil
}
