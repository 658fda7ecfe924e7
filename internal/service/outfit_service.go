package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/closetlog/internal/db"
)

const (
	wornDateLayout  = "2006-01-02"
	wornMonthLayout = "2006-01"
)

var (
	ErrOutfitNotFound     = errors.New("outfit not found")
	ErrOutfitPhotoMissing = errors.New("outfit photo is required")
	ErrOutfitDateMissing  = errors.New("worn date is required")
	ErrOutfitDateInvalid  = errors.New("worn date is invalid")
)

// OutfitService 维护穿搭与衣物使用次数的一致性。
// 创建与删除都是逐件尽力而为：单件衣物的关联或计数失败只记录，不回滚整套穿搭。
type OutfitService struct {
	store WardrobeStore
}

// OutfitInput 是创建穿搭的参数，WornDate 只取日期部分。
type OutfitInput struct {
	PhotoURL   string
	WornDate   time.Time
	GarmentIDs []uint
}

// OutfitFilter 按单日（YYYY-MM-DD）或整月（YYYY-MM）筛选，都为空时返回全部。
type OutfitFilter struct {
	Date  string
	Month string
}

// GarmentFailure 记录某件衣物在关联或计数阶段的失败。
type GarmentFailure struct {
	GarmentID uint
	Err       error
}

// OutfitCreation 是一次创建的结果。Requested 为去重后的衣物数量。
type OutfitCreation struct {
	Outfit            *db.Outfit
	Requested         int
	LinkedGarmentIDs  []uint
	CountedGarmentIDs []uint
	LinkFailures      []GarmentFailure
	CountFailures     []GarmentFailure
}

// Partial 表示是否存在未完成的关联或计数。
func (c *OutfitCreation) Partial() bool {
	return len(c.LinkFailures) > 0 || len(c.CountFailures) > 0
}

// OutfitDetail 是穿搭及其关联的衣物。
type OutfitDetail struct {
	Outfit   db.Outfit
	Garments []db.Garment
}

// NewOutfitService 构造 OutfitService。
func NewOutfitService(store WardrobeStore) *OutfitService {
	return &OutfitService{store: store}
}

// CreateOutfit 写入穿搭，再逐件写关联、累加使用次数。
// 不属于该用户的衣物不会被关联；关联失败的衣物不计数，计数失败的衣物保留关联。
func (s *OutfitService) CreateOutfit(ctx context.Context, userID uint, input OutfitInput) (*OutfitCreation, error) {
	photo := strings.TrimSpace(input.PhotoURL)
	if photo == "" {
		return nil, ErrOutfitPhotoMissing
	}
	if input.WornDate.IsZero() {
		return nil, ErrOutfitDateMissing
	}

	ids := uniqueIDs(input.GarmentIDs)
	owned, err := s.store.FindGarmentsByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load outfit garments: %w", err)
	}
	ownedSet := make(map[uint]struct{}, len(owned))
	for _, garment := range owned {
		ownedSet[garment.ID] = struct{}{}
	}

	outfit := db.Outfit{
		UserID:   userID,
		PhotoURL: photo,
		WornDate: NormalizeWornDate(input.WornDate),
	}
	if err := s.store.InsertOutfit(ctx, &outfit); err != nil {
		return nil, fmt.Errorf("create outfit: %w", err)
	}

	result := &OutfitCreation{Outfit: &outfit, Requested: len(ids)}
	for _, garmentID := range ids {
		if _, ok := ownedSet[garmentID]; !ok {
			log.Printf("[outfit] outfit=%d skip garment=%d: not owned by user=%d", outfit.ID, garmentID, userID)
			result.LinkFailures = append(result.LinkFailures, GarmentFailure{GarmentID: garmentID, Err: ErrGarmentNotFound})
			continue
		}

		if err := s.store.InsertOutfitGarmentLinks(ctx, userID, outfit.ID, []uint{garmentID}); err != nil {
			log.Printf("[outfit] outfit=%d link garment=%d failed: %v", outfit.ID, garmentID, err)
			result.LinkFailures = append(result.LinkFailures, GarmentFailure{GarmentID: garmentID, Err: err})
			continue
		}
		result.LinkedGarmentIDs = append(result.LinkedGarmentIDs, garmentID)

		if err := s.store.IncrementGarmentUseCount(ctx, garmentID, userID); err != nil {
			err = notFound(err, ErrGarmentNotFound)
			log.Printf("[outfit] outfit=%d increment garment=%d failed: %v", outfit.ID, garmentID, err)
			result.CountFailures = append(result.CountFailures, GarmentFailure{GarmentID: garmentID, Err: err})
			continue
		}
		result.CountedGarmentIDs = append(result.CountedGarmentIDs, garmentID)
	}

	if result.Partial() {
		log.Printf("[outfit] outfit=%d partially persisted: requested=%d linked=%d counted=%d",
			outfit.ID, result.Requested, len(result.LinkedGarmentIDs), len(result.CountedGarmentIDs))
	}
	return result, nil
}

// DeleteOutfit 删除穿搭及关联行，并在同一事务中逐件扣减使用次数（下限为 0）。
// 扣减失败只记录日志，穿搭总会被删除；穿搭已被删除时返回 ErrOutfitNotFound，不再扣减。
func (s *OutfitService) DeleteOutfit(ctx context.Context, userID, outfitID uint) error {
	removal, err := s.store.DeleteOutfit(ctx, outfitID, userID)
	if err != nil {
		return notFound(err, ErrOutfitNotFound)
	}
	for garmentID, err := range removal.DecrementFailures {
		log.Printf("[outfit] outfit=%d decrement garment=%d failed: %v", outfitID, garmentID, err)
	}
	return nil
}

// GetOutfit 返回穿搭及其中属于该用户的衣物。
func (s *OutfitService) GetOutfit(ctx context.Context, userID, outfitID uint) (*OutfitDetail, error) {
	outfit, err := s.store.GetOutfit(ctx, outfitID, userID)
	if err != nil {
		return nil, notFound(err, ErrOutfitNotFound)
	}
	detail, err := s.loadDetail(ctx, userID, *outfit)
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListOutfits 按穿着日期倒序返回穿搭。
func (s *OutfitService) ListOutfits(ctx context.Context, userID uint, filter OutfitFilter) ([]OutfitDetail, error) {
	query, err := outfitQueryFromFilter(filter)
	if err != nil {
		return nil, err
	}

	outfits, err := s.store.FindOutfits(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("list outfits: %w", err)
	}

	details := make([]OutfitDetail, 0, len(outfits))
	for _, outfit := range outfits {
		detail, err := s.loadDetail(ctx, userID, outfit)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

// RecountUseCounts 以关联表为准重算用户全部衣物的使用次数，返回被修正的衣物数量。
func (s *OutfitService) RecountUseCounts(ctx context.Context, userID uint) (int, error) {
	garments, err := s.store.FindGarmentsByUser(ctx, userID, db.GarmentQuery{})
	if err != nil {
		return 0, fmt.Errorf("load garments: %w", err)
	}
	counts, err := s.store.CountOutfitLinksByGarment(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count outfit links: %w", err)
	}

	fixed := 0
	for _, garment := range garments {
		expected := counts[garment.ID]
		if garment.UseCount == expected {
			continue
		}
		if err := s.store.SetGarmentUseCount(ctx, garment.ID, userID, expected); err != nil {
			return fixed, fmt.Errorf("set use count for garment %d: %w", garment.ID, err)
		}
		log.Printf("[outfit] recount garment=%d use_count %d -> %d", garment.ID, garment.UseCount, expected)
		fixed++
	}
	return fixed, nil
}

func (s *OutfitService) loadDetail(ctx context.Context, userID uint, outfit db.Outfit) (OutfitDetail, error) {
	ids, err := s.store.FindOutfitGarmentLinks(ctx, outfit.ID)
	if err != nil {
		return OutfitDetail{}, fmt.Errorf("load outfit links: %w", err)
	}
	garments, err := s.store.FindGarmentsByIDs(ctx, userID, ids)
	if err != nil {
		return OutfitDetail{}, fmt.Errorf("load outfit garments: %w", err)
	}
	return OutfitDetail{Outfit: outfit, Garments: garments}, nil
}

func outfitQueryFromFilter(filter OutfitFilter) (db.OutfitQuery, error) {
	if date := strings.TrimSpace(filter.Date); date != "" {
		day, err := ParseWornDate(date)
		if err != nil {
			return db.OutfitQuery{}, err
		}
		return db.OutfitQuery{From: day, To: day.AddDate(0, 0, 1)}, nil
	}
	if month := strings.TrimSpace(filter.Month); month != "" {
		start, err := time.ParseInLocation(wornMonthLayout, month, time.Local)
		if err != nil {
			return db.OutfitQuery{}, ErrOutfitDateInvalid
		}
		return db.OutfitQuery{From: start, To: start.AddDate(0, 1, 0)}, nil
	}
	return db.OutfitQuery{}, nil
}

// ParseWornDate 解析 YYYY-MM-DD，按本地时区零点返回。
// 带时间的 RFC3339 值只取其字面日期，不做时区换算。
func ParseWornDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, ErrOutfitDateMissing
	}
	if day, err := time.ParseInLocation(wornDateLayout, trimmed, time.Local); err == nil {
		return day, nil
	}
	if stamp, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return NormalizeWornDate(stamp), nil
	}
	return time.Time{}, ErrOutfitDateInvalid
}

// NormalizeWornDate 保留 t 自身时区下的年月日，返回本地时区零点。
func NormalizeWornDate(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.Local)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
