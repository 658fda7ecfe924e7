package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/closetlog/internal/db"
	"gorm.io/gorm"
)

var (
	ErrGarmentNotFound        = errors.New("garment not found")
	ErrGarmentNameMissing     = errors.New("garment name is required")
	ErrGarmentPhotoMissing    = errors.New("garment photo is required")
	ErrGarmentCategoryInvalid = errors.New("garment category is invalid")
	ErrGarmentSeasonInvalid   = errors.New("garment season is invalid")
	ErrGarmentQuantityInvalid = errors.New("garment quantity must be at least 1")
	ErrGarmentUseCountInvalid = errors.New("garment use count must not be negative")
)

// GarmentService 提供衣物的增删改查。
type GarmentService struct {
	store  WardrobeStore
	images ImageStore
}

// GarmentInput 用于手动新增衣物。
type GarmentInput struct {
	Name     string
	PhotoURL string
	Category string
	Season   string
	Quantity int
}

// GarmentPatch 描述部分更新，nil 字段保持原值；归属用户不可修改。
type GarmentPatch struct {
	Name     *string
	PhotoURL *string
	Category *string
	Season   *string
	Quantity *int
	UseCount *int
}

// GarmentFilter 对应衣橱列表页的筛选与排序参数。
type GarmentFilter struct {
	Category string
	Season   string
	SortBy   string
	Order    string
}

// NewGarmentService 构造 GarmentService，images 可为空，此时删除衣物不清理照片。
func NewGarmentService(store WardrobeStore, images ImageStore) *GarmentService {
	return &GarmentService{store: store, images: images}
}

// List 返回衣橱列表，默认按创建时间倒序。
func (s *GarmentService) List(ctx context.Context, userID uint, filter GarmentFilter) ([]db.Garment, error) {
	query := db.GarmentQuery{
		SortBy: strings.TrimSpace(filter.SortBy),
		Desc:   !strings.EqualFold(strings.TrimSpace(filter.Order), "asc"),
	}
	if category := strings.ToLower(strings.TrimSpace(filter.Category)); category != "" && category != "all" {
		if !isValidCategory(category) {
			return nil, ErrGarmentCategoryInvalid
		}
		query.Category = category
	}
	if season := strings.ToLower(strings.TrimSpace(filter.Season)); season != "" && season != "all" {
		if !isValidSeason(season) {
			return nil, ErrGarmentSeasonInvalid
		}
		query.Season = season
	}

	garments, err := s.store.FindGarmentsByUser(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("list garments: %w", err)
	}
	return garments, nil
}

// Get 读取单件衣物。
func (s *GarmentService) Get(ctx context.Context, userID, garmentID uint) (*db.Garment, error) {
	garment, err := s.store.GetGarment(ctx, garmentID, userID)
	if err != nil {
		return nil, notFound(err, ErrGarmentNotFound)
	}
	return garment, nil
}

// Create 校验并新增衣物，使用次数从 0 开始。
func (s *GarmentService) Create(ctx context.Context, userID uint, input GarmentInput) (*db.Garment, error) {
	garment := db.Garment{
		UserID:   userID,
		Name:     sanitizeText(input.Name),
		PhotoURL: strings.TrimSpace(input.PhotoURL),
		Category: strings.ToLower(strings.TrimSpace(input.Category)),
		Season:   strings.ToLower(strings.TrimSpace(input.Season)),
		Quantity: input.Quantity,
	}
	if garment.Quantity == 0 {
		garment.Quantity = 1
	}
	if err := validateGarment(&garment); err != nil {
		return nil, err
	}

	if err := s.store.InsertGarment(ctx, &garment); err != nil {
		return nil, fmt.Errorf("create garment: %w", err)
	}
	return &garment, nil
}

// Update 按补丁更新衣物。
func (s *GarmentService) Update(ctx context.Context, userID, garmentID uint, patch GarmentPatch) (*db.Garment, error) {
	garment, err := s.Get(ctx, userID, garmentID)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		garment.Name = sanitizeText(*patch.Name)
	}
	if patch.PhotoURL != nil {
		garment.PhotoURL = strings.TrimSpace(*patch.PhotoURL)
	}
	if patch.Category != nil {
		garment.Category = strings.ToLower(strings.TrimSpace(*patch.Category))
	}
	if patch.Season != nil {
		garment.Season = strings.ToLower(strings.TrimSpace(*patch.Season))
	}
	if patch.Quantity != nil {
		garment.Quantity = *patch.Quantity
	}
	if patch.UseCount != nil {
		if *patch.UseCount < 0 {
			return nil, ErrGarmentUseCountInvalid
		}
		garment.UseCount = *patch.UseCount
	}
	if err := validateGarment(garment); err != nil {
		return nil, err
	}

	if err := s.store.SaveGarment(ctx, garment); err != nil {
		return nil, fmt.Errorf("update garment: %w", err)
	}
	return garment, nil
}

// Delete 删除衣物及其穿搭关联，照片删除失败只记录日志。
func (s *GarmentService) Delete(ctx context.Context, userID, garmentID uint) error {
	garment, err := s.Get(ctx, userID, garmentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteGarment(ctx, garmentID, userID); err != nil {
		return notFound(err, ErrGarmentNotFound)
	}

	if s.images != nil && garment.PhotoURL != "" {
		if err := s.images.Delete(ctx, garment.PhotoURL); err != nil {
			log.Printf("[garment] delete photo %s failed: %v", garment.PhotoURL, err)
		}
	}
	return nil
}

func validateGarment(garment *db.Garment) error {
	switch {
	case garment.Name == "":
		return ErrGarmentNameMissing
	case garment.PhotoURL == "":
		return ErrGarmentPhotoMissing
	case !isValidCategory(garment.Category):
		return ErrGarmentCategoryInvalid
	case !isValidSeason(garment.Season):
		return ErrGarmentSeasonInvalid
	case garment.Quantity < 1:
		return ErrGarmentQuantityInvalid
	}
	return nil
}

// notFound 把存储层的 gorm.ErrRecordNotFound 转换为业务层的哨兵错误。
func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
