package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/closetlog/internal/db"
)

// SelectionChoice 是用户在确认页对某条识别结果的操作。
type SelectionChoice string

const (
	ChoiceExisting SelectionChoice = "existing"
	ChoiceNew      SelectionChoice = "new"
	ChoiceDeselect SelectionChoice = "deselect"
)

// ResolutionKind 区分使用已有衣物还是新建衣物。
type ResolutionKind string

const (
	ResolutionExisting ResolutionKind = "existing"
	ResolutionNew      ResolutionKind = "new"
)

// ErrResolutionInvalid 表示解析结果缺少必要信息。
var ErrResolutionInvalid = errors.New("resolution is invalid")

// Selection 是自动匹配后的初始状态：Matches 与识别结果一一对应，
// Selected 只包含匹配成功的下标，即默认勾选项。
type Selection struct {
	Matches  []MatchResult
	Selected map[int]MatchResult
}

// PhotoSource 是新建衣物使用的照片，默认是整张穿搭照，也可以是用户裁剪后的图。
type PhotoSource struct {
	Data        []byte
	ContentType string
}

// GarmentOverride 允许用户在新建前修改名称、分类与季节，空字段沿用识别值。
type GarmentOverride struct {
	Name     string
	Category string
	Season   string
}

// Resolution 描述一条识别结果最终落到哪件衣物上。
type Resolution struct {
	Index     int
	Kind      ResolutionKind
	GarmentID uint
	Name      string
	Category  string
	Season    string
	Photo     PhotoSource
}

// MaterializeFailure 记录单条新建失败的原因。
type MaterializeFailure struct {
	Index int
	Name  string
	Err   error
}

// MaterializeResult 汇总落地结果；len(GarmentIDs) 可能小于 Requested，差额来自失败或重复。
type MaterializeResult struct {
	GarmentIDs []uint
	Created    []db.Garment
	Requested  int
	Duplicates int
	Failures   []MaterializeFailure
}

// garmentCreator 是 Materialize 唯一需要的写能力。
type garmentCreator interface {
	InsertGarment(ctx context.Context, garment *db.Garment) error
}

// OutfitReconciler 把一张照片的识别结果与用户选择转换为最终要关联到穿搭的衣物 ID 列表。
type OutfitReconciler struct {
	matcher  *GarmentMatcher
	garments garmentCreator
	images   ImageStore
}

// NewOutfitReconciler 构造 OutfitReconciler。
func NewOutfitReconciler(matcher *GarmentMatcher, garments garmentCreator, images ImageStore) *OutfitReconciler {
	if matcher == nil {
		matcher = NewGarmentMatcher(nil)
	}
	return &OutfitReconciler{matcher: matcher, garments: garments, images: images}
}

// AutoSelect 对每条识别结果执行匹配，匹配成功的默认选中，未匹配的等待用户决定。
func (r *OutfitReconciler) AutoSelect(detections []DetectedGarment, closet []db.Garment) Selection {
	selection := Selection{
		Matches:  make([]MatchResult, 0, len(detections)),
		Selected: make(map[int]MatchResult),
	}
	for i, detection := range detections {
		match := r.matcher.Match(detection, closet)
		selection.Matches = append(selection.Matches, match)
		if match.Matched() {
			selection.Selected[i] = match
		}
	}
	return selection
}

// ResolveSelection 将用户的勾选转换为 Resolution，deselect 时返回 ok=false。
// 选择 existing 但没有匹配到衣物时按 new 处理。photo 原样透传。
func (r *OutfitReconciler) ResolveSelection(index int, choice SelectionChoice, match MatchResult, override GarmentOverride, photo PhotoSource) (Resolution, bool) {
	switch choice {
	case ChoiceDeselect:
		return Resolution{}, false
	case ChoiceExisting:
		if match.Matched() {
			return Resolution{Index: index, Kind: ResolutionExisting, GarmentID: match.Garment.ID}, true
		}
	}

	detection := match.Detection
	name := firstNonEmpty(sanitizeText(override.Name), sanitizeText(detection.Name))
	category := NormalizeCategory(firstNonEmpty(override.Category, detection.Category))
	if name == "" {
		name = "New " + category
	}

	return Resolution{
		Index:    index,
		Kind:     ResolutionNew,
		Name:     name,
		Category: category,
		Season:   NormalizeSeason(firstNonEmpty(override.Season, detection.Season)),
		Photo:    photo,
	}, true
}

// Materialize 为 new 条目上传照片并创建衣物，existing 条目直接透传 ID，最后追加手动挑选的衣物并按 ID 去重。
// 单条失败只记录不中断；仅在 ctx 被取消时返回错误，已创建的衣物保留。
func (r *OutfitReconciler) Materialize(ctx context.Context, userID uint, resolutions []Resolution, manual []db.Garment) (MaterializeResult, error) {
	result := MaterializeResult{Requested: len(resolutions) + len(manual)}
	seen := make(map[uint]struct{}, result.Requested)
	add := func(id uint) {
		if _, exists := seen[id]; exists {
			result.Duplicates++
			return
		}
		seen[id] = struct{}{}
		result.GarmentIDs = append(result.GarmentIDs, id)
	}
	fail := func(index int, name string, err error) {
		log.Printf("[reconcile] user=%d resolution=%d (%s) failed: %v", userID, index, name, err)
		result.Failures = append(result.Failures, MaterializeFailure{Index: index, Name: name, Err: err})
	}

	for _, resolution := range resolutions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		switch resolution.Kind {
		case ResolutionExisting:
			if resolution.GarmentID == 0 {
				fail(resolution.Index, resolution.Name, ErrResolutionInvalid)
				continue
			}
			add(resolution.GarmentID)
		case ResolutionNew:
			garment, err := r.createGarment(ctx, userID, resolution)
			if err != nil {
				fail(resolution.Index, resolution.Name, err)
				continue
			}
			result.Created = append(result.Created, *garment)
			add(garment.ID)
		default:
			fail(resolution.Index, resolution.Name, ErrResolutionInvalid)
		}
	}

	for _, garment := range manual {
		if garment.ID == 0 || garment.UserID != userID {
			fail(-1, garment.Name, ErrGarmentNotFound)
			continue
		}
		add(garment.ID)
	}

	return result, nil
}

func (r *OutfitReconciler) createGarment(ctx context.Context, userID uint, resolution Resolution) (*db.Garment, error) {
	if len(resolution.Photo.Data) == 0 {
		return nil, ErrGarmentPhotoMissing
	}
	if r.images == nil || r.garments == nil {
		return nil, errors.New("reconciler is not configured for writes")
	}

	key, err := r.images.Upload(ctx, resolution.Photo.Data, ImageFolderGarments, resolution.Photo.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload garment photo: %w", err)
	}

	garment := db.Garment{
		UserID:   userID,
		Name:     resolution.Name,
		PhotoURL: key,
		Quantity: 1,
		UseCount: 0,
		Category: resolution.Category,
		Season:   resolution.Season,
	}
	if err := r.garments.InsertGarment(ctx, &garment); err != nil {
		if delErr := r.images.Delete(ctx, key); delErr != nil {
			log.Printf("[reconcile] cleanup photo %s failed: %v", key, delErr)
		}
		return nil, fmt.Errorf("create garment: %w", err)
	}
	return &garment, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
