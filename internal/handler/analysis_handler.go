package handler

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/closetlog/internal/db"
	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
)

type analyzeRequest struct {
	ImageBase64 string `json:"image_base64"`
	ImageURL    string `json:"image_url"`
}

type detectionPayload struct {
	Index          int                     `json:"index"`
	Detection      service.DetectedGarment `json:"detection"`
	MatchedGarment *garmentPayload         `json:"matched_garment"`
	Confidence     int                     `json:"confidence"`
	Selected       bool                    `json:"selected"`
}

type selectionRequest struct {
	Index    int               `json:"index"`
	Choice   string            `json:"choice"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Season   string            `json:"season"`
	Crop     *service.CropRect `json:"crop"`
}

type reconcileRequest struct {
	PhotoBase64      string                    `json:"photo_base64"`
	WornDate         string                    `json:"worn_date"`
	Detections       []service.DetectedGarment `json:"detections"`
	Selections       []selectionRequest        `json:"selections"`
	ManualGarmentIDs []uint                    `json:"manual_garment_ids"`
}

type materializeFailurePayload struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// AnalyzeOutfit 识别照片中的衣物并与衣橱匹配，不写入任何数据。
func (a *API) AnalyzeOutfit(c *gin.Context) {
	var payload analyzeRequest
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	image := service.VisionImage{URL: strings.TrimSpace(payload.ImageURL)}
	if strings.TrimSpace(payload.ImageBase64) != "" {
		data, err := service.DecodeImagePayload(payload.ImageBase64)
		if err != nil {
			respondServiceError(c, err, "图片解析失败")
			return
		}
		image.Data = data
	}

	analysis, err := a.analyzer.Analyze(c.Request.Context(), currentUserID(c), image)
	if err != nil {
		respondServiceError(c, err, "照片识别失败，请重试或手动选择衣物")
		return
	}

	detections := make([]detectionPayload, 0, len(analysis.Detections))
	for i, match := range analysis.Selection.Matches {
		item := detectionPayload{Index: i, Detection: match.Detection, Confidence: match.Confidence}
		if match.Matched() {
			garment := a.garmentToPayload(c, *match.Garment)
			item.MatchedGarment = &garment
		}
		_, item.Selected = analysis.Selection.Selected[i]
		detections = append(detections, item)
	}

	c.JSON(http.StatusOK, gin.H{
		"detections":    detections,
		"provider":      analysis.Provider,
		"manual_needed": len(detections) == 0,
	})
}

// ReconcileOutfit 根据用户在确认页的选择落地衣物并创建穿搭。
// 匹配在服务端针对当前用户的衣橱重新执行，客户端提交的识别结果只作为描述使用。
func (a *API) ReconcileOutfit(c *gin.Context) {
	var payload reconcileRequest
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}
	ctx := c.Request.Context()
	userID := currentUserID(c)

	wornDate, err := service.ParseWornDate(payload.WornDate)
	if err != nil {
		respondServiceError(c, err, "日期格式无效")
		return
	}
	if strings.TrimSpace(payload.PhotoBase64) == "" {
		respondServiceError(c, service.ErrOutfitPhotoMissing, "请上传穿搭照片")
		return
	}
	photo, err := service.DecodeImagePayload(payload.PhotoBase64)
	if err != nil {
		respondServiceError(c, err, "图片解析失败")
		return
	}
	photoType, ok := service.DetectImageMIME(photo)
	if !ok {
		respondServiceError(c, service.ErrImageNotDecodable, "图片解析失败")
		return
	}

	detections := make([]service.DetectedGarment, 0, len(payload.Detections))
	for _, detection := range payload.Detections {
		detections = append(detections, service.NormalizeDetection(detection))
	}
	closet, err := a.store.FindGarmentsByUser(ctx, userID, db.GarmentQuery{SortBy: "use_count", Desc: true})
	if err != nil {
		respondServiceError(c, err, "获取衣橱失败")
		return
	}
	selection := a.reconciler.AutoSelect(detections, closet)

	choices := make(map[int]selectionRequest, len(payload.Selections))
	for _, entry := range payload.Selections {
		if entry.Index < 0 || entry.Index >= len(detections) {
			respondError(c, http.StatusBadRequest, "选择项与识别结果不匹配")
			return
		}
		choices[entry.Index] = entry
	}

	fullPhoto := service.PhotoSource{Data: photo, ContentType: photoType}
	resolutions := make([]service.Resolution, 0, len(detections))
	for i, match := range selection.Matches {
		entry, explicit := choices[i]
		choice := service.ChoiceDeselect
		switch {
		case explicit:
			choice = service.SelectionChoice(strings.ToLower(strings.TrimSpace(entry.Choice)))
		case match.Matched():
			choice = service.ChoiceExisting
		}
		if choice != service.ChoiceExisting && choice != service.ChoiceNew && choice != service.ChoiceDeselect {
			respondError(c, http.StatusBadRequest, "无效的选择类型")
			return
		}

		source := fullPhoto
		createsGarment := choice == service.ChoiceNew || (choice == service.ChoiceExisting && !match.Matched())
		if entry.Crop != nil && createsGarment {
			cropped, contentType, err := service.CropImage(photo, *entry.Crop)
			if err != nil {
				respondServiceError(c, err, "裁剪图片失败")
				return
			}
			source = service.PhotoSource{Data: cropped, ContentType: contentType}
		}

		override := service.GarmentOverride{Name: entry.Name, Category: entry.Category, Season: entry.Season}
		if resolution, ok := a.reconciler.ResolveSelection(i, choice, match, override, source); ok {
			resolutions = append(resolutions, resolution)
		}
	}

	manual, err := a.store.FindGarmentsByIDs(ctx, userID, payload.ManualGarmentIDs)
	if err != nil {
		respondServiceError(c, err, "获取衣物失败")
		return
	}
	unknownManual := len(uniqueUint(payload.ManualGarmentIDs)) - len(manual)

	photoKey, err := a.images.Upload(ctx, photo, service.ImageFolderOutfits, photoType)
	if err != nil {
		respondServiceError(c, err, "上传穿搭照片失败")
		return
	}

	materialized, err := a.reconciler.Materialize(ctx, userID, resolutions, manual)
	if err != nil {
		a.discardImage(c, photoKey)
		respondServiceError(c, err, "保存衣物失败")
		return
	}

	creation, err := a.outfits.CreateOutfit(ctx, userID, service.OutfitInput{
		PhotoURL:   photoKey,
		WornDate:   wornDate,
		GarmentIDs: materialized.GarmentIDs,
	})
	if err != nil {
		a.discardImage(c, photoKey)
		respondServiceError(c, err, "创建穿搭失败")
		return
	}

	// requested 不含重复项：requested = resolved + len(failures) + unknown_manual
	failures := make([]materializeFailurePayload, 0, len(materialized.Failures))
	for _, failure := range materialized.Failures {
		failures = append(failures, materializeFailurePayload{Index: failure.Index, Name: failure.Name, Error: failure.Err.Error()})
	}
	a.respondOutfitCreated(c, creation, gin.H{
		"reconcile": gin.H{
			"requested":        materialized.Requested - materialized.Duplicates + unknownManual,
			"resolved":         len(materialized.GarmentIDs),
			"created_garments": a.garmentsToPayload(c, materialized.Created),
			"duplicates":       materialized.Duplicates,
			"unknown_manual":   unknownManual,
			"failures":         failures,
		},
	})
}

// discardImage 删除已上传但未被引用的照片，失败只记录日志。
func (a *API) discardImage(c *gin.Context, key string) {
	if err := a.images.Delete(context.WithoutCancel(c.Request.Context()), key); err != nil {
		log.Printf("[http] discard image %s: %v", key, err)
	}
}

func uniqueUint(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	result := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result
}
