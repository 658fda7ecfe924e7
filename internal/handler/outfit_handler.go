package handler

import (
	"net/http"
	"time"

	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
)

const dateFormat = "2006-01-02"

type outfitPayload struct {
	ID        uint             `json:"id"`
	PhotoURL  string           `json:"photo_url"`
	PhotoSrc  string           `json:"photo_src"`
	WornDate  string           `json:"worn_date"`
	CreatedAt time.Time        `json:"created_at"`
	Garments  []garmentPayload `json:"garments"`
}

type outfitRequest struct {
	PhotoURL   string `json:"photo_url"`
	WornDate   string `json:"worn_date"`
	GarmentIDs []uint `json:"garment_ids"`
}

type garmentFailurePayload struct {
	GarmentID uint   `json:"garment_id"`
	Error     string `json:"error"`
}

func (a *API) outfitToPayload(c *gin.Context, detail service.OutfitDetail) outfitPayload {
	return outfitPayload{
		ID:        detail.Outfit.ID,
		PhotoURL:  detail.Outfit.PhotoURL,
		PhotoSrc:  a.photoSrc(c.Request.Context(), detail.Outfit.PhotoURL),
		WornDate:  detail.Outfit.WornDate.Format(dateFormat),
		CreatedAt: detail.Outfit.CreatedAt,
		Garments:  a.garmentsToPayload(c, detail.Garments),
	}
}

func creationToPayload(creation *service.OutfitCreation) gin.H {
	return gin.H{
		"requested":      creation.Requested,
		"linked":         len(creation.LinkedGarmentIDs),
		"counted":        len(creation.CountedGarmentIDs),
		"partial":        creation.Partial(),
		"link_failures":  failuresToPayload(creation.LinkFailures),
		"count_failures": failuresToPayload(creation.CountFailures),
	}
}

func failuresToPayload(failures []service.GarmentFailure) []garmentFailurePayload {
	payload := make([]garmentFailurePayload, 0, len(failures))
	for _, failure := range failures {
		payload = append(payload, garmentFailurePayload{GarmentID: failure.GarmentID, Error: failure.Err.Error()})
	}
	return payload
}

// ListOutfits 返回穿搭列表，支持 date=YYYY-MM-DD 或 month=YYYY-MM。
func (a *API) ListOutfits(c *gin.Context) {
	details, err := a.outfits.ListOutfits(c.Request.Context(), currentUserID(c), service.OutfitFilter{
		Date:  c.Query("date"),
		Month: c.Query("month"),
	})
	if err != nil {
		respondServiceError(c, err, "获取穿搭列表失败")
		return
	}

	payload := make([]outfitPayload, 0, len(details))
	for _, detail := range details {
		payload = append(payload, a.outfitToPayload(c, detail))
	}
	c.JSON(http.StatusOK, gin.H{"outfits": payload})
}

// GetOutfit 返回穿搭详情。
func (a *API) GetOutfit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的穿搭ID")
		return
	}

	detail, err := a.outfits.GetOutfit(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "获取穿搭失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"outfit": a.outfitToPayload(c, *detail)})
}

// CreateOutfit 以已上传的照片和衣物 ID 列表创建穿搭。
func (a *API) CreateOutfit(c *gin.Context) {
	var payload outfitRequest
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	wornDate, err := service.ParseWornDate(payload.WornDate)
	if err != nil {
		respondServiceError(c, err, "日期格式无效")
		return
	}

	creation, err := a.outfits.CreateOutfit(c.Request.Context(), currentUserID(c), service.OutfitInput{
		PhotoURL:   payload.PhotoURL,
		WornDate:   wornDate,
		GarmentIDs: payload.GarmentIDs,
	})
	if err != nil {
		respondServiceError(c, err, "创建穿搭失败")
		return
	}
	a.respondOutfitCreated(c, creation, nil)
}

// DeleteOutfit 删除穿搭并回退衣物使用次数。
func (a *API) DeleteOutfit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的穿搭ID")
		return
	}

	if err := a.outfits.DeleteOutfit(c.Request.Context(), currentUserID(c), id); err != nil {
		respondServiceError(c, err, "删除穿搭失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RecountUseCounts 按关联表修正当前用户全部衣物的使用次数。
func (a *API) RecountUseCounts(c *gin.Context) {
	fixed, err := a.outfits.RecountUseCounts(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondServiceError(c, err, "重算使用次数失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"fixed": fixed})
}

func (a *API) respondOutfitCreated(c *gin.Context, creation *service.OutfitCreation, extra gin.H) {
	detail, err := a.outfits.GetOutfit(c.Request.Context(), currentUserID(c), creation.Outfit.ID)
	if err != nil {
		respondServiceError(c, err, "获取穿搭失败")
		return
	}

	body := gin.H{
		"outfit": a.outfitToPayload(c, *detail),
		"result": creationToPayload(creation),
	}
	for key, value := range extra {
		body[key] = value
	}
	c.JSON(http.StatusCreated, body)
}
