package handler

import (
	"net/http"

	"github.com/closetlog/internal/db"
	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
)

type garmentPayload struct {
	db.Garment
	PhotoSrc string `json:"photo_src"`
}

type garmentRequest struct {
	Name     *string `json:"name"`
	PhotoURL *string `json:"photo_url"`
	Category *string `json:"category"`
	Season   *string `json:"season"`
	Quantity *int    `json:"quantity"`
	UseCount *int    `json:"use_count"`
}

func (a *API) garmentToPayload(c *gin.Context, garment db.Garment) garmentPayload {
	return garmentPayload{Garment: garment, PhotoSrc: a.photoSrc(c.Request.Context(), garment.PhotoURL)}
}

func (a *API) garmentsToPayload(c *gin.Context, garments []db.Garment) []garmentPayload {
	payload := make([]garmentPayload, 0, len(garments))
	for _, garment := range garments {
		payload = append(payload, a.garmentToPayload(c, garment))
	}
	return payload
}

// ListGarments 返回衣橱列表，支持 category、season、sort_by、order 参数。
func (a *API) ListGarments(c *gin.Context) {
	garments, err := a.garments.List(c.Request.Context(), currentUserID(c), service.GarmentFilter{
		Category: c.Query("category"),
		Season:   c.Query("season"),
		SortBy:   c.Query("sort_by"),
		Order:    c.Query("order"),
	})
	if err != nil {
		respondServiceError(c, err, "获取衣物列表失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"garments": a.garmentsToPayload(c, garments)})
}

// GetGarment 返回单件衣物。
func (a *API) GetGarment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的衣物ID")
		return
	}

	garment, err := a.garments.Get(c.Request.Context(), currentUserID(c), id)
	if err != nil {
		respondServiceError(c, err, "获取衣物失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"garment": a.garmentToPayload(c, *garment)})
}

// CreateGarment 手动新增衣物。
func (a *API) CreateGarment(c *gin.Context) {
	var payload garmentRequest
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	input := service.GarmentInput{
		Name:     deref(payload.Name),
		PhotoURL: deref(payload.PhotoURL),
		Category: deref(payload.Category),
		Season:   deref(payload.Season),
	}
	if payload.Quantity != nil {
		if *payload.Quantity < 1 {
			respondServiceError(c, service.ErrGarmentQuantityInvalid, "新增衣物失败")
			return
		}
		input.Quantity = *payload.Quantity
	}

	garment, err := a.garments.Create(c.Request.Context(), currentUserID(c), input)
	if err != nil {
		respondServiceError(c, err, "新增衣物失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"garment": a.garmentToPayload(c, *garment)})
}

// UpdateGarment 部分更新衣物，未提交的字段保持不变。
func (a *API) UpdateGarment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的衣物ID")
		return
	}

	var payload garmentRequest
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	garment, err := a.garments.Update(c.Request.Context(), currentUserID(c), id, service.GarmentPatch{
		Name:     payload.Name,
		PhotoURL: payload.PhotoURL,
		Category: payload.Category,
		Season:   payload.Season,
		Quantity: payload.Quantity,
		UseCount: payload.UseCount,
	})
	if err != nil {
		respondServiceError(c, err, "更新衣物失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"garment": a.garmentToPayload(c, *garment)})
}

// DeleteGarment 删除衣物。
func (a *API) DeleteGarment(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的衣物ID")
		return
	}

	if err := a.garments.Delete(c.Request.Context(), currentUserID(c), id); err != nil {
		respondServiceError(c, err, "删除衣物失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
