package handler

import (
	"net/http"
	"time"

	"github.com/closetlog/internal/db"
	"github.com/gin-gonic/gin"
)

type donationPayload struct {
	GarmentID uint           `json:"garment_id"`
	SavedAt   time.Time      `json:"saved_at"`
	DonatedAt *time.Time     `json:"donated_at"`
	Garment   garmentPayload `json:"garment"`
}

type donationRequest struct {
	GarmentID uint `json:"garment_id"`
}

func (a *API) donationToPayload(c *gin.Context, donation db.SavedDonation) donationPayload {
	return donationPayload{
		GarmentID: donation.GarmentID,
		SavedAt:   donation.SavedAt,
		DonatedAt: donation.DonatedAt,
		Garment:   a.garmentToPayload(c, donation.Garment),
	}
}

// ListDonations 返回待捐赠列表。
func (a *API) ListDonations(c *gin.Context) {
	donations, err := a.donations.ListPending(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondServiceError(c, err, "获取捐赠列表失败")
		return
	}

	payload := make([]donationPayload, 0, len(donations))
	for _, donation := range donations {
		payload = append(payload, a.donationToPayload(c, donation))
	}
	c.JSON(http.StatusOK, gin.H{"donations": payload})
}

// SaveDonation 把衣物加入待捐赠列表，重复加入返回 409。
func (a *API) SaveDonation(c *gin.Context) {
	var payload donationRequest
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	donation, err := a.donations.Save(c.Request.Context(), currentUserID(c), payload.GarmentID)
	if err != nil {
		respondServiceError(c, err, "保存捐赠记录失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"donation": a.donationToPayload(c, *donation)})
}

// RemoveDonation 从待捐赠列表移除衣物。
func (a *API) RemoveDonation(c *gin.Context) {
	garmentID, err := parseUintParam(c, "garment_id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的衣物ID")
		return
	}

	if err := a.donations.Remove(c.Request.Context(), currentUserID(c), garmentID); err != nil {
		respondServiceError(c, err, "移除捐赠记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已移出捐赠列表"})
}

// MarkDonated 标记衣物已捐出。
func (a *API) MarkDonated(c *gin.Context) {
	garmentID, err := parseUintParam(c, "garment_id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的衣物ID")
		return
	}

	donation, err := a.donations.MarkDonated(c.Request.Context(), currentUserID(c), garmentID)
	if err != nil {
		respondServiceError(c, err, "更新捐赠记录失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"donation": a.donationToPayload(c, *donation)})
}
