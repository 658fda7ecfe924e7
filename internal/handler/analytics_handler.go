package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/closetlog/internal/db"
	"github.com/gin-gonic/gin"
)

// GetAnalytics 返回衣橱统计，threshold_months 覆盖用户偏好中的捐赠阈值。
func (a *API) GetAnalytics(c *gin.Context) {
	threshold := 0
	if raw := strings.TrimSpace(c.Query("threshold_months")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respondError(c, http.StatusBadRequest, "捐赠阈值至少为 1 个月")
			return
		}
		threshold = parsed
	}

	overview, err := a.analytics.Overview(c.Request.Context(), currentUserID(c), threshold)
	if err != nil {
		respondServiceError(c, err, "获取统计数据失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":                overview.Stats,
		"most_worn":            a.garmentsToPayload(c, overview.MostWorn),
		"least_worn":           a.garmentsToPayload(c, overview.LeastWorn),
		"donation_suggestions": a.garmentsToPayload(c, overview.DonationSuggestions),
		"threshold_months":     overview.ThresholdMonths,
	})
}

type preferenceRequest struct {
	DonationThresholdMonths int `json:"donation_threshold_months"`
}

// GetPreferences 返回当前用户偏好，未保存时返回默认值。
func (a *API) GetPreferences(c *gin.Context) {
	pref, err := a.preferences.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondServiceError(c, err, "获取偏好设置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": preferencePayload(pref)})
}

// UpdatePreferences 保存捐赠阈值。
func (a *API) UpdatePreferences(c *gin.Context) {
	var payload preferenceRequest
	if !bindJSON(c, &payload, "请求格式错误") {
		return
	}

	pref, err := a.preferences.UpdateDonationThreshold(c.Request.Context(), currentUserID(c), payload.DonationThresholdMonths)
	if err != nil {
		respondServiceError(c, err, "保存偏好设置失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "偏好设置已保存",
		"preferences": preferencePayload(pref),
	})
}

func preferencePayload(pref db.Preference) gin.H {
	return gin.H{"donation_threshold_months": pref.DonationThresholdMonths}
}
