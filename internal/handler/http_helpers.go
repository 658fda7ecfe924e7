package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
)

const contextUserIDKey = "user_id"

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// currentUserID 返回 AuthRequired 写入的当前用户。
func currentUserID(c *gin.Context) uint {
	return c.GetUint(contextUserIDKey)
}

// serviceErrorMessages 将业务层哨兵错误映射为状态码与提示文案。
var serviceErrorMessages = []struct {
	err     error
	status  int
	message string
}{
	{service.ErrGarmentNameMissing, http.StatusBadRequest, "请填写衣物名称"},
	{service.ErrGarmentPhotoMissing, http.StatusBadRequest, "请上传衣物照片"},
	{service.ErrGarmentCategoryInvalid, http.StatusBadRequest, "衣物分类无效"},
	{service.ErrGarmentSeasonInvalid, http.StatusBadRequest, "适用季节无效"},
	{service.ErrGarmentQuantityInvalid, http.StatusBadRequest, "数量至少为 1"},
	{service.ErrGarmentUseCountInvalid, http.StatusBadRequest, "使用次数不能为负数"},
	{service.ErrOutfitPhotoMissing, http.StatusBadRequest, "请上传穿搭照片"},
	{service.ErrOutfitDateMissing, http.StatusBadRequest, "请选择穿着日期"},
	{service.ErrOutfitDateInvalid, http.StatusBadRequest, "日期格式无效"},
	{service.ErrPreferenceThresholdInvalid, http.StatusBadRequest, "捐赠阈值至少为 1 个月"},
	{service.ErrVisionImageMissing, http.StatusBadRequest, "请提供照片或照片地址"},
	{service.ErrImageURLForbidden, http.StatusBadRequest, "照片地址不可访问"},
	{service.ErrDonationGarmentMissing, http.StatusBadRequest, "请选择衣物"},
	{service.ErrVisionProviderInvalid, http.StatusBadRequest, "不支持的识图平台"},
	{service.ErrImageEmpty, http.StatusBadRequest, "图片内容为空"},
	{service.ErrImageTooLarge, http.StatusBadRequest, "图片过大"},
	{service.ErrImageNotDecodable, http.StatusBadRequest, "无法识别的图片格式"},
	{service.ErrImageFolderInvalid, http.StatusBadRequest, "图片目录无效"},
	{service.ErrCropInvalid, http.StatusBadRequest, "裁剪区域无效"},
	{service.ErrGarmentNotFound, http.StatusNotFound, "衣物不存在"},
	{service.ErrOutfitNotFound, http.StatusNotFound, "穿搭不存在"},
	{service.ErrDonationNotFound, http.StatusNotFound, "捐赠记录不存在"},
	{service.ErrDonationAlreadySaved, http.StatusConflict, "该衣物已在捐赠列表中"},
	{service.ErrAIAPIKeyMissing, http.StatusBadGateway, "尚未配置识图服务的 API Key"},
	{service.ErrVisionUnavailable, http.StatusBadGateway, "照片识别失败，请重试或手动选择衣物"},
	{service.ErrVisionResponseInvalid, http.StatusBadGateway, "照片识别失败，请重试或手动选择衣物"},
}

// respondServiceError 按错误类型返回响应，未知错误记录日志并返回 fallback。
func respondServiceError(c *gin.Context, err error, fallback string) {
	for _, mapping := range serviceErrorMessages {
		if errors.Is(err, mapping.err) {
			if mapping.status >= http.StatusInternalServerError {
				log.Printf("[http] %s %s: %v", c.Request.Method, c.FullPath(), err)
			}
			respondError(c, mapping.status, mapping.message)
			return
		}
	}
	log.Printf("[http] %s %s: %v", c.Request.Method, c.FullPath(), err)
	respondError(c, http.StatusInternalServerError, fallback)
}
