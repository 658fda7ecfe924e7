package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 15 << 20

// UploadImage 处理图片上传请求，folder 取 garments 或 outfits。
// 返回的 key 可直接作为 photo_url 提交。
func (a *API) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "未找到上传的图片")
		return
	}
	if file.Size > maxUploadBytes {
		respondServiceError(c, service.ErrImageTooLarge, "图片过大")
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取上传文件失败")
		return
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes+1))
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取上传文件失败")
		return
	}

	// 以内容嗅探为准，不信任客户端声明的类型
	contentType, ok := service.DetectImageMIME(data)
	if !ok {
		respondError(c, http.StatusBadRequest, "只允许上传图片文件")
		return
	}

	folder := strings.TrimSpace(c.DefaultPostForm("folder", service.ImageFolderGarments))
	key, err := a.images.Upload(c.Request.Context(), data, folder, contentType)
	if err != nil {
		respondServiceError(c, err, "保存文件失败")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "上传成功",
		"key":     key,
		"url":     a.photoSrc(c.Request.Context(), key),
	})
}
