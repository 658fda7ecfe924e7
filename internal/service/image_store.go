package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// 图片存储目录，对应衣物照片与穿搭照片。
const (
	ImageFolderGarments = "garments"
	ImageFolderOutfits  = "outfits"
)

const maxImageBytes = 15 << 20

// maxImagePixels 限制解码后的像素数，约合 8000x5000。
const maxImagePixels = 40_000_000

var (
	// ErrImageEmpty 表示上传内容为空。
	ErrImageEmpty = errors.New("image data is empty")
	// ErrImageTooLarge 表示图片超过大小上限。
	ErrImageTooLarge = errors.New("image exceeds size limit")
	// ErrImageFolderInvalid 表示目录不在允许的范围内。
	ErrImageFolderInvalid = errors.New("image folder is invalid")
	// ErrImageKeyInvalid 表示存储键不合法。
	ErrImageKeyInvalid = errors.New("image key is invalid")
	// ErrImageNotDecodable 表示数据不是可识别的图片格式。
	ErrImageNotDecodable = errors.New("image could not be decoded")
	// ErrCropInvalid 表示裁剪区域与图片没有交集。
	ErrCropInvalid = errors.New("crop rectangle is outside the image")
)

// ImageStore 负责照片的上传、访问地址与删除，返回的 key 存入 photo_url 字段。
type ImageStore interface {
	Upload(ctx context.Context, data []byte, folder, contentType string) (string, error)
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// LocalImageStore 将照片保存在本地上传目录，通过静态文件路由对外提供。
type LocalImageStore struct {
	root      string
	urlPrefix string
	now       func() time.Time
}

// NewLocalImageStore 构造本地存储，root 为磁盘目录，urlPrefix 为对外访问前缀。
func NewLocalImageStore(root, urlPrefix string) *LocalImageStore {
	prefix := strings.TrimRight(strings.TrimSpace(urlPrefix), "/")
	if prefix == "" {
		prefix = "/static/uploads"
	}
	return &LocalImageStore{root: root, urlPrefix: prefix, now: time.Now}
}

// Upload 以 <folder>/<日期>-<uuid><扩展名> 的形式写入文件。
func (s *LocalImageStore) Upload(ctx context.Context, data []byte, folder, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	key, err := newImageKey(folder, contentType, data, s.now())
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return key, nil
}

// URL 返回可访问地址；已是完整 URL 的 key 原样返回。
func (s *LocalImageStore) URL(_ context.Context, key string) (string, error) {
	if isRemoteImage(key) {
		return key, nil
	}
	if err := validateImageKey(key); err != nil {
		return "", err
	}
	return s.urlPrefix + "/" + key, nil
}

// Delete 删除本地文件，文件不存在视为成功。
func (s *LocalImageStore) Delete(_ context.Context, key string) error {
	if isRemoteImage(key) || strings.TrimSpace(key) == "" {
		return nil
	}
	if err := validateImageKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func newImageKey(folder, contentType string, data []byte, now time.Time) (string, error) {
	if folder != ImageFolderGarments && folder != ImageFolderOutfits {
		return "", ErrImageFolderInvalid
	}
	if len(data) == 0 {
		return "", ErrImageEmpty
	}
	if len(data) > maxImageBytes {
		return "", ErrImageTooLarge
	}

	mimeType := strings.TrimSpace(contentType)
	if mimeType == "" {
		detected, ok := DetectImageMIME(data)
		if !ok {
			return "", ErrImageNotDecodable
		}
		mimeType = detected
	}

	name := fmt.Sprintf("%s-%s%s", now.Format("20060102"), uuid.New().String(), imageExtension(mimeType))
	return path.Join(folder, name), nil
}

func validateImageKey(key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" || strings.HasPrefix(trimmed, "/") || strings.Contains(trimmed, "..") {
		return ErrImageKeyInvalid
	}
	return nil
}

func isRemoteImage(key string) bool {
	return strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://")
}

func imageExtension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// DetectImageMIME 通过文件头判断图片类型，非图片返回 false。
func DetectImageMIME(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", false
	}
	return mimeType, true
}

// DecodeImagePayload 解析 base64 图片，兼容 data URL 前缀。
func DecodeImagePayload(raw string) ([]byte, error) {
	payload := strings.TrimSpace(raw)
	if idx := strings.Index(payload, ";base64,"); strings.HasPrefix(payload, "data:") && idx >= 0 {
		payload = payload[idx+len(";base64,"):]
	}
	if payload == "" {
		return nil, ErrImageEmpty
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrImageNotDecodable, err)
		}
	}
	if len(data) > maxImageBytes {
		return nil, ErrImageTooLarge
	}
	return data, nil
}

// CropRect 描述用户在原图上框选的区域，单位为像素。
type CropRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropImage 裁剪图片并重新编码为 JPEG，裁剪框超出部分会被截掉。
// 解码前先读取尺寸，像素数超过 maxImagePixels 的图片直接拒绝。
func CropImage(data []byte, rect CropRect) ([]byte, string, error) {
	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageNotDecodable, err)
	}
	if header.Width <= 0 || header.Height <= 0 || int64(header.Width)*int64(header.Height) > maxImagePixels {
		return nil, "", ErrImageTooLarge
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrImageNotDecodable, err)
	}

	bounds := src.Bounds()
	area := image.Rect(
		bounds.Min.X+rect.X,
		bounds.Min.Y+rect.Y,
		bounds.Min.X+rect.X+rect.Width,
		bounds.Min.Y+rect.Y+rect.Height,
	).Intersect(bounds)
	if rect.Width <= 0 || rect.Height <= 0 || area.Empty() {
		return nil, "", ErrCropInvalid
	}

	dst := image.NewRGBA(image.Rect(0, 0, area.Dx(), area.Dy()))
	xdraw.Copy(dst, image.Point{}, src, area, xdraw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, "", fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
