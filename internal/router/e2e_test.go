package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"testing"
	"time"

	"github.com/closetlog/internal/db"
	"github.com/closetlog/internal/handler"
	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const e2eBaseURL = "http://closet.test"

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) *http.Response {
	for _, cookie := range c.jar.Cookies(req.URL) {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	c.jar.SetCookies(req.URL, resp.Cookies())
	return resp
}

type e2eSuite struct {
	client *localClient
	gdb    *gorm.DB
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	uploadDir := t.TempDir()
	api := handler.NewAPI(gdb, service.NewLocalImageStore(uploadDir, "/uploads"), handler.Options{})
	engine := SetupRouter(api, "test-session-secret", uploadDir, "/uploads")
	return &e2eSuite{client: newLocalClient(engine), gdb: gdb}
}

func TestE2E_WardrobeFlow(t *testing.T) {
	s := newE2ESuite(t)

	resp := s.mustRequestJSON(t, http.MethodPost, "/api/auth/signup", map[string]interface{}{"username": "gina", "password": "e2e-secret"})
	expectStatus(t, resp, http.StatusCreated)

	// 上传衣物照片并通过静态路由访问
	var upload struct {
		Key string `json:"key"`
		URL string `json:"url"`
	}
	resp = s.uploadTestImage(t, service.ImageFolderGarments)
	expectStatus(t, resp, http.StatusCreated)
	decodeJSON(t, resp, &upload)
	if upload.URL != "/uploads/"+upload.Key {
		t.Fatalf("unexpected upload url %q for key %q", upload.URL, upload.Key)
	}
	resp = s.mustRequest(t, http.MethodGet, upload.URL, nil, nil)
	expectStatus(t, resp, http.StatusOK)

	var garment struct {
		Garment struct {
			ID       uint   `json:"id"`
			PhotoSrc string `json:"photo_src"`
		} `json:"garment"`
	}
	resp = s.mustRequestJSON(t, http.MethodPost, "/api/garments", map[string]interface{}{
		"name":      "Linen Shirt",
		"photo_url": upload.Key,
		"category":  "tops",
		"season":    "summer",
	})
	expectStatus(t, resp, http.StatusCreated)
	decodeJSON(t, resp, &garment)
	if garment.Garment.PhotoSrc != upload.URL {
		t.Fatalf("expected photo_src %q, got %q", upload.URL, garment.Garment.PhotoSrc)
	}

	var outfitUpload struct {
		Key string `json:"key"`
	}
	resp = s.uploadTestImage(t, service.ImageFolderOutfits)
	expectStatus(t, resp, http.StatusCreated)
	decodeJSON(t, resp, &outfitUpload)

	for _, day := range []string{"2024-06-01", "2024-06-02"} {
		resp = s.mustRequestJSON(t, http.MethodPost, "/api/outfits", map[string]interface{}{
			"photo_url":   outfitUpload.Key,
			"worn_date":   day,
			"garment_ids": []uint{garment.Garment.ID},
		})
		expectStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	var month struct {
		Outfits []map[string]interface{} `json:"outfits"`
	}
	resp = s.mustRequest(t, http.MethodGet, "/api/outfits?month=2024-06", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &month)
	if len(month.Outfits) != 2 {
		t.Fatalf("expected 2 outfits in June, got %d", len(month.Outfits))
	}

	var analytics struct {
		Stats struct {
			TotalGarments      int `json:"total_garments"`
			TotalOutfits       int `json:"total_outfits"`
			UtilizationPercent int `json:"utilization_percent"`
		} `json:"stats"`
		MostWorn []struct {
			ID       uint `json:"id"`
			UseCount int  `json:"use_count"`
		} `json:"most_worn"`
	}
	resp = s.mustRequest(t, http.MethodGet, "/api/analytics", nil, nil)
	expectStatus(t, resp, http.StatusOK)
	decodeJSON(t, resp, &analytics)
	if analytics.Stats.TotalOutfits != 2 || analytics.Stats.UtilizationPercent != 100 {
		t.Fatalf("unexpected stats %+v", analytics.Stats)
	}
	if len(analytics.MostWorn) != 1 || analytics.MostWorn[0].UseCount != 2 {
		t.Fatalf("unexpected most worn %+v", analytics.MostWorn)
	}

	// 未配置识图 Key 时识图接口失败，但不影响手动记录
	resp = s.mustRequestJSON(t, http.MethodPost, "/api/outfits/analyze", map[string]interface{}{"image_url": e2eBaseURL + upload.URL})
	expectStatus(t, resp, http.StatusBadGateway)

	resp = s.mustRequest(t, http.MethodDelete, "/api/garments/"+idStr(garment.Garment.ID), nil, nil)
	expectStatus(t, resp, http.StatusOK)
	resp = s.mustRequest(t, http.MethodGet, upload.URL, nil, nil)
	expectStatus(t, resp, http.StatusNotFound)
}

func (s *e2eSuite) uploadTestImage(t *testing.T, folder string) *http.Response {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, "image", "test.png"))
	partHeader.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(buf.Bytes()); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	if err := writer.WriteField("folder", folder); err != nil {
		t.Fatalf("failed to write folder field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	headers := map[string]string{"Content-Type": writer.FormDataContentType()}
	return s.mustRequest(t, http.MethodPost, "/api/uploads", body, headers)
}

func (s *e2eSuite) mustRequest(t *testing.T, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e2eBaseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return s.client.Do(req)
}

func (s *e2eSuite) mustRequestJSON(t *testing.T, method, path string, payload map[string]interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	return s.mustRequest(t, method, path, bytes.NewReader(data), headers)
}

func expectStatus(t *testing.T, resp *http.Response, status int) {
	t.Helper()
	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", status, resp.StatusCode, body)
	}
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		t.Fatalf("failed to decode json: %v\nbody=%s", err, data)
	}
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
