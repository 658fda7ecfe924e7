package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/closetlog/internal/db"
	"github.com/closetlog/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubDetector struct {
	content string
	err     error
	calls   int
}

func (d *stubDetector) Detect(ctx context.Context, image service.VisionImage) (string, error) {
	d.calls++
	return d.content, d.err
}

type testEnv struct {
	db       *gorm.DB
	store    *db.WardrobeStore
	api      *API
	router   *gin.Engine
	detector *stubDetector
	userID   uint
}

func setupHandlerTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(dsn, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	user, err := db.CreateUser(gdb, "tester", "password")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	detector := &stubDetector{}
	api := NewAPI(gdb, service.NewLocalImageStore(t.TempDir(), "/static/uploads"), Options{
		VisionDefaults: service.VisionSettings{Provider: service.VisionProviderGemini, GeminiAPIKey: "test-key"},
		DetectorFactory: func(ctx context.Context, settings service.VisionSettings) (service.GarmentDetector, error) {
			return detector, nil
		},
	})

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(contextUserIDKey, user.ID)
		c.Next()
	})
	r.POST("/outfits/analyze", api.AnalyzeOutfit)
	r.POST("/outfits/reconcile", api.ReconcileOutfit)
	r.GET("/garments", api.ListGarments)
	r.POST("/garments", api.CreateGarment)
	r.GET("/analytics", api.GetAnalytics)
	r.GET("/preferences", api.GetPreferences)
	r.PUT("/preferences", api.UpdatePreferences)
	r.GET("/donations", api.ListDonations)
	r.POST("/donations", api.SaveDonation)
	r.DELETE("/donations/:garment_id", api.RemoveDonation)
	r.PATCH("/donations/:garment_id/donated", api.MarkDonated)
	r.GET("/settings/vision", api.GetVisionSettings)
	r.PUT("/settings/vision", api.UpdateVisionSettings)

	return &testEnv{db: gdb, store: db.NewWardrobeStore(gdb), api: api, router: r, detector: detector, userID: user.ID}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var raw []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		raw = encoded
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	var decoded map[string]interface{}
	if rr.Body.Len() > 0 {
		if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
		}
	}
	return rr, decoded
}

func (e *testEnv) seedGarment(t *testing.T, userID uint, name, category string) *db.Garment {
	t.Helper()
	garment := &db.Garment{
		UserID:   userID,
		Name:     name,
		PhotoURL: "garments/seed.jpg",
		Quantity: 1,
		Category: category,
		Season:   db.SeasonAll,
	}
	if err := e.store.InsertGarment(context.Background(), garment); err != nil {
		t.Fatalf("failed to seed garment: %v", err)
	}
	return garment
}

func (e *testEnv) useCount(t *testing.T, garmentID uint) int {
	t.Helper()
	var garment db.Garment
	if err := e.db.First(&garment, garmentID).Error; err != nil {
		t.Fatalf("failed to load garment %d: %v", garmentID, err)
	}
	return garment.UseCount
}

func encodedTestPNG(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}
