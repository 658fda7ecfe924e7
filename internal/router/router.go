package router

import (
	"net/http"
	"strings"

	"github.com/closetlog/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

const sessionName = "closetlog_session"

// SetupRouter 配置 Gin 引擎和路由。
// uploadDir 非空时通过 uploadURLPath 对外提供本地图片，使用 S3 时传空即可。
func SetupRouter(api *handler.API, sessionSecret, uploadDir, uploadURLPath string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   30 * 24 * 60 * 60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(sessionName, store))

	if strings.TrimSpace(uploadDir) != "" {
		urlPath := strings.TrimRight(strings.TrimSpace(uploadURLPath), "/")
		if urlPath == "" {
			urlPath = "/static/uploads"
		}
		r.Static(urlPath, uploadDir)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/healthz", api.HealthCheck)

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/auth/signup", api.Signup)
		apiGroup.POST("/auth/login", api.Login)
		apiGroup.POST("/auth/logout", api.Logout)

		// 需要登录的接口
		auth := apiGroup.Group("")
		auth.Use(handler.AuthRequired())
		{
			auth.GET("/auth/me", api.CurrentUser)

			auth.GET("/garments", api.ListGarments)
			auth.GET("/garments/:id", api.GetGarment)
			auth.POST("/garments", api.CreateGarment)
			auth.PUT("/garments/:id", api.UpdateGarment)
			auth.DELETE("/garments/:id", api.DeleteGarment)

			auth.GET("/outfits", api.ListOutfits)
			auth.GET("/outfits/:id", api.GetOutfit)
			auth.POST("/outfits", api.CreateOutfit)
			auth.DELETE("/outfits/:id", api.DeleteOutfit)
			auth.POST("/outfits/analyze", api.AnalyzeRateLimit(), api.AnalyzeOutfit)
			auth.POST("/outfits/reconcile", api.ReconcileOutfit)
			auth.POST("/garments/recount", api.RecountUseCounts)

			auth.GET("/analytics", api.GetAnalytics)
			auth.GET("/preferences", api.GetPreferences)
			auth.PUT("/preferences", api.UpdatePreferences)

			auth.GET("/donations", api.ListDonations)
			auth.POST("/donations", api.SaveDonation)
			auth.DELETE("/donations/:garment_id", api.RemoveDonation)
			auth.PATCH("/donations/:garment_id/donated", api.MarkDonated)

			auth.POST("/uploads", api.UploadImage)

			auth.GET("/settings/vision", api.GetVisionSettings)
			auth.PUT("/settings/vision", api.UpdateVisionSettings)
		}
	}

	return r
}
