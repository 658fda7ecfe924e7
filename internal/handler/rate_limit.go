package handler

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// userRateLimiter 为每个用户维护一个令牌桶。
type userRateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[uint]*rate.Limiter
}

// newUserRateLimiter perMinute <= 0 时返回 nil，表示不限流。
func newUserRateLimiter(perMinute int) *userRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &userRateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[uint]*rate.Limiter),
	}
}

func (l *userRateLimiter) allow(userID uint) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}

// AnalyzeRateLimit 限制单个用户调用识图接口的频率。
func (a *API) AnalyzeRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.analyzeRate.allow(currentUserID(c)) {
			respondError(c, http.StatusTooManyRequests, "识图请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
