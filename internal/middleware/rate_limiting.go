package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"page-composer-backend/internal/config"
	"page-composer-backend/pkg/logger"
)

// RateLimitMiddleware limits API requests per client IP. Read-only requests
// for state and templates are not limited.
func RateLimitMiddleware(manager *RateLimitManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil || shouldBypassRateLimit(c.Request) {
			c.Next()
			return
		}

		limiter := manager.GetVisitor(c.ClientIP(), cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst)
		if limiter != nil && !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

// TransferRateLimitMiddleware guards export and import, which parse and
// serialise whole documents.
func TransferRateLimitMiddleware(manager *RateLimitManager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if manager == nil {
			c.Next()
			return
		}

		limiter := manager.GetTransferLimiter(c.ClientIP(), cfg.TransferRateLimit, cfg.TransferRateLimitWindow)
		if limiter != nil && !limiter.Allow() {
			logger.Warn("Transfer rate limit exceeded", map[string]interface{}{
				"ip":   c.ClientIP(),
				"path": c.Request.URL.Path,
			})
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many export or import requests, please try again later",
			})
			return
		}
		c.Next()
	}
}

func shouldBypassRateLimit(r *http.Request) bool {
	if r == nil || r.URL == nil {
		return false
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}

	switch r.URL.Path {
	case "/health", "/metrics", "/api/v1/builder/state", "/api/v1/builder/templates":
		return true
	}
	return false
}
