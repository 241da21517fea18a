package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"page-composer-backend/internal/config"
	"page-composer-backend/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimitMiddlewareRejectsBurst(t *testing.T) {
	manager := NewRateLimitManager(context.Background())
	defer manager.Shutdown()
	cfg := &config.Config{RateLimitRequests: 2, RateLimitWindow: 60}

	router := gin.New()
	router.Use(RateLimitMiddleware(manager, cfg))
	router.POST("/api/v1/builder/undo", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/builder/state", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/builder/undo", nil))
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence: %v", codes)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/builder/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected state reads to bypass the limit, got %d", rec.Code)
	}
}

func TestTransferLimiterIsSeparate(t *testing.T) {
	manager := NewRateLimitManager(context.Background())
	defer manager.Shutdown()

	general := manager.GetVisitor("10.0.0.1", 10, 60, 0)
	transfer := manager.GetTransferLimiter("10.0.0.1", 1, 60)
	if general == nil || transfer == nil || general == transfer {
		t.Fatalf("expected distinct limiters")
	}
	if !transfer.Allow() || transfer.Allow() {
		t.Fatalf("expected transfer limiter to allow exactly one request")
	}
	if manager.GetVisitor("10.0.0.1", 0, 60, 0) != nil {
		t.Fatalf("expected disabled limit to return nil")
	}
}

func TestCleanupEvictsIdleVisitors(t *testing.T) {
	manager := NewRateLimitManager(context.Background())
	defer manager.Shutdown()

	manager.GetVisitor("10.0.0.1", 10, 60, 0)
	manager.GetTransferLimiter("10.0.0.1", 10, 60)

	manager.cleanup(time.Now().Add(5 * time.Minute))
	if len(manager.visitors) != 0 {
		t.Fatalf("expected idle general visitor to be evicted")
	}
	if len(manager.transferVisitors) != 1 {
		t.Fatalf("expected transfer visitor to be kept for 10 minutes")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(logger.RequestIDKey)) })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "abc" || rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("expected request id to propagate, got %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(rec.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestBodyLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimitMiddleware(8))
	router.POST("/", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected small body to pass, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("definitely too large")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected oversized body to be rejected, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing security headers: %v", rec.Header())
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Fatalf("HSTS must only be sent over TLS")
	}
}
