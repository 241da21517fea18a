package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"page-composer-backend/pkg/logger"
)

// RequestIDMiddleware propagates X-Request-ID, generating one when the
// client did not send it.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.Request.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(logger.RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}
