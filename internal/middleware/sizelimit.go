package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tcmflow/clinic-api/internal/handler"
)

type SizeLimitConfig struct {
	MaxBodySize int64
}

// DefaultSizeLimitConfig allows 10MB bodies; patient images arrive as
// base64 payloads.
func DefaultSizeLimitConfig() SizeLimitConfig {
	return SizeLimitConfig{MaxBodySize: 10 << 20}
}

// SizeLimit rejects oversized request bodies before they are read.
func SizeLimit(config SizeLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > config.MaxBodySize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				handler.NewErrorResponse("request body too large"))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, config.MaxBodySize)
		c.Next()
	}
}
