package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/tcmflow/clinic-api/internal/service/audit"
)

// AuditContext copies the client IP and user agent into the request
// context so service-layer audit entries can record where a change
// came from.
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClientInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
