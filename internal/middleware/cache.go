package middleware

import "github.com/gin-gonic/gin"

// NoStore forbids caching of API responses. Everything served here is
// patient data or derived from it.
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}
