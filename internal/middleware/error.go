package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tcmflow/clinic-api/internal/handler"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

// ErrorHandler converts errors attached via c.Error into JSON
// responses. Handlers normally respond directly; this is the backstop
// for anything that slips through.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last().Err
		log.Error().
			Err(lastErr).
			Str("request_id", c.GetString(ContextRequestID)).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Msg("unhandled request error")

		if appErr, ok := apperrors.AsAppError(lastErr); ok {
			handler.Error(c, appErr)
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
	}
}
