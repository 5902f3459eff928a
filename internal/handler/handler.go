package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tcmflow/clinic-api/internal/model"
	apperrors "github.com/tcmflow/clinic-api/pkg/errors"
)

// ContextUserKey is where the auth middleware stores the
// authenticated *model.User.
const ContextUserKey = "current_user"

// CurrentUser returns the authenticated user, or nil on routes that
// skip authentication.
func CurrentUser(c *gin.Context) *model.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, ok := value.(*model.User)
	if !ok {
		return nil
	}
	return user
}

// CurrentUserID returns the authenticated user's id for audit fields.
func CurrentUserID(c *gin.Context) *uuid.UUID {
	user := CurrentUser(c)
	if user == nil {
		return nil
	}
	id := user.ID
	return &id
}

// ParseUUID reads a path parameter as a UUID, writing a 400 response
// itself when the value is malformed.
func ParseUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

func statusFor(code apperrors.ErrorCode) int {
	switch code {
	case apperrors.ErrNotFound:
		return http.StatusNotFound
	case apperrors.ErrBadRequest:
		return http.StatusBadRequest
	case apperrors.ErrUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrForbidden:
		return http.StatusForbidden
	case apperrors.ErrConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a JSON response. Application errors keep their
// message; anything else is logged and reported as a plain 500.
func Error(c *gin.Context, err error) {
	if appErr, ok := apperrors.AsAppError(err); ok {
		status := statusFor(appErr.Code)
		if status == http.StatusInternalServerError {
			logError(c, err)
		}
		c.JSON(status, NewErrorResponse(appErr.Message))
		return
	}

	logError(c, err)
	c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
}

func logError(c *gin.Context, err error) {
	log.Error().
		Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Str("request_id", c.GetString("request_id")).
		Msg("request failed")
}
