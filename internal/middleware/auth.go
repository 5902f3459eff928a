package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/tcmflow/clinic-api/internal/handler"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository"
	"github.com/tcmflow/clinic-api/pkg/auth"
)

const (
	userCacheTTL     = 5 * time.Minute
	userCacheCleanup = 10 * time.Minute
)

type AuthMiddleware struct {
	jwt      *auth.Manager
	userRepo repository.UserRepository
	cache    *gocache.Cache
}

func NewAuthMiddleware(jwt *auth.Manager, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		jwt:      jwt,
		userRepo: userRepo,
		cache:    gocache.New(userCacheTTL, userCacheCleanup),
	}
}

// Authenticate validates the bearer token and loads the user into the
// request context. Users are cached briefly so every request does not
// hit the database.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.jwt.ValidateAccessToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		user, err := m.loadUser(c, claims)
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("account is disabled"))
			c.Abort()
			return
		}

		c.Set(handler.ContextUserKey, user)
		c.Next()
	}
}

func (m *AuthMiddleware) loadUser(c *gin.Context, claims *auth.Claims) (*model.User, error) {
	cacheKey := "user:" + claims.UserID.String()
	if cached, found := m.cache.Get(cacheKey); found {
		if user, ok := cached.(*model.User); ok {
			return user, nil
		}
	}

	user, err := m.userRepo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		return nil, err
	}
	m.cache.Set(cacheKey, user, gocache.DefaultExpiration)
	return user, nil
}

// Invalidate drops a user from the cache after role or status changes.
func (m *AuthMiddleware) Invalidate(userID string) {
	m.cache.Delete("user:" + userID)
}

// RequireRole rejects requests from users outside the given roles.
// Admins always pass.
func RequireRole(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handler.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			c.Abort()
			return
		}
		if user.IsAdmin() {
			c.Next()
			return
		}
		for _, role := range roles {
			if user.Role == role {
				c.Next()
				return
			}
		}
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("permission denied"))
		c.Abort()
	}
}
