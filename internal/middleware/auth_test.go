package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcmflow/clinic-api/internal/handler"
	"github.com/tcmflow/clinic-api/internal/model"
	"github.com/tcmflow/clinic-api/internal/repository/repotest"
	"github.com/tcmflow/clinic-api/pkg/auth"
)

func newAuthFixture(t *testing.T) (*AuthMiddleware, *repotest.Users, *auth.Manager, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &repotest.Users{}
	jwtMgr := auth.NewManager(auth.Config{Secret: "middleware-test-secret"})
	mw := NewAuthMiddleware(jwtMgr, users)

	r := gin.New()
	r.GET("/probe", mw.Authenticate(), func(c *gin.Context) {
		c.String(http.StatusOK, handler.CurrentUser(c).Username)
	})
	return mw, users, jwtMgr, r
}

func seedActiveUser(t *testing.T, users *repotest.Users, username string, role model.Role) *model.User {
	t.Helper()
	u := &model.User{Username: username, Role: role, IsActive: true}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func accessToken(t *testing.T, jwtMgr *auth.Manager, u *model.User) string {
	t.Helper()
	token, err := jwtMgr.GenerateAccessToken(auth.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
	})
	require.NoError(t, err)
	return token
}

func probe(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate_ValidToken(t *testing.T) {
	_, users, jwtMgr, r := newAuthFixture(t)
	u := seedActiveUser(t, users, "drchan", model.RoleDoctor)

	w := probe(r, "Bearer "+accessToken(t, jwtMgr, u))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "drchan", w.Body.String())
}

func TestAuthenticate_MissingHeader(t *testing.T) {
	_, _, _, r := newAuthFixture(t)

	w := probe(r, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing authorization header")
}

func TestAuthenticate_BadFormat(t *testing.T) {
	_, users, jwtMgr, r := newAuthFixture(t)
	u := seedActiveUser(t, users, "drchan", model.RoleDoctor)
	token := accessToken(t, jwtMgr, u)

	for _, header := range []string{"Token " + token, token} {
		w := probe(r, header)
		assert.Equal(t, http.StatusUnauthorized, w.Code, header)
		assert.Contains(t, w.Body.String(), "invalid authorization format")
	}
}

func TestAuthenticate_GarbageToken(t *testing.T) {
	_, _, _, r := newAuthFixture(t)

	w := probe(r, "Bearer not-a-jwt")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestAuthenticate_RejectsRefreshToken(t *testing.T) {
	_, users, jwtMgr, r := newAuthFixture(t)
	u := seedActiveUser(t, users, "drchan", model.RoleDoctor)

	refresh, _, err := jwtMgr.GenerateRefreshToken(auth.Identity{
		UserID:   u.ID,
		Username: u.Username,
		Role:     string(u.Role),
	})
	require.NoError(t, err)

	w := probe(r, "Bearer "+refresh)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid token")
}

func TestAuthenticate_DisabledUser(t *testing.T) {
	_, users, jwtMgr, r := newAuthFixture(t)
	u := seedActiveUser(t, users, "drchan", model.RoleDoctor)
	token := accessToken(t, jwtMgr, u)
	u.IsActive = false

	w := probe(r, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "account is disabled")
}

func TestAuthenticate_CachesUser(t *testing.T) {
	mw, users, jwtMgr, r := newAuthFixture(t)
	u := seedActiveUser(t, users, "drchan", model.RoleDoctor)
	token := accessToken(t, jwtMgr, u)

	w := probe(r, "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)

	// The first request cached the user, so losing the store record
	// does not log anyone out until the entry is invalidated.
	users.Items = nil
	w = probe(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)

	mw.Invalidate(u.ID.String())
	w = probe(r, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	asUser := func(u *model.User) gin.HandlerFunc {
		return func(c *gin.Context) {
			if u != nil {
				c.Set(handler.ContextUserKey, u)
			}
			c.Next()
		}
	}
	newRouter := func(u *model.User) *gin.Engine {
		r := gin.New()
		r.GET("/doctors-only", asUser(u), RequireRole(model.RoleDoctor), func(c *gin.Context) {
			c.String(http.StatusOK, "ok")
		})
		return r
	}

	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{"doctor passes", &model.User{Username: "drchan", Role: model.RoleDoctor}, http.StatusOK},
		{"admin always passes", &model.User{Username: "root", Role: model.RoleAdmin}, http.StatusOK},
		{"assistant rejected", &model.User{Username: "reception", Role: model.RoleAssistant}, http.StatusForbidden},
		{"anonymous rejected", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/doctors-only", nil)
			newRouter(tt.user).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
