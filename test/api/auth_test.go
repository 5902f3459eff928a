package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRejectsWrongPassword(t *testing.T) {
	requireServer(t)

	resp := makeRequest("POST", "/auth/login", map[string]string{
		"username": adminUsername,
		"password": "definitely-not-the-password",
	}, "")
	assert.False(t, resp.IsSuccess())
}

func TestTokenRefresh(t *testing.T) {
	requireServer(t)

	loginResp := makeRequest("POST", "/auth/login", map[string]string{
		"username": adminUsername,
		"password": adminPassword,
	}, "")
	require.True(t, loginResp.IsSuccess(), loginResp.Message)
	refresh := loginResp.GetString("refresh")
	require.NotEmpty(t, refresh)

	refreshResp := makeRequest("POST", "/auth/token/refresh", map[string]string{
		"refresh": refresh,
	}, "")
	require.True(t, refreshResp.IsSuccess(), refreshResp.Message)
	assert.NotEmpty(t, refreshResp.GetString("access"))
}

func TestProtectedRouteNeedsToken(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/patients", nil, "")
	assert.False(t, resp.IsSuccess())
}

func TestMe(t *testing.T) {
	requireServer(t)

	resp := makeRequest("GET", "/core/me", nil, authToken)
	require.True(t, resp.IsSuccess(), resp.Message)
	assert.Equal(t, adminUsername, resp.GetString("username"))
}
