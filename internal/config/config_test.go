package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clinic_test")
	t.Setenv("DJANGO_SECRET_KEY", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Debug)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendURL)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.JWT.AccessExpiry)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshExpiry)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db.internal/clinic")
	t.Setenv("DJANGO_SECRET_KEY", "prod-secret")
	t.Setenv("DEBUG", "true")
	t.Setenv("FRONTEND_URL", "https://clinic.example.hk")
	t.Setenv("PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://db.internal/clinic", cfg.Database.URL)
	assert.Equal(t, "prod-secret", cfg.SecretKey)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "https://clinic.example.hk", cfg.FrontendURL)
	assert.Equal(t, 9000, cfg.Server.Port)
}

func TestLoad_SecretKeyAlias(t *testing.T) {
	// SECRET_KEY works when DJANGO_SECRET_KEY is not set.
	t.Setenv("DATABASE_URL", "postgres://localhost/clinic_test")
	t.Setenv("SECRET_KEY", "alias-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "alias-secret", cfg.SecretKey)
}

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DJANGO_SECRET_KEY", "test-secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_RequiresSecretKey(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/clinic_test")
	t.Setenv("DJANGO_SECRET_KEY", "")
	t.Setenv("SECRET_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DJANGO_SECRET_KEY")
}

func TestOutboxConfig_ToProcessorConfig(t *testing.T) {
	c := OutboxConfig{
		BatchSize:    10,
		PollInterval: time.Second,
		MaxRetries:   3,
		RetryDelay:   2 * time.Second,
	}

	pc := c.ToProcessorConfig()
	assert.Equal(t, 10, pc.BatchSize)
	assert.Equal(t, time.Second, pc.PollInterval)
	assert.Equal(t, 3, pc.MaxRetries)
	assert.Equal(t, 2*time.Second, pc.RetryDelay)
}
