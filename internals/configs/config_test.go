package configs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Defaults()

	assert.Equal(t, "LGU DrillHub", c.AppName)
	assert.Equal(t, "3000", c.Port)
	assert.Equal(t, "postgres", c.DBDriver)
	assert.Equal(t, 24*time.Hour, c.AccessTokenTTL)
	assert.Equal(t, 30*time.Minute, c.SessionIdleTimeout)
	assert.Equal(t, 5, c.OTPMaxAttempts)
	assert.True(t, c.AuthOTPEnabled)
	assert.Equal(t, "console", c.MailDriver)
	assert.Equal(t, "gemini-2.0-flash", c.GeminiModel)
	assert.False(t, c.IsProduction())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RAILWAY_ENVIRONMENT", "test")
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SESSION_IDLE_TIMEOUT", "5m")
	t.Setenv("AUTH_OTP_ENABLED", "false")
	t.Setenv("OTP_MAX_ATTEMPTS", "3")
	t.Setenv("JWT_SECRET", "access-secret")
	t.Setenv("APP_ENV", "production")

	prev := Conf
	t.Cleanup(func() { Conf = prev })

	c := LoadEnv()
	assert.Equal(t, "sqlite", c.DBDriver)
	assert.Equal(t, 5*time.Minute, c.SessionIdleTimeout)
	assert.False(t, c.AuthOTPEnabled)
	assert.Equal(t, 3, c.OTPMaxAttempts)
	assert.True(t, c.IsProduction())
	assert.Equal(t, "access-secret", JWTSecret)
	assert.Equal(t, "access-secret", GetEnv("JWT_SECRET"))
	assert.Equal(t, "fallback", GetEnv("SOME_UNSET_KEY_FOR_TEST", "fallback"))
}

func TestInitLogger(t *testing.T) {
	c := Defaults()
	c.LogFormat = "console"
	c.LogLevel = "debug"

	logger, err := InitLogger(c)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Core().Enabled(-1))
}
