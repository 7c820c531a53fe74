package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gowatch/config"
	"gowatch/internal/pkg/ratelimit"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "segredo")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite:///./gowatch.db", cfg.DatabaseURL)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 60*time.Minute, cfg.TokenExpiry)
	assert.Equal(t, 250*time.Millisecond, cfg.CacheTimeout)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, ratelimit.DefaultPolicies(), cfg.RateLimits)
	assert.False(t, cfg.TrustProxy)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "segredo")
	t.Setenv("JWT_ALGORITHM", "hs512")
	t.Setenv("JWT_EXPIRY_MIN", "0")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/gowatch?sslmode=disable")
	t.Setenv("RATE_LIMIT_LOGIN_MAX", "3")
	t.Setenv("RATE_LIMIT_LOGIN_WINDOW_SEC", "120")
	t.Setenv("TRUST_PROXY", "true")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "HS512", cfg.JWTAlgorithm)
	assert.Equal(t, time.Duration(0), cfg.TokenExpiry)
	assert.Equal(t, ratelimit.Policy{Action: ratelimit.ActionLogin, Limit: 3, Window: 2 * time.Minute}, cfg.RateLimits[ratelimit.ActionLogin])
	assert.Equal(t, 20, cfg.RateLimits[ratelimit.ActionWatchlistWrite].Limit)
	assert.True(t, cfg.TrustProxy)
}

func TestLoadConfig_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	_, err := config.LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET_KEY")
}

func TestValidate_RejectsBadValues(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "segredo")
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	cfg.JWTAlgorithm = "RS256"
	cfg.RateLimits[ratelimit.ActionAdmin] = ratelimit.Policy{Action: ratelimit.ActionAdmin, Limit: 0, Window: time.Minute}

	err = cfg.Validate()
	assert.ErrorContains(t, err, "JWT_ALGORITHM")
	assert.ErrorContains(t, err, "admin")
}
