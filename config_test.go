package auth_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-wedding-auth"
)

// unsetEnv clears key for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

var configKeys = []string{
	"ENVIRONMENT", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
	"AUTH_ACCESS_TTL", "AUTH_REFRESH_TTL", "AUTH_AUTH_SCHEME", "AUTH_CONTEXT_KEY",
	"AUTH_TOKEN_LOOKUP", "AUTH_LEGACY_MODE", "AUTH_LEGACY_USERNAME",
	"AUTH_LEGACY_PASSWORD_HASH", "AUTH_LEGACY_WEDDING_ID",
}

func TestLoadConfig_Defaults(t *testing.T) {
	unsetEnv(t, configKeys...)

	cfg, err := auth.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "wedding-admin", cfg.GetIssuer())
	assert.Empty(t, cfg.GetAudience())
	assert.Equal(t, 15*time.Minute, cfg.GetAccessTokenTTL())
	assert.Equal(t, 7*24*time.Hour, cfg.GetRefreshTokenTTL())
	assert.Equal(t, "Bearer", cfg.GetAuthScheme())
	assert.Equal(t, auth.DefaultContextKey, cfg.GetContextKey())
	assert.Equal(t, "header:Authorization", cfg.GetTokenLookup())
	assert.False(t, cfg.GetLegacyMode())
	assert.Equal(t, "admin", cfg.GetLegacyUsername())
}

func TestLoadConfig_FromEnv(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH_SIGNING_KEY", string(testSigningKey))
	t.Setenv("AUTH_AUDIENCE", "admin-ui,guest-app")
	t.Setenv("AUTH_ACCESS_TTL", "5m")
	t.Setenv("AUTH_REFRESH_TTL", "1h")
	t.Setenv("AUTH_LEGACY_MODE", "true")
	t.Setenv("AUTH_LEGACY_PASSWORD_HASH", "$2a$04$hash")
	t.Setenv("AUTH_LEGACY_WEDDING_ID", "W-LEGACY")

	cfg, err := auth.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, string(testSigningKey), cfg.GetSigningKey())
	assert.Equal(t, []string{"admin-ui", "guest-app"}, cfg.GetAudience())
	assert.Equal(t, 5*time.Minute, cfg.GetAccessTokenTTL())
	assert.Equal(t, time.Hour, cfg.GetRefreshTokenTTL())
	assert.True(t, cfg.GetLegacyMode())
	assert.Equal(t, "W-LEGACY", cfg.GetLegacyWeddingID())
}

func TestEnvConfig_Validate(t *testing.T) {
	valid := func() auth.EnvConfig {
		return auth.EnvConfig{
			Environment:     "production",
			SigningKey:      string(testSigningKey),
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: time.Hour,
		}
	}

	tests := []struct {
		name   string
		mutate func(*auth.EnvConfig)
		errMsg string
	}{
		{name: "valid", mutate: func(*auth.EnvConfig) {}},
		{
			name:   "non positive access ttl",
			mutate: func(c *auth.EnvConfig) { c.AccessTokenTTL = 0 },
			errMsg: "AUTH_ACCESS_TTL",
		},
		{
			name:   "refresh not longer than access",
			mutate: func(c *auth.EnvConfig) { c.RefreshTokenTTL = c.AccessTokenTTL },
			errMsg: "AUTH_REFRESH_TTL",
		},
		{
			name:   "development key in production",
			mutate: func(c *auth.EnvConfig) { c.SigningKey = "change-this-to-a-secure-signing-key" },
			errMsg: "explicitly set",
		},
		{
			name:   "short key in production",
			mutate: func(c *auth.EnvConfig) { c.SigningKey = "short" },
			errMsg: "at least 32",
		},
		{
			name: "short key tolerated in development",
			mutate: func(c *auth.EnvConfig) {
				c.Environment = "development"
				c.SigningKey = "short"
			},
		},
		{
			name: "legacy mode without password hash",
			mutate: func(c *auth.EnvConfig) {
				c.LegacyMode = true
				c.LegacyWeddingID = "W1"
			},
			errMsg: "AUTH_LEGACY_PASSWORD_HASH",
		},
		{
			name: "legacy mode without deployment wedding",
			mutate: func(c *auth.EnvConfig) {
				c.LegacyMode = true
				c.LegacyPasswordHash = "$2a$04$hash"
			},
			errMsg: "AUTH_LEGACY_WEDDING_ID",
		},
		{
			name: "legacy mode complete",
			mutate: func(c *auth.EnvConfig) {
				c.LegacyMode = true
				c.LegacyPasswordHash = "$2a$04$hash"
				c.LegacyWeddingID = "W1"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.True(t, goerrors.IsValidation(err))
		})
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("AUTH_AUTH_SCHEME", "Token")

	dir := t.TempDir()
	file := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(file, []byte("AUTH_ISSUER=from-dotenv\nAUTH_AUTH_SCHEME=Ignored\n"), 0o600))

	cfg, err := auth.LoadConfig(auth.WithDotEnv(filepath.Join(dir, "missing.env"), file))
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.GetIssuer())
	assert.Equal(t, "Token", cfg.GetAuthScheme(), "process environment wins over .env")
}

func TestLoadConfig_Invalid(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("AUTH_ACCESS_TTL", "not-a-duration")

	_, err := auth.LoadConfig()
	assert.Error(t, err)
}

func TestNewTokenServiceFromConfig_UsesLoadedConfig(t *testing.T) {
	unsetEnv(t, configKeys...)
	t.Setenv("AUTH_SIGNING_KEY", string(testSigningKey))
	t.Setenv("AUTH_ISSUER", "config-issuer")
	t.Setenv("AUTH_ACCESS_TTL", "2m")

	cfg, err := auth.LoadConfig()
	require.NoError(t, err)

	ts := auth.NewTokenServiceFromConfig(cfg, auth.WithClock(fixedClock(baseTime)))
	assert.Equal(t, 2*time.Minute, ts.AccessTTL())

	pair, err := ts.IssuePair(auth.IdentityClaims{Username: "root", IsMaster: true, UserType: auth.UserTypeSuper})
	require.NoError(t, err)
	assert.EqualValues(t, 120, pair.ExpiresIn)

	verifier := auth.NewTokenService(testSigningKey, auth.WithIssuer("config-issuer"), auth.WithClock(fixedClock(baseTime)))
	verified, err := verifier.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "root", verified.Identity.Username())

	_, err = auth.NewTokenService(testSigningKey, auth.WithClock(fixedClock(baseTime))).Verify(pair.AccessToken)
	assert.NoError(t, err, "an empty issuer skips the issuer check")
}
