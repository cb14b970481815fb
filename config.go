package auth

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
	GetAuthScheme() string
	GetContextKey() string
	GetTokenLookup() string
	GetLegacyMode() bool
	GetLegacyUsername() string
	GetLegacyPasswordHash() string
	GetLegacyWeddingID() string
}

const developmentSigningKey = "change-this-to-a-secure-signing-key"

// MinSigningKeyLength is enforced outside development.
const MinSigningKeyLength = 32

// EnvConfig is a Config read from environment variables.
type EnvConfig struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	SigningKey      string        `env:"AUTH_SIGNING_KEY" envDefault:"change-this-to-a-secure-signing-key"`
	Issuer          string        `env:"AUTH_ISSUER" envDefault:"wedding-admin"`
	Audience        []string      `env:"AUTH_AUDIENCE" envSeparator:","`
	AccessTokenTTL  time.Duration `env:"AUTH_ACCESS_TTL" envDefault:"15m"`
	RefreshTokenTTL time.Duration `env:"AUTH_REFRESH_TTL" envDefault:"168h"`
	AuthScheme      string        `env:"AUTH_AUTH_SCHEME" envDefault:"Bearer"`
	ContextKey      string        `env:"AUTH_CONTEXT_KEY" envDefault:"user"`
	TokenLookup     string        `env:"AUTH_TOKEN_LOOKUP" envDefault:"header:Authorization"`

	LegacyMode         bool   `env:"AUTH_LEGACY_MODE" envDefault:"false"`
	LegacyUsername     string `env:"AUTH_LEGACY_USERNAME" envDefault:"admin"`
	LegacyPasswordHash string `env:"AUTH_LEGACY_PASSWORD_HASH"`
	LegacyWeddingID    string `env:"AUTH_LEGACY_WEDDING_ID"`
}

var _ Config = (*EnvConfig)(nil)

// LoadConfigOption configures LoadConfig
type LoadConfigOption func(*loadOptions)

type loadOptions struct {
	dotEnvFiles []string
}

// WithDotEnv loads the given .env files before parsing. Missing files are
// skipped; variables already set in the environment win.
func WithDotEnv(files ...string) LoadConfigOption {
	return func(o *loadOptions) {
		o.dotEnvFiles = append(o.dotEnvFiles, files...)
	}
}

// LoadConfig reads configuration from environment variables.
func LoadConfig(opts ...LoadConfigOption) (*EnvConfig, error) {
	o := &loadOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	for _, file := range o.dotEnvFiles {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "load dotenv "+file)
		}
	}

	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "load auth config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *EnvConfig) Validate() error {
	if c.AccessTokenTTL <= 0 {
		return invalidConfig("AUTH_ACCESS_TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if c.RefreshTokenTTL <= c.AccessTokenTTL {
		return invalidConfig("AUTH_REFRESH_TTL (%s) must be longer than AUTH_ACCESS_TTL (%s)", c.RefreshTokenTTL, c.AccessTokenTTL)
	}

	if c.Environment != "development" {
		if c.SigningKey == developmentSigningKey {
			return invalidConfig("AUTH_SIGNING_KEY must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.SigningKey) < MinSigningKeyLength {
			return invalidConfig("AUTH_SIGNING_KEY must be at least %d characters long, got %d", MinSigningKeyLength, len(c.SigningKey))
		}
	}

	if c.LegacyMode {
		if c.LegacyPasswordHash == "" {
			return invalidConfig("AUTH_LEGACY_PASSWORD_HASH is required when AUTH_LEGACY_MODE is enabled")
		}
		if c.LegacyWeddingID == "" {
			return invalidConfig("AUTH_LEGACY_WEDDING_ID is required when AUTH_LEGACY_MODE is enabled")
		}
	}
	return nil
}

func invalidConfig(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), goerrors.CategoryValidation).
		WithTextCode("INVALID_CONFIG")
}

func (c *EnvConfig) GetSigningKey() string              { return c.SigningKey }
func (c *EnvConfig) GetIssuer() string                  { return c.Issuer }
func (c *EnvConfig) GetAudience() []string              { return c.Audience }
func (c *EnvConfig) GetAccessTokenTTL() time.Duration   { return c.AccessTokenTTL }
func (c *EnvConfig) GetRefreshTokenTTL() time.Duration  { return c.RefreshTokenTTL }
func (c *EnvConfig) GetAuthScheme() string              { return c.AuthScheme }
func (c *EnvConfig) GetContextKey() string              { return c.ContextKey }
func (c *EnvConfig) GetTokenLookup() string             { return c.TokenLookup }
func (c *EnvConfig) GetLegacyMode() bool                { return c.LegacyMode }
func (c *EnvConfig) GetLegacyUsername() string          { return c.LegacyUsername }
func (c *EnvConfig) GetLegacyPasswordHash() string      { return c.LegacyPasswordHash }
func (c *EnvConfig) GetLegacyWeddingID() string         { return c.LegacyWeddingID }
