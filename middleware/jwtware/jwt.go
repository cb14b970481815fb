package jwtware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-wedding-auth"
)

var (
	defaultTokenLookup       = "header:" + auth.HeaderAuthorization
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// ValidationListener is invoked after a token has been authenticated but
// before the request proceeds. An error aborts the request with 401.
type ValidationListener func(c *fiber.Ctx, identity auth.Identity) error

// ErrorHandler renders a rejected decision.
type ErrorHandler func(c *fiber.Ctx, d auth.AccessDecision) error

type Config struct {
	// Gate is required
	Gate *auth.Gate

	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   ErrorHandler

	// ContextKey is the locals key the identity is stored under
	ContextKey string
	// TokenLookup is a comma separated list of <source>:<name> pairs:
	// header:Authorization,cookie:jwt,query:auth_token,param:token
	TokenLookup string
	AuthScheme  string

	// RequireSuper rejects every identity below super with ACCESS_DENIED
	RequireSuper bool

	ValidationListeners []ValidationListener
}

// New returns a handler that authenticates the request and stores the
// identity in locals and in the user context.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		d := cfg.Gate.RequireAuthentication(cfg.headers(c, extractors))
		if !d.Authenticated {
			return cfg.ErrorHandler(c, d)
		}

		if err := cfg.runValidationListeners(c, d.User); err != nil {
			return cfg.ErrorHandler(c, auth.Deny(auth.CodeInvalidToken))
		}

		if cfg.RequireSuper {
			if sd := cfg.Gate.Authorizer().RequireSuper(d.User); !sd.Authenticated {
				return cfg.ErrorHandler(c, sd)
			}
		}

		c.Locals(cfg.ContextKey, d.User)
		c.SetUserContext(auth.WithIdentityContext(c.UserContext(), d.User))

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Gate == nil {
		panic("AUTH: JWT middleware configuration: Gate is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = auth.SendDecision
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = auth.DefaultAuthScheme
	}

	return cfg
}

// headers exposes the first token found by the extractors as an
// Authorization header in the Gate's scheme, so lookups other than the
// header reach the Gate.
func (cfg *Config) headers(c *fiber.Ctx, extractors []JWTExtractor) auth.HeaderReader {
	raw, err := ExtractRawToken(c, extractors)
	scheme := cfg.Gate.AuthScheme()
	return auth.HeaderFunc(func(key string) string {
		if err != nil || !strings.EqualFold(key, auth.HeaderAuthorization) {
			return ""
		}
		return scheme + " " + raw
	})
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(c *fiber.Ctx, identity auth.Identity) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(c, identity); err != nil {
			return err
		}
	}
	return nil
}

// ExtractRawToken returns the first token found by extractors.
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, error) {
	var raw string
	err := ErrJWTMissingOrMalformed

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			return raw, nil
		}
	}

	if err == nil {
		err = ErrJWTMissingOrMalformed
	}
	return "", err
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := auth.DefaultAuthScheme
	if len(authSchemes) > 0 && authSchemes[0] != "" {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c *fiber.Ctx) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token, err := auth.BearerToken(auth.HeaderFunc(func(string) string {
			return c.Get(header)
		}), authScheme)
		if err != nil {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Params(param)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) JWTExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrJWTMissingOrMalformed
		}
		return token, nil
	}
}
