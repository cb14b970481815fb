package jwtware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	auth "github.com/goliatone/go-wedding-auth"
)

// DefaultWeddingParam is the route parameter holding the wedding ID.
const DefaultWeddingParam = "weddingId"

// WeddingConfig configures the Wedding guard.
type WeddingConfig struct {
	Config

	// Weddings is required
	Weddings auth.WeddingStore
	// Param names the route parameter, "weddingId" by default
	Param  string
	Logger auth.Logger
}

// Wedding returns a handler that runs both checks a wedding scoped
// mutation needs: the Gate authenticates the caller, the wedding is
// loaded, then the Authorizer decides on it. With RequireSuper set the
// caller must also be super. The identity and wedding are stored in
// locals and in the user context.
func Wedding(config WeddingConfig) fiber.Handler {
	config.Config = GetDefaultConfig(config.Config)
	if config.Weddings == nil {
		panic("AUTH: wedding guard configuration: Weddings store is required.")
	}
	if config.Param == "" {
		config.Param = DefaultWeddingParam
	}
	if config.Logger == nil {
		config.Logger = slog.Default().With("component", "jwtware")
	}

	cfg := config
	extractors := cfg.getExtractors()

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		weddingID := c.Params(cfg.Param)

		d := cfg.Gate.RequireWeddingAccess(cfg.headers(c, extractors), weddingID)
		if !d.Authenticated {
			return cfg.ErrorHandler(c, d)
		}

		if err := cfg.runValidationListeners(c, d.User); err != nil {
			return cfg.ErrorHandler(c, auth.Deny(auth.CodeInvalidToken))
		}

		wedding, err := cfg.Weddings.GetByID(c.UserContext(), weddingID)
		if err != nil {
			if errors.Is(err, auth.ErrWeddingNotFound) {
				return cfg.ErrorHandler(c, auth.Deny(auth.CodeNotFound))
			}
			cfg.Logger.Error("wedding lookup failed", "wedding_id", weddingID, "error", err)
			return cfg.ErrorHandler(c, auth.Deny(auth.CodeInternalError))
		}

		d = cfg.Gate.Authorizer().AuthorizeForWedding(d.User, wedding)
		if !d.Authenticated {
			return cfg.ErrorHandler(c, d)
		}

		if cfg.RequireSuper {
			if d = cfg.Gate.Authorizer().RequireSuper(d.User); !d.Authenticated {
				return cfg.ErrorHandler(c, d)
			}
		}

		c.Locals(cfg.ContextKey, d.User)
		c.Locals(auth.WeddingLocalsKey, wedding)

		ctx := auth.WithIdentityContext(c.UserContext(), d.User)
		c.SetUserContext(auth.WithWeddingContext(ctx, wedding))

		return cfg.SuccessHandler(c)
	}
}
