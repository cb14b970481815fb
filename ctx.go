package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

var identityCtxKey = &contextKey{"identity"}
var weddingCtxKey = &contextKey{"wedding"}

type contextKey struct {
	name string
}

// DefaultContextKey is the fiber locals key identities are stored under
const DefaultContextKey = "user"

// WeddingLocalsKey is the fiber locals key the authorized wedding is stored under
const WeddingLocalsKey = "wedding"

// WithIdentityContext sets the Identity in the given context
func WithIdentityContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// IdentityFromContext finds the Identity in the context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(Identity)
	return raw, ok && raw != nil
}

// WithWeddingContext sets the authorized Wedding in the given context
func WithWeddingContext(ctx context.Context, w *Wedding) context.Context {
	return context.WithValue(ctx, weddingCtxKey, w)
}

// WeddingFromContext finds the authorized Wedding in the context.
func WeddingFromContext(ctx context.Context) (*Wedding, bool) {
	raw, ok := ctx.Value(weddingCtxKey).(*Wedding)
	return raw, ok && raw != nil
}

// GetLocalsIdentity extracts the Identity from fiber locals
func GetLocalsIdentity(c *fiber.Ctx, key string) (Identity, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	raw, ok := c.Locals(key).(Identity)
	return raw, ok && raw != nil
}

// GetLocalsWedding extracts the authorized Wedding from fiber locals
func GetLocalsWedding(c *fiber.Ctx) (*Wedding, bool) {
	raw, ok := c.Locals(WeddingLocalsKey).(*Wedding)
	return raw, ok && raw != nil
}

// FiberHeaders adapts request headers of a fiber context into a HeaderReader.
func FiberHeaders(c *fiber.Ctx) HeaderReader {
	return HeaderFunc(func(key string) string {
		return c.Get(key)
	})
}

// SendDecision writes a rejected decision as {error, code}.
func SendDecision(c *fiber.Ctx, d AccessDecision) error {
	return c.Status(d.StatusCode).JSON(d.Body())
}
