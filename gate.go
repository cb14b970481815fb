package auth

import (
	"strings"
)

const (
	HeaderAuthorization = "Authorization"
	DefaultAuthScheme   = "Bearer"
)

// Gate is the entry point every protected operation calls first.
//
// Callers that proceed on an authenticated decision must load the target
// wedding themselves and call Authorizer.AuthorizeForWedding before
// changing any state.
type Gate struct {
	authorizer *Authorizer
	authScheme string
}

// GateOption configures a Gate
type GateOption func(*Gate)

// WithAuthScheme overrides the "Bearer" scheme.
func WithAuthScheme(scheme string) GateOption {
	return func(g *Gate) {
		if s := strings.TrimSpace(scheme); s != "" {
			g.authScheme = s
		}
	}
}

// NewGate returns a Gate that authenticates through authorizer.
func NewGate(authorizer *Authorizer, opts ...GateOption) *Gate {
	g := &Gate{
		authorizer: authorizer,
		authScheme: DefaultAuthScheme,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Authorizer returns the underlying Authorizer.
func (g *Gate) Authorizer() *Authorizer {
	return g.authorizer
}

// AuthScheme returns the scheme expected in the Authorization header.
func (g *Gate) AuthScheme() string {
	return g.authScheme
}

// RequireWeddingAccess extracts the bearer token from headers and
// authenticates it. It does not load the wedding.
func (g *Gate) RequireWeddingAccess(headers HeaderReader, weddingID string) AccessDecision {
	raw, err := BearerToken(headers, g.authScheme)
	if err != nil {
		d := Deny(CodeInvalidToken)
		g.authorizer.notify(DecisionEvent{Stage: StageAuthenticate, WeddingID: weddingID, Decision: d})
		return d
	}

	d := g.authorizer.authenticate(raw)
	if d.Authenticated && strings.TrimSpace(weddingID) == "" {
		d = Deny(CodeNotFound)
	}
	g.authorizer.notify(DecisionEvent{Stage: StageAuthenticate, WeddingID: weddingID, Decision: d})
	return d
}

// RequireAuthentication authenticates the bearer token without a wedding scope.
func (g *Gate) RequireAuthentication(headers HeaderReader) AccessDecision {
	raw, err := BearerToken(headers, g.authScheme)
	if err != nil {
		d := Deny(CodeInvalidToken)
		g.authorizer.notify(DecisionEvent{Stage: StageAuthenticate, Decision: d})
		return d
	}
	return g.authorizer.Authenticate(raw)
}

// BearerToken returns the token of an "Authorization: <scheme> <token>" header.
// The scheme match is case insensitive.
func BearerToken(headers HeaderReader, scheme string) (string, error) {
	if headers == nil {
		return "", ErrMissingToken
	}
	if scheme == "" {
		scheme = DefaultAuthScheme
	}

	value := strings.TrimSpace(headers.Get(HeaderAuthorization))
	l := len(scheme)
	if len(value) <= l+1 || !strings.EqualFold(value[:l], scheme) || value[l] != ' ' {
		return "", ErrMissingToken
	}

	token := strings.TrimSpace(value[l+1:])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
