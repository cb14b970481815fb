package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// VerificationReason classifies why a token was rejected.
type VerificationReason string

const (
	ReasonExpired      VerificationReason = "EXPIRED"
	ReasonMalformed    VerificationReason = "MALFORMED"
	ReasonBadSignature VerificationReason = "BAD_SIGNATURE"
)

// VerificationError is returned by Verify and VerifyRefresh for every
// rejected token.
type VerificationError struct {
	Reason VerificationReason
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("token %s", e.Reason)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Is matches the reason sentinels so errors.Is(err, ErrTokenExpired) works
// on wrapped verification errors.
func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*VerificationError)
	if !ok {
		return false
	}
	return t.Err == nil && t.Reason == e.Reason
}

var (
	// ErrTokenExpired token past its exp claim
	ErrTokenExpired = &VerificationError{Reason: ReasonExpired}
	// ErrTokenMalformed structurally invalid token or claims
	ErrTokenMalformed = &VerificationError{Reason: ReasonMalformed}
	// ErrTokenBadSignature signature or algorithm check failed
	ErrTokenBadSignature = &VerificationError{Reason: ReasonBadSignature}
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenService issues and verifies HS256 signed tokens.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   []string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        Clock
	logger     Logger
}

var _ TokenVerifier = (*TokenService)(nil)
var _ TokenIssuer = (*TokenService)(nil)

// TokenServiceOption configures a TokenService
type TokenServiceOption func(*TokenService)

// WithClock overrides the time source.
func WithClock(now Clock) TokenServiceOption {
	return func(ts *TokenService) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTTLs overrides access and refresh lifetimes. Zero keeps the default.
func WithTTLs(access, refresh time.Duration) TokenServiceOption {
	return func(ts *TokenService) {
		if access > 0 {
			ts.accessTTL = access
		}
		if refresh > 0 {
			ts.refreshTTL = refresh
		}
	}
}

// WithIssuer sets the iss claim and enforces it on verification.
func WithIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenService) { ts.issuer = issuer }
}

// WithAudience sets the aud claim and enforces it on verification.
func WithAudience(aud ...string) TokenServiceOption {
	return func(ts *TokenService) { ts.audience = append([]string(nil), aud...) }
}

// WithTokenLogger sets the logger.
func WithTokenLogger(l Logger) TokenServiceOption {
	return func(ts *TokenService) { ts.logger = normalizeLogger(l) }
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, opts ...TokenServiceOption) *TokenService {
	ts := &TokenService{
		signingKey: append([]byte(nil), signingKey...),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
		logger:     defaultLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// NewTokenServiceFromConfig builds a TokenService from a Config.
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) *TokenService {
	base := []TokenServiceOption{
		WithIssuer(cfg.GetIssuer()),
		WithAudience(cfg.GetAudience()...),
		WithTTLs(cfg.GetAccessTokenTTL(), cfg.GetRefreshTokenTTL()),
	}
	return NewTokenService([]byte(cfg.GetSigningKey()), append(base, opts...)...)
}

// AccessTTL returns the configured access token lifetime.
func (ts *TokenService) AccessTTL() time.Duration { return ts.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (ts *TokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

// Issue mints an access token for claims valid for ttl.
func (ts *TokenService) Issue(claims IdentityClaims, ttl time.Duration) (string, error) {
	return ts.issue(claims, TokenUseAccess, ttl)
}

// IssueRefresh mints a refresh token for claims valid for ttl.
func (ts *TokenService) IssueRefresh(claims IdentityClaims, ttl time.Duration) (string, error) {
	return ts.issue(claims, TokenUseRefresh, ttl)
}

// IssuePair mints an access and refresh token using the configured TTLs.
func (ts *TokenService) IssuePair(claims IdentityClaims) (TokenPair, error) {
	if _, err := claims.Identity(); err != nil {
		return TokenPair{}, err
	}

	issuedAt := ts.now()

	access, err := ts.sign(newJWTClaims(claims, TokenUseAccess, ts.issuer, ts.audience, issuedAt, ts.accessTTL))
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := ts.sign(newJWTClaims(claims, TokenUseRefresh, ts.issuer, ts.audience, issuedAt, ts.refreshTTL))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(ts.accessTTL / time.Second),
		IssuedAt:     issuedAt,
	}, nil
}

func (ts *TokenService) issue(claims IdentityClaims, use TokenUse, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", goerrors.New(fmt.Sprintf("token TTL must be positive, got %s", ttl), goerrors.CategoryBadInput)
	}
	if _, err := claims.Identity(); err != nil {
		return "", err
	}
	return ts.sign(newJWTClaims(claims, use, ts.issuer, ts.audience, ts.now(), ttl))
}

func (ts *TokenService) sign(claims *JWTClaims) (string, error) {
	if len(ts.signingKey) == 0 {
		return "", goerrors.New("signing key must not be empty", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}
	return signed, nil
}

// Verify validates an access token.
func (ts *TokenService) Verify(token string) (*VerifiedToken, error) {
	return ts.verify(token, TokenUseAccess)
}

// VerifyRefresh validates a refresh token.
func (ts *TokenService) VerifyRefresh(token string) (*VerifiedToken, error) {
	return ts.verify(token, TokenUseRefresh)
}

func (ts *TokenService) verify(raw string, use TokenUse) (*VerifiedToken, error) {
	if raw == "" {
		return nil, &VerificationError{Reason: ReasonMalformed, Err: ErrMissingToken}
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience[0]))
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)
	if err != nil {
		verr := classifyParseError(err)
		ts.logger.Debug("token verification failed", "reason", verr.Reason, "error", err)
		return nil, verr
	}

	if !token.Valid {
		return nil, &VerificationError{Reason: ReasonMalformed, Err: errors.New("token not valid")}
	}

	if claims.Use != use {
		return nil, &VerificationError{
			Reason: ReasonMalformed,
			Err:    fmt.Errorf("expected %s token, got %q", use, claims.Use),
		}
	}

	idClaims := claims.IdentityClaims()
	identity, err := idClaims.Identity()
	if err != nil {
		return nil, &VerificationError{Reason: ReasonMalformed, Err: err}
	}

	return &VerifiedToken{
		ID:        claims.RegisteredClaims.ID,
		Use:       claims.Use,
		Claims:    identity.Claims(),
		Identity:  identity,
		IssuedAt:  claims.Issued(),
		ExpiresAt: claims.Expires(),
	}, nil
}

// classifyParseError maps jwt parser failures onto the three reasons.
// Signature problems win over expiry since the library checks them first.
func classifyParseError(err error) *VerificationError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return &VerificationError{Reason: ReasonBadSignature, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &VerificationError{Reason: ReasonExpired, Err: err}
	default:
		return &VerificationError{Reason: ReasonMalformed, Err: err}
	}
}
