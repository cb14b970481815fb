package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenUse tells access tokens apart from refresh tokens.
type TokenUse string

const (
	TokenUseAccess  TokenUse = "access"
	TokenUseRefresh TokenUse = "refresh"
)

// JWTClaims is the wire form of a token.
type JWTClaims struct {
	jwt.RegisteredClaims
	Use              TokenUse      `json:"tu"`
	Username         string        `json:"username"`
	IsMaster         bool          `json:"isMaster,omitempty"`
	UserType         UserType      `json:"userType,omitempty"`
	AdminUserType    AdminUserType `json:"adminUserType,omitempty"`
	WeddingIDs       []string      `json:"weddingIds,omitempty"`
	PrimaryWeddingID string        `json:"primaryWeddingId,omitempty"`
}

func newJWTClaims(claims IdentityClaims, use TokenUse, issuer string, audience []string, issuedAt time.Time, ttl time.Duration) *JWTClaims {
	var aud jwt.ClaimStrings
	if len(audience) > 0 {
		aud = make(jwt.ClaimStrings, len(audience))
		copy(aud, audience)
	}

	return &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   claims.Username,
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
		Use:              use,
		Username:         claims.Username,
		IsMaster:         claims.IsMaster,
		UserType:         claims.UserType,
		AdminUserType:    claims.AdminUserType,
		WeddingIDs:       normalizeWeddingIDs(claims.WeddingIDs),
		PrimaryWeddingID: claims.PrimaryWeddingID,
	}
}

// IdentityClaims returns the identity portion of the token.
func (c *JWTClaims) IdentityClaims() IdentityClaims {
	return IdentityClaims{
		Username:         c.Username,
		IsMaster:         c.IsMaster,
		UserType:         c.UserType,
		AdminUserType:    c.AdminUserType,
		WeddingIDs:       append([]string(nil), c.WeddingIDs...),
		PrimaryWeddingID: c.PrimaryWeddingID,
	}
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// Issued returns the issued at time
func (c *JWTClaims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// VerifiedToken is the result of a successful verification.
type VerifiedToken struct {
	ID        string
	Use       TokenUse
	Claims    IdentityClaims
	Identity  Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is the credential pair handed to clients on login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresIn    int64     `json:"expiresIn"`
	IssuedAt     time.Time `json:"-"`
}

// AccessExpiresAt returns issuedAt + expiresIn.
func (p TokenPair) AccessExpiresAt() time.Time {
	return p.IssuedAt.Add(time.Duration(p.ExpiresIn) * time.Second)
}

// ValidAt reports whether the access token is still within its lifetime
// at t. Local check only, signatures are not inspected.
func (p TokenPair) ValidAt(t time.Time) bool {
	if p.AccessToken == "" || p.IssuedAt.IsZero() {
		return false
	}
	return t.Before(p.AccessExpiresAt())
}
