package auth

import (
	"context"
	"log/slog"
	"time"
)

// Logger is the structured logger used across the package.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// HeaderReader exposes request headers. http.Header satisfies it.
type HeaderReader interface {
	Get(key string) string
}

// HeaderFunc adapts a function into a HeaderReader.
type HeaderFunc func(key string) string

// Get satisfies HeaderReader.
func (f HeaderFunc) Get(key string) string {
	if f == nil {
		return ""
	}
	return f(key)
}

// TokenVerifier verifies access and refresh tokens.
type TokenVerifier interface {
	Verify(token string) (*VerifiedToken, error)
	VerifyRefresh(token string) (*VerifiedToken, error)
}

// TokenIssuer mints token pairs for an identity.
type TokenIssuer interface {
	IssuePair(claims IdentityClaims) (TokenPair, error)
}

// AccountRecord is what the credential store holds for a login-capable account.
type AccountRecord struct {
	Username         string
	PasswordHash     string
	IsMaster         bool
	UserType         UserType
	AdminUserType    AdminUserType
	WeddingIDs       []string
	PrimaryWeddingID string
}

// Claims returns the identity claims carried by tokens minted for this account.
func (a AccountRecord) Claims() IdentityClaims {
	return IdentityClaims{
		Username:         a.Username,
		IsMaster:         a.IsMaster,
		UserType:         a.UserType,
		AdminUserType:    a.AdminUserType,
		WeddingIDs:       normalizeWeddingIDs(a.WeddingIDs),
		PrimaryWeddingID: a.PrimaryWeddingID,
	}
}

// CredentialStore persists admin, owner and staff accounts.
// FindByUsername returns ErrAccountNotFound when no account matches.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*AccountRecord, error)
	VerifyPassword(record *AccountRecord, plaintext string) bool
}

// WeddingStore resolves weddings by ID.
// GetByID returns ErrWeddingNotFound when the wedding does not exist.
type WeddingStore interface {
	GetByID(ctx context.Context, weddingID string) (*Wedding, error)
}

// Clock returns the current time.
type Clock func() time.Time

func defaultLogger() Logger {
	return slog.Default().With("component", "auth")
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defaultLogger()
	}
	return l
}
