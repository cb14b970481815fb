package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// LegacyCredentials is the single admin login of a legacy deployment.
type LegacyCredentials struct {
	Username     string
	PasswordHash string
}

// LoginResult is returned by a successful login or refresh.
type LoginResult struct {
	Pair     TokenPair
	Identity Identity
}

// Auther turns credentials and refresh tokens into token pairs.
type Auther struct {
	store        CredentialStore
	tokens       *TokenService
	legacy       *LegacyCredentials
	logger       Logger
	activitySink ActivitySink
	now          Clock
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(store CredentialStore, tokens *TokenService) *Auther {
	return &Auther{
		store:        store,
		tokens:       tokens,
		logger:       defaultLogger(),
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithLegacyCredentials enables the single-tenant admin login.
func (s *Auther) WithLegacyCredentials(creds LegacyCredentials) *Auther {
	if creds.Username == "" || creds.PasswordHash == "" {
		s.legacy = nil
		return s
	}
	s.legacy = &creds
	return s
}

// WithClock overrides the time source used for activity timestamps.
func (s *Auther) WithClock(now Clock) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// TokenService returns the TokenService used by this Auther
func (s *Auther) TokenService() *TokenService {
	return s.tokens
}

// Login verifies username and password and mints a token pair.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	claims, err := s.resolveLogin(ctx, username, password)
	if err != nil {
		s.logger.Info("login rejected", "username", username, "error", err)
		s.emit(ctx, ActivityEventLoginFailure, IdentityClaims{Username: username}, map[string]any{
			"error": err.Error(),
		})
		return nil, err
	}

	res, err := s.mint(claims)
	if err != nil {
		s.logger.Error("login failed to mint tokens", "username", username, "error", err)
		s.emit(ctx, ActivityEventLoginFailure, claims, map[string]any{"error": err.Error()})
		return nil, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, claims, nil)
	return res, nil
}

func (s *Auther) resolveLogin(ctx context.Context, username, password string) (IdentityClaims, error) {
	if username == "" || password == "" {
		return IdentityClaims{}, ErrInvalidCredentials
	}

	if s.legacy != nil && username == s.legacy.Username {
		if !PasswordMatches(password, s.legacy.PasswordHash) {
			return IdentityClaims{}, ErrInvalidCredentials
		}
		return IdentityClaims{Username: username, UserType: UserTypeLegacy}, nil
	}

	if s.store == nil {
		return IdentityClaims{}, ErrInvalidCredentials
	}

	record, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return IdentityClaims{}, ErrInvalidCredentials
		}
		return IdentityClaims{}, goerrors.Wrap(err, goerrors.CategoryInternal, "find account")
	}
	if record == nil || !s.store.VerifyPassword(record, password) {
		return IdentityClaims{}, ErrInvalidCredentials
	}

	return record.Claims(), nil
}

// Refresh verifies a refresh token and mints a rotated pair. Non-legacy
// accounts are re-read so role and wedding changes apply on refresh.
func (s *Auther) Refresh(ctx context.Context, refreshToken string) (*LoginResult, error) {
	claims, err := s.resolveRefresh(ctx, refreshToken)
	if err != nil {
		s.logger.Info("refresh rejected", "error", err)
		s.emit(ctx, ActivityEventRefreshFailure, claims, map[string]any{"error": err.Error()})
		return nil, err
	}

	res, err := s.mint(claims)
	if err != nil {
		s.logger.Error("refresh failed to mint tokens", "username", claims.Username, "error", err)
		s.emit(ctx, ActivityEventRefreshFailure, claims, map[string]any{"error": err.Error()})
		return nil, err
	}

	s.emit(ctx, ActivityEventRefreshSuccess, claims, nil)
	return res, nil
}

func (s *Auther) resolveRefresh(ctx context.Context, refreshToken string) (IdentityClaims, error) {
	verified, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return IdentityClaims{}, err
	}

	claims := verified.Claims
	if _, ok := verified.Identity.(LegacyIdentity); ok || s.store == nil {
		return claims, nil
	}

	record, err := s.store.FindByUsername(ctx, claims.Username)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return claims, &VerificationError{Reason: ReasonMalformed, Err: err}
		}
		return claims, goerrors.Wrap(err, goerrors.CategoryInternal, "find account")
	}
	if record == nil {
		return claims, &VerificationError{Reason: ReasonMalformed, Err: ErrAccountNotFound}
	}
	return record.Claims(), nil
}

func (s *Auther) mint(claims IdentityClaims) (*LoginResult, error) {
	identity, err := claims.Identity()
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(claims)
	if err != nil {
		return nil, err
	}

	return &LoginResult{Pair: pair, Identity: identity}, nil
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, claims IdentityClaims, metadata map[string]any) {
	if metadata == nil {
		metadata = map[string]any{}
	}

	event := ActivityEvent{
		EventType:  eventType,
		Username:   claims.Username,
		UserType:   claims.UserType,
		Metadata:   metadata,
		OccurredAt: s.now(),
	}

	if err := normalizeActivitySink(s.activitySink).Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error", "error", err)
	}
}
