package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ResponseVersion identifies the login response shape.
type ResponseVersion int

const (
	// ResponseV1 is the single-token shape issued before refresh tokens existed
	ResponseV1 ResponseVersion = 1
	// ResponseV2 carries an access and refresh token pair
	ResponseV2 ResponseVersion = 2
)

// ErrLegacyResponse the server answered in the V1 shape and the caller did not opt in
var ErrLegacyResponse = errors.New("legacy login response not accepted")

// LoginResponseV2 is the body of a successful login or refresh.
type LoginResponseV2 struct {
	Version      ResponseVersion `json:"version"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	ExpiresIn    int64           `json:"expiresIn"`
	User         IdentityClaims  `json:"user"`
}

// LoginResponseV1 is the legacy single-token body.
type LoginResponseV1 struct {
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expiresIn,omitempty"`
	User      *IdentityClaims `json:"user,omitempty"`
}

// NewLoginResponse builds the V2 body for a login result.
func NewLoginResponse(res *LoginResult) LoginResponseV2 {
	return LoginResponseV2{
		Version:      ResponseV2,
		AccessToken:  res.Pair.AccessToken,
		RefreshToken: res.Pair.RefreshToken,
		ExpiresIn:    res.Pair.ExpiresIn,
		User:         res.Identity.Claims(),
	}
}

type responseEnvelope struct {
	Version     ResponseVersion `json:"version"`
	AccessToken *string         `json:"accessToken"`
	Token       *string         `json:"token"`
}

// DecodeLoginResponse detects the response version and returns the token
// pair. V1 bodies are accepted only with allowLegacy. The returned pair's
// IssuedAt is set to receivedAt.
func DecodeLoginResponse(data []byte, allowLegacy bool, receivedAt time.Time) (TokenPair, ResponseVersion, error) {
	var env responseEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return TokenPair{}, 0, fmt.Errorf("decode login response: %w", err)
	}

	switch {
	case env.Version == ResponseV2 || (env.Version == 0 && env.AccessToken != nil):
		var body LoginResponseV2
		if err := json.Unmarshal(data, &body); err != nil {
			return TokenPair{}, 0, fmt.Errorf("decode login response v2: %w", err)
		}
		if body.AccessToken == "" || body.RefreshToken == "" {
			return TokenPair{}, ResponseV2, errors.New("login response v2 missing tokens")
		}
		return TokenPair{
			AccessToken:  body.AccessToken,
			RefreshToken: body.RefreshToken,
			ExpiresIn:    body.ExpiresIn,
			IssuedAt:     receivedAt,
		}, ResponseV2, nil

	case env.Token != nil && (env.Version == 0 || env.Version == ResponseV1):
		if !allowLegacy {
			return TokenPair{}, ResponseV1, ErrLegacyResponse
		}
		var body LoginResponseV1
		if err := json.Unmarshal(data, &body); err != nil {
			return TokenPair{}, 0, fmt.Errorf("decode login response v1: %w", err)
		}
		if body.Token == "" {
			return TokenPair{}, ResponseV1, errors.New("login response v1 missing token")
		}
		expiresIn := body.ExpiresIn
		if expiresIn <= 0 {
			expiresIn = int64(DefaultAccessTTL / time.Second)
		}
		return TokenPair{
			AccessToken: body.Token,
			ExpiresIn:   expiresIn,
			IssuedAt:    receivedAt,
		}, ResponseV1, nil

	default:
		return TokenPair{}, env.Version, fmt.Errorf("unsupported login response version %d", env.Version)
	}
}
