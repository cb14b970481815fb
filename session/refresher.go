package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	auth "github.com/goliatone/go-wedding-auth"
)

// Refresher exchanges a refresh token for a new pair.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
}

// RefresherFunc adapts a function into a Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (auth.TokenPair, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	return f(ctx, refreshToken)
}

// RefreshError is a non 2xx answer from the refresh endpoint.
type RefreshError struct {
	StatusCode int
	Code       auth.ErrorCode
	Message    string
}

func (e *RefreshError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("refresh rejected: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("refresh rejected: %d", e.StatusCode)
}

// DefaultRefreshPath is appended to HTTPRefresher.BaseURL.
const DefaultRefreshPath = "/auth/refresh"

// HTTPRefresher calls POST {BaseURL}/auth/refresh with {"refreshToken"}.
type HTTPRefresher struct {
	BaseURL string
	Path    string
	// Client must not route through Transport, defaults to http.DefaultClient
	Client *http.Client
	// AllowLegacyResponses accepts the single token response shape
	AllowLegacyResponses bool
	Now                  auth.Clock
}

var _ Refresher = (*HTTPRefresher)(nil)

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	body, err := json.Marshal(auth.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return auth.TokenPair{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url(), bytes.NewReader(body))
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	res, err := client.Do(req)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("refresh request: %w", err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("refresh response: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		rerr := &RefreshError{StatusCode: res.StatusCode}
		var eb auth.ErrorBody
		if json.Unmarshal(data, &eb) == nil {
			rerr.Code = eb.Code
			rerr.Message = eb.Error
		}
		return auth.TokenPair{}, rerr
	}

	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	pair, _, err := auth.DecodeLoginResponse(data, r.AllowLegacyResponses, now())
	if err != nil {
		return auth.TokenPair{}, err
	}
	return pair, nil
}

func (r *HTTPRefresher) url() string {
	path := r.Path
	if path == "" {
		path = DefaultRefreshPath
	}
	return strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
