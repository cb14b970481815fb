package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-wedding-auth"
)

// newAPI serves /auth/refresh and a protected /guests endpoint backed by a
// real TokenService.
func newAPI(t *testing.T, clock *fakeClock) (*httptest.Server, *auth.TokenService, *atomic.Int32) {
	t.Helper()
	ts := auth.NewTokenService(testKey, auth.WithClock(clock.Now))
	auther := auth.NewAuthenticator(nil, ts)
	gate := auth.NewGate(auth.NewAuthorizer(ts))
	refreshes := &atomic.Int32{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		var req auth.RefreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		res, err := auther.Refresh(r.Context(), req.RefreshToken)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			code := auth.CodeFromError(err)
			w.WriteHeader(code.StatusCode())
			json.NewEncoder(w).Encode(auth.ErrorBody{Error: code.Message(), Code: code})
			return
		}
		json.NewEncoder(w).Encode(auth.NewLoginResponse(res))
	})
	mux.HandleFunc("/guests", func(w http.ResponseWriter, r *http.Request) {
		d := gate.RequireAuthentication(r.Header)
		if !d.Authenticated {
			w.WriteHeader(d.StatusCode)
			json.NewEncoder(w).Encode(d.Body())
			return
		}
		body, _ := io.ReadAll(r.Body)
		w.Write([]byte(d.User.Username() + ":" + string(body)))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, ts, refreshes
}

func TestHTTPRefresher(t *testing.T) {
	clock := newFakeClock()
	srv, ts, _ := newAPI(t, clock)

	pair, err := ts.IssuePair(ownerClaims)
	require.NoError(t, err)

	r := &HTTPRefresher{BaseURL: srv.URL + "/", Client: srv.Client(), Now: clock.Now}
	next, err := r.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	assert.Equal(t, clock.Now(), next.IssuedAt)

	_, err = r.Refresh(context.Background(), pair.AccessToken)
	var rerr *RefreshError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusUnauthorized, rerr.StatusCode)
	assert.Equal(t, auth.CodeInvalidToken, rerr.Code)
}

func TestHTTPRefresher_LegacyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"token":"legacy.jwt.token"}`))
	}))
	defer srv.Close()

	strict := &HTTPRefresher{BaseURL: srv.URL, Client: srv.Client()}
	_, err := strict.Refresh(context.Background(), "r")
	assert.ErrorIs(t, err, auth.ErrLegacyResponse)

	lenient := &HTTPRefresher{BaseURL: srv.URL, Client: srv.Client(), AllowLegacyResponses: true}
	pair, err := lenient.Refresh(context.Background(), "r")
	require.NoError(t, err)
	assert.Equal(t, "legacy.jwt.token", pair.AccessToken)
	assert.Empty(t, pair.RefreshToken)
}

func TestTransport_RetriesAfterRefresh(t *testing.T) {
	clock := newFakeClock()
	srv, ts, refreshes := newAPI(t, clock)

	m := New(
		WithClock(clock.Now),
		WithRefreshLeeway(0),
		WithRefresher(&HTTPRefresher{BaseURL: srv.URL, Client: srv.Client(), Now: clock.Now}),
	)
	pair, err := ts.IssuePair(ownerClaims)
	require.NoError(t, err)
	require.NoError(t, m.StoreTokens(context.Background(), pair))

	var seen []string
	var bodies []string
	rejectFirst := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(auth.HeaderAuthorization))
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if len(seen) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer rejectFirst.Close()

	expired := 0
	m.OnAuthExpired(func() { expired++ })

	client := NewClient(m)
	req, err := http.NewRequest(http.MethodPost, rejectFirst.URL+"/guests", strings.NewReader("bob"))
	require.NoError(t, err)

	res, err := client.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, 0, expired)

	require.Len(t, seen, 2)
	assert.Equal(t, "Bearer "+pair.AccessToken, seen[0])
	token, _ := m.AccessToken()
	assert.Equal(t, "Bearer "+token, seen[1])
	assert.NotEqual(t, seen[0], seen[1])
	assert.Equal(t, []string{"bob", "bob"}, bodies)
}

func TestTransport_ExpiredSessionEmitsOnce(t *testing.T) {
	clock := newFakeClock()
	srv, ts, _ := newAPI(t, clock)

	m := New(
		WithClock(clock.Now),
		WithRefreshLeeway(0),
		WithRefresher(&HTTPRefresher{BaseURL: srv.URL, Client: srv.Client(), Now: clock.Now}),
	)
	pair, err := ts.IssuePair(ownerClaims)
	require.NoError(t, err)
	require.NoError(t, m.StoreTokens(context.Background(), pair))

	expired := 0
	m.OnAuthExpired(func() { expired++ })

	// server and client both move past the refresh lifetime
	clock.Advance(auth.DefaultRefreshTTL + time.Hour)

	client := &http.Client{Transport: &Transport{Manager: m, Base: srv.Client().Transport}}
	for i := 0; i < 3; i++ {
		res, err := client.Get(srv.URL + "/guests")
		require.NoError(t, err)
		res.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	}

	assert.Equal(t, 1, expired)
	assert.False(t, m.HasValidTokens())
}
