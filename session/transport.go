package session

import (
	"io"
	"net/http"

	auth "github.com/goliatone/go-wedding-auth"
)

// Transport attaches the stored access token to outgoing requests.
//
// A 401 answer triggers one refresh. When it succeeds and the request
// body can be replayed, the request is sent again with the new token.
type Transport struct {
	Manager *Manager
	Base    http.RoundTripper
	// Scheme defaults to Bearer
	Scheme string
}

var _ http.RoundTripper = (*Transport)(nil)

// NewClient returns an http.Client using a Transport over m.
func NewClient(m *Manager) *http.Client {
	return &http.Client{Transport: &Transport{Manager: m}}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if t.Manager.NeedsRefresh() {
		t.Manager.RefreshTokens(ctx)
	}

	res, err := t.base().RoundTrip(t.authorize(req))
	if err != nil || res.StatusCode != http.StatusUnauthorized {
		return res, err
	}

	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
	if !t.Manager.HandleUnauthorized(ctx) || !replayable {
		return res, nil
	}

	io.Copy(io.Discard, io.LimitReader(res.Body, 4<<10))
	res.Body.Close()

	retry := t.authorize(req)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base().RoundTrip(retry)
}

func (t *Transport) authorize(req *http.Request) *http.Request {
	r := req.Clone(req.Context())
	if token, ok := t.Manager.AccessToken(); ok {
		scheme := t.Scheme
		if scheme == "" {
			scheme = auth.DefaultAuthScheme
		}
		r.Header.Set(auth.HeaderAuthorization, scheme+" "+token)
	} else {
		r.Header.Del(auth.HeaderAuthorization)
	}
	return r
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}
