// Package session is the client side of wedding auth: it keeps the token
// pair in durable storage, refreshes it before it expires, and notifies
// observers with AUTH_EXPIRED once a refresh fails.
//
//	m := session.New(
//		session.WithStorage(session.NewFileStorage(path)),
//		session.WithRefresher(&session.HTTPRefresher{BaseURL: api}),
//	)
//	if err := m.Init(ctx); err != nil {
//		return err
//	}
//	defer m.Teardown(ctx)
//
//	stop := m.OnAuthExpired(func() { showLogin() })
//	defer stop()
//
//	client := session.NewClient(m)
package session
