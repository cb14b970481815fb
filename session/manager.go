package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	auth "github.com/goliatone/go-wedding-auth"
)

const (
	// DefaultRefreshLeeway is how long before expiry a refresh is due.
	DefaultRefreshLeeway = 60 * time.Second
	// DefaultRefreshTimeout bounds a single refresh call.
	DefaultRefreshTimeout = 10 * time.Second
)

var (
	ErrNoRefreshToken = errors.New("session: no refresh token stored")
	ErrNoRefresher    = errors.New("session: no refresher configured")
)

const refreshKey = "refresh"

// Manager holds the client side token pair.
//
// Lifecycle: New, Init on start up, Teardown on logout. Every method is
// safe for concurrent use. Concurrent RefreshTokens calls share a single
// network call and observe the same outcome.
type Manager struct {
	storage   Storage
	refresher Refresher
	logger    auth.Logger
	now       auth.Clock
	leeway    time.Duration
	timeout   time.Duration

	mu       sync.RWMutex
	record   *Record
	notified bool
	nextID   int
	handlers map[int]func()

	group singleflight.Group
}

// Option configures a Manager
type Option func(*Manager)

// WithStorage sets the record storage. Defaults to a MemoryStorage.
func WithStorage(s Storage) Option {
	return func(m *Manager) {
		if s != nil {
			m.storage = s
		}
	}
}

// WithRefresher sets how refresh tokens are exchanged.
func WithRefresher(r Refresher) Option {
	return func(m *Manager) { m.refresher = r }
}

func WithLogger(l auth.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithClock(now auth.Clock) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithRefreshLeeway sets how early before expiry NeedsRefresh turns true.
func WithRefreshLeeway(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.leeway = d
		}
	}
}

// WithRefreshTimeout bounds the refresh call. A timeout counts as a failed refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// New returns a Manager. Call Init to load a persisted record.
func New(opts ...Option) *Manager {
	m := &Manager{
		storage:  NewMemoryStorage(),
		logger:   slog.Default().With("component", "session"),
		now:      time.Now,
		leeway:   DefaultRefreshLeeway,
		timeout:  DefaultRefreshTimeout,
		handlers: map[int]func(){},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Init loads the persisted record, if any. A record that cannot be
// decoded is cleared.
func (m *Manager) Init(ctx context.Context) error {
	values, err := m.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("session init: %w", err)
	}

	rec, err := ParseRecord(values)
	if err != nil {
		if !errors.Is(err, ErrNoRecord) {
			m.logger.Warn("discarding unreadable session record", "error", err)
			if cerr := m.storage.Clear(ctx); cerr != nil {
				return fmt.Errorf("session init: %w", cerr)
			}
		}
		m.setRecord(nil)
		return nil
	}

	m.setRecord(&rec)
	return nil
}

// Teardown clears the stored tokens and drops every AUTH_EXPIRED handler.
func (m *Manager) Teardown(ctx context.Context) error {
	err := m.ClearTokens(ctx)

	m.mu.Lock()
	m.handlers = map[int]func(){}
	m.mu.Unlock()

	return err
}

// StoreTokens persists pair together with the identity fields found in
// the access token. The token is decoded without verification, the
// client never holds the signing key.
func (m *Manager) StoreTokens(ctx context.Context, pair auth.TokenPair) error {
	rec, err := m.recordFor(pair)
	if err != nil {
		return err
	}

	if err := m.storage.Save(ctx, rec.Values()); err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	m.mu.Lock()
	m.record = &rec
	m.notified = false
	m.mu.Unlock()
	return nil
}

func (m *Manager) recordFor(pair auth.TokenPair) (Record, error) {
	if pair.AccessToken == "" {
		return Record{}, errors.New("session store: empty access token")
	}

	claims := &auth.JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(pair.AccessToken, claims); err != nil {
		return Record{}, fmt.Errorf("session store: decode access token: %w", err)
	}

	expiry := claims.Expires()
	if pair.ExpiresIn > 0 {
		issued := pair.IssuedAt
		if issued.IsZero() {
			issued = m.now()
		}
		expiry = issued.Add(time.Duration(pair.ExpiresIn) * time.Second)
	}

	id := claims.IdentityClaims()
	return Record{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		Expiry:           expiry,
		Username:         id.Username,
		IsMaster:         id.IsMaster,
		UserType:         id.UserType,
		WeddingIDs:       id.WeddingIDs,
		PrimaryWeddingID: id.PrimaryWeddingID,
		AdminUserType:    id.AdminUserType,
	}, nil
}

// ClearTokens wipes every stored token and identity field.
func (m *Manager) ClearTokens(ctx context.Context) error {
	m.setRecord(nil)
	if err := m.storage.Clear(ctx); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}

// HasValidTokens reports whether an access token is stored and not known
// to be expired. No network call is made.
func (m *Manager) HasValidTokens() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.record != nil && m.record.AccessToken != "" && m.now().Before(m.record.Expiry)
}

// NeedsRefresh reports whether a refresh token is stored and the access
// token expires within the refresh leeway.
func (m *Manager) NeedsRefresh() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record == nil || m.record.RefreshToken == "" {
		return false
	}
	return !m.now().Before(m.record.Expiry.Add(-m.leeway))
}

// AccessToken returns the stored access token.
func (m *Manager) AccessToken() (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record == nil || m.record.AccessToken == "" {
		return "", false
	}
	return m.record.AccessToken, true
}

// Record returns a copy of the stored record.
func (m *Manager) Record() (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.record == nil {
		return Record{}, false
	}
	rec := *m.record
	rec.WeddingIDs = append([]string(nil), rec.WeddingIDs...)
	return rec, true
}

// Identity resolves the stored claims. The result is informational, the
// server remains the authority.
func (m *Manager) Identity() (auth.Identity, bool) {
	rec, ok := m.Record()
	if !ok {
		return nil, false
	}
	id, err := rec.Claims().Identity()
	if err != nil {
		return nil, false
	}
	return id, true
}

// EnsureValidSession refreshes when the access token is expired or close
// to it. It reports whether a usable access token is stored afterwards.
func (m *Manager) EnsureValidSession(ctx context.Context) bool {
	if m.NeedsRefresh() {
		return m.RefreshTokens(ctx)
	}
	return m.HasValidTokens()
}

// RefreshTokens exchanges the stored refresh token for a new pair.
//
// On success the new pair is stored. On any failure, timeouts included,
// the tokens are cleared and AUTH_EXPIRED is emitted. Callers that give up
// through ctx get false, the refresh itself keeps running and its result
// is stored for the next caller.
func (m *Manager) RefreshTokens(ctx context.Context) bool {
	detached := context.WithoutCancel(ctx)
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		return nil, m.refresh(detached)
	})

	select {
	case res := <-ch:
		return res.Err == nil
	case <-ctx.Done():
		m.logger.Debug("refresh abandoned by caller", "error", ctx.Err())
		return false
	}
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.RLock()
	var refreshToken string
	stored := m.record != nil
	if stored {
		refreshToken = m.record.RefreshToken
	}
	m.mu.RUnlock()

	if !stored {
		return ErrNoRecord
	}

	err := ErrNoRefreshToken
	if refreshToken != "" {
		err = m.exchange(ctx, refreshToken)
	}
	if err == nil {
		return nil
	}

	m.logger.Info("session refresh failed", "error", err)
	if cerr := m.ClearTokens(ctx); cerr != nil {
		m.logger.Error("session clear after failed refresh", "error", cerr)
	}
	m.emitExpired()
	return err
}

func (m *Manager) exchange(ctx context.Context, refreshToken string) error {
	if m.refresher == nil {
		return ErrNoRefresher
	}

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	pair, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return m.StoreTokens(ctx, pair)
}

// HandleUnauthorized is called after the server rejected a request made
// with the stored access token. It refreshes and reports whether the
// request may be retried.
func (m *Manager) HandleUnauthorized(ctx context.Context) bool {
	if _, ok := m.Record(); !ok {
		return false
	}
	return m.RefreshTokens(ctx)
}

// OnAuthExpired registers fn for AUTH_EXPIRED and returns a function that
// removes it. The event fires at most once until tokens are stored again.
func (m *Manager) OnAuthExpired(fn func()) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}
}

func (m *Manager) emitExpired() {
	m.mu.Lock()
	if m.notified {
		m.mu.Unlock()
		return
	}
	m.notified = true
	handlers := make([]func(), 0, len(m.handlers))
	for _, fn := range m.handlers {
		handlers = append(handlers, fn)
	}
	m.mu.Unlock()

	m.logger.Info("session expired")
	for _, fn := range handlers {
		fn()
	}
}

func (m *Manager) setRecord(rec *Record) {
	m.mu.Lock()
	m.record = rec
	m.mu.Unlock()
}
