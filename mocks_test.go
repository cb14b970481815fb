package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	auth "github.com/goliatone/go-wedding-auth"
)

var testSigningKey = []byte("wedding-auth-test-signing-key-0123456789")

// MockCredentialStore implements auth.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) FindByUsername(ctx context.Context, username string) (*auth.AccountRecord, error) {
	args := m.Called(ctx, username)
	if rec := args.Get(0); rec != nil {
		return rec.(*auth.AccountRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCredentialStore) VerifyPassword(record *auth.AccountRecord, plaintext string) bool {
	args := m.Called(record, plaintext)
	return args.Bool(0)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

type recordingListener struct {
	mu     sync.Mutex
	events []auth.DecisionEvent
}

func (r *recordingListener) OnDecision(e auth.DecisionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingListener) Events() []auth.DecisionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]auth.DecisionEvent(nil), r.events...)
}

type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, e auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

func fixedClock(t time.Time) auth.Clock {
	return func() time.Time { return t }
}

var baseTime = time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)
