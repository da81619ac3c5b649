package scribe_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	scribe "github.com/goliatone/go-scribe"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("scribe-test-signing-key")

// mintToken signs a token for a@b.com expiring at exp
func mintToken(t *testing.T, exp time.Time, mods ...func(*scribe.CredentialClaims)) string {
	t.Helper()
	claims := &scribe.CredentialClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "a@b.com",
			Issuer:    "tests",
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		UserID:   "7",
		Username: "ada",
		Email:    "a@b.com",
		FullName: "Ada Lovelace",
	}
	for _, mod := range mods {
		mod(claims)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSigningKey)
	require.NoError(t, err)
	return token
}

// MockStore implements scribe.TokenStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Save(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockStore) Load(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockLogger implements scribe.Logger
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) { m.Called(msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.Called(msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.Called(msg, args) }

// recordingSink keeps every activity event
type recordingSink struct {
	mu     sync.Mutex
	events []scribe.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event scribe.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []scribe.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]scribe.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
