package scribe

import (
	"context"
)

var managerCtxKey = &contextKey{"manager"}
var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithManager sets the Manager in the given context
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerCtxKey, m)
}

// ManagerFromContext finds the Manager in the context.
func ManagerFromContext(ctx context.Context) (*Manager, bool) {
	raw, ok := ctx.Value(managerCtxKey).(*Manager)
	return raw, ok && raw != nil
}

// WithSession sets the Session in the given context
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// SessionFromContext returns the session stored with WithSession. When
// there is none it falls back to the active session of the context
// Manager.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	if raw, ok := ctx.Value(sessionCtxKey).(*Session); ok && raw != nil {
		return raw, true
	}
	m, ok := ManagerFromContext(ctx)
	if !ok {
		return nil, false
	}
	return m.Session(ctx)
}
