package scribe

import (
	"context"
	"time"
)

// ActivityEventType enumerates session lifecycle events.
type ActivityEventType string

const (
	ActivityEventRestored         ActivityEventType = "session.restored"
	ActivityEventRestoreDiscarded ActivityEventType = "session.restore.discarded"
	ActivityEventLoginSuccess     ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure     ActivityEventType = "auth.login.failure"
	ActivityEventRegisterSuccess  ActivityEventType = "auth.register.success"
	ActivityEventRegisterFailure  ActivityEventType = "auth.register.failure"
	ActivityEventRefreshSuccess   ActivityEventType = "auth.refresh.success"
	ActivityEventRefreshFailure   ActivityEventType = "auth.refresh.failure"
	ActivityEventLogout           ActivityEventType = "auth.logout"
	ActivityEventExpired          ActivityEventType = "session.expired"
	ActivityEventUnauthorized     ActivityEventType = "session.unauthorized"
)

// ActivityEvent captures what happened to the session.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	FromState  State
	ToState    State
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged and never fail the operation.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
