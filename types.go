package scribe

import (
	"context"
	"fmt"
	"strings"
)

// Logger is the logging contract used across the package. Messages take
// optional key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// TokenStore persists the single bearer credential. Implementations must
// not validate the token, they are a pure persistence shim.
type TokenStore interface {
	Save(ctx context.Context, token string) error
	Load(ctx context.Context) (token string, ok bool, err error)
	Clear(ctx context.Context) error
}

// Config holds client options
type Config interface {
	GetBaseURL() string
	GetTokenKey() string
	GetLoginRoute() string
	GetStoreDriver() string
	GetStorePath() string
	GetRedisURL() string
	GetJWKSURL() string
	GetSigningKey() string
	GetUserAgent() string
	GetDebug() bool
}

// UnauthorizedEvent describes a request rejected with an authentication
// failure status. The token store has already been cleared when handlers
// receive it.
type UnauthorizedEvent struct {
	Method     string
	Path       string
	StatusCode int
	RequestID  string
	LoginRoute string
	Message    string
}

// UnauthorizedHandler reacts to an UnauthorizedEvent, e.g. by navigating
// the host application to its login entry point.
type UnauthorizedHandler func(ctx context.Context, evt UnauthorizedEvent)

// CredentialClearer drops the stored credential after a 401 response. It
// replaces the plain TokenStore.Clear so that the owner of the session can
// clear the store and its own state in a single step.
type CredentialClearer func(ctx context.Context, evt UnauthorizedEvent) error

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Print("[ERR] SCRIBE " + format(msg, args...))
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Print("[WRN] SCRIBE " + format(msg, args...))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Print("[INF] SCRIBE " + format(msg, args...))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Print("[DBG] SCRIBE " + format(msg, args...))
}

func format(msg string, args ...any) string {
	var b strings.Builder
	b.WriteString(msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	b.WriteString("\n")
	return b.String()
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything
func NopLogger() Logger {
	return nopLogger{}
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
