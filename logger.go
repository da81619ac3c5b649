package scribe

import (
	"go.uber.org/zap"
)

// ZapLogger adapts a zap logger to Logger.
type ZapLogger struct {
	s *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// NewZapLogger wraps the given logger. A nil logger falls back to
// zap.NewNop.
func NewZapLogger(l *zap.Logger) *ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &ZapLogger{s: l.Named("scribe").Sugar()}
}

func (z *ZapLogger) Debug(msg string, args ...any) {
	z.s.Debugw(msg, args...)
}

func (z *ZapLogger) Info(msg string, args ...any) {
	z.s.Infow(msg, args...)
}

func (z *ZapLogger) Warn(msg string, args ...any) {
	z.s.Warnw(msg, args...)
}

func (z *ZapLogger) Error(msg string, args ...any) {
	z.s.Errorw(msg, args...)
}

// maskToken keeps enough of a credential to correlate log lines.
func maskToken(token string) string {
	if len(token) <= 12 {
		return "***"
	}
	return token[:6] + "..." + token[len(token)-4:]
}
