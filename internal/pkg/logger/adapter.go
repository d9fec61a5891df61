package logger

import (
	"log/slog"

	"wallet_tracker/internal/app/port"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// slogAdapter implements port.Logger on top of a slog.Logger.
type slogAdapter struct {
	l *slog.Logger
}

// NewSlogAdapter wraps l as a port.Logger.
func NewSlogAdapter(l *slog.Logger) port.Logger {
	return &slogAdapter{l: l}
}

// New returns a port.Logger writing to z, tagged with the component name.
func New(z *zap.Logger, component string) port.Logger {
	l := slog.New(zapslog.NewHandler(z.Core()))
	if component != "" {
		l = l.With("component", component)
	}
	return &slogAdapter{l: l}
}

// NewNop returns a logger that discards everything.
func NewNop() port.Logger {
	return New(zap.NewNop(), "")
}

func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
