package session

import (
	"context"
	"log/slog"
	"time"
)

// EventKind names a session lifecycle event.
type EventKind string

const (
	EventLogin       EventKind = "session.login"
	EventLoginFailed EventKind = "session.login_failed"
	EventLogout      EventKind = "session.logout"
	EventRestore     EventKind = "session.restore"
)

// Event is one entry of the authentication audit trail. Username is the
// submitted name for failed logins and may not match any identity.
type Event struct {
	Kind       EventKind `json:"kind"`
	IdentityID int64     `json:"identity_id,omitempty"`
	Username   string    `json:"username"`
	At         time.Time `json:"at"`
}

// AuditSink receives session events. Implementations must not block for long
// and handle their own failures.
type AuditSink interface {
	Record(ctx context.Context, event Event)
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Record implements AuditSink.
func (s LogSink) Record(_ context.Context, event Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("auth audit",
		slog.String("kind", string(event.Kind)),
		slog.Int64("identity_id", event.IdentityID),
		slog.String("username", event.Username),
		slog.Time("at", event.At),
	)
}

// MultiSink fans an event out to several sinks in order.
type MultiSink []AuditSink

// Record implements AuditSink.
func (m MultiSink) Record(ctx context.Context, event Event) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(ctx, event)
		}
	}
}

// MetricsObserver counts session events.
type MetricsObserver interface {
	ObserveAuthEvent(kind string)
}
