package membership

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegistration     ActivityEventType = "member.registration.received"
	ActivityEventVerification     ActivityEventType = "member.verified"
	ActivityEventProfileCompleted ActivityEventType = "member.profile.completed"
	ActivityEventLoginSuccess     ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure     ActivityEventType = "auth.login.failure"
	ActivityEventPasswordChanged  ActivityEventType = "auth.password.changed"
	ActivityEventPromotion        ActivityEventType = "member.promoted"
	ActivityEventDemotion         ActivityEventType = "member.demoted"
	ActivityEventStatusChanged    ActivityEventType = "member.status.changed"
	ActivityEventDeletion         ActivityEventType = "member.deleted"
	ActivityEventBootstrap        ActivityEventType = "system.superadmin.bootstrap"
)

// ActorRef identifies who/what triggered an action.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	MemberID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
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

// NewLoggingActivitySink writes every event to the logger. Good enough
// for a single-node deployment; swap in a real sink for fan-out.
func NewLoggingActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		logger.Info("activity %s actor=%s member=%s", event.EventType, event.Actor.ID, event.MemberID)
		return nil
	})
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
