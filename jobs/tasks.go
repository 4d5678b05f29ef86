package jobs

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/steward/internal/session"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuthAudit appends one session event to the audit trail.
	TaskAuthAudit = "auth:audit"
	// TaskAuthAuditDigest summarises recent audit events in the worker log.
	TaskAuthAuditDigest = "auth:audit_digest"
)

// ErrInvalidAuditEvent rejects events that carry no kind.
var ErrInvalidAuditEvent = errors.New("jobs: audit event has no kind")

// NewAuthAuditTask constructs an Asynq task carrying event.
func NewAuthAuditTask(event session.Event) (*asynq.Task, error) {
	if strings.TrimSpace(string(event.Kind)) == "" {
		return nil, ErrInvalidAuditEvent
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthAudit, data), nil
}

// AuditDigestPayload configures a digest run.
type AuditDigestPayload struct {
	WindowMinutes int `json:"window_minutes"`
}

// NewAuthAuditDigestTask constructs the periodic digest task.
func NewAuthAuditDigestTask(windowMinutes int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditDigestPayload{WindowMinutes: windowMinutes})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuthAuditDigest, data), nil
}

func decodeAuditEvent(t *asynq.Task) (session.Event, error) {
	var event session.Event
	if err := json.Unmarshal(t.Payload(), &event); err != nil {
		return session.Event{}, err
	}
	if strings.TrimSpace(string(event.Kind)) == "" {
		return session.Event{}, ErrInvalidAuditEvent
	}
	return event, nil
}
