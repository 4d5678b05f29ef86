package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/steward/internal/session"
)

// AuditEnqueuer submits audit events to the queue.
type AuditEnqueuer interface {
	EnqueueAuthAudit(ctx context.Context, event session.Event) (*asynq.TaskInfo, error)
}

// AuditPublisher is a session.AuditSink that hands events to the worker.
// Enqueue failures are logged and dropped.
type AuditPublisher struct {
	enqueuer AuditEnqueuer
	logger   *slog.Logger
	timeout  time.Duration
}

// NewAuditPublisher constructs an AuditPublisher.
func NewAuditPublisher(enqueuer AuditEnqueuer, logger *slog.Logger) *AuditPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditPublisher{enqueuer: enqueuer, logger: logger, timeout: 2 * time.Second}
}

// Record implements session.AuditSink.
func (p *AuditPublisher) Record(ctx context.Context, event session.Event) {
	if p == nil || p.enqueuer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if _, err := p.enqueuer.EnqueueAuthAudit(ctx, event); err != nil {
		p.logger.Warn("enqueue auth audit",
			slog.String("kind", string(event.Kind)),
			slog.Any("error", err),
		)
	}
}

var _ session.AuditSink = (*AuditPublisher)(nil)
