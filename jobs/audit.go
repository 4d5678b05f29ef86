package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	jobmetrics "github.com/odyssey-erp/steward/internal/jobs"
	"github.com/odyssey-erp/steward/internal/session"
)

const (
	// DefaultTrailKey is the Redis list holding the audit trail, newest first.
	DefaultTrailKey = "steward:audit:trail"
	// DefaultTrailLimit caps the number of retained events.
	DefaultTrailLimit = 1000
	// DefaultDigestWindow is used when a digest task names no window.
	DefaultDigestWindow = time.Hour
)

// AuditTrail is a capped Redis list of session events.
type AuditTrail struct {
	client *redis.Client
	key    string
	limit  int64
}

// NewAuditTrail constructs an AuditTrail. Empty key or non-positive limit
// select the defaults.
func NewAuditTrail(client *redis.Client, key string, limit int64) *AuditTrail {
	if key == "" {
		key = DefaultTrailKey
	}
	if limit <= 0 {
		limit = DefaultTrailLimit
	}
	return &AuditTrail{client: client, key: key, limit: limit}
}

// Append pushes event to the head of the trail and trims the tail.
func (t *AuditTrail) Append(ctx context.Context, event session.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit trail: encode: %w", err)
	}
	_, err = t.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, t.key, data)
		pipe.LTrim(ctx, t.key, 0, t.limit-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("audit trail: append: %w", err)
	}
	return nil
}

// Recent returns up to n events, newest first. Unreadable entries are skipped.
func (t *AuditTrail) Recent(ctx context.Context, n int64) ([]session.Event, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := t.client.LRange(ctx, t.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("audit trail: read: %w", err)
	}
	events := make([]session.Event, 0, len(raw))
	for _, item := range raw {
		var event session.Event
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// AuditJob writes audit tasks to the trail.
type AuditJob struct {
	Trail   *AuditTrail
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAuditJob initialises the audit handler.
func NewAuditJob(trail *AuditTrail, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditJob {
	return &AuditJob{Trail: trail, Logger: logger, Metrics: metrics}
}

// Handle executes TaskAuthAudit.
func (j *AuditJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Trail == nil {
		return errors.New("auth audit: handler not configured")
	}
	event, err := decodeAuditEvent(t)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Warn("auth audit payload rejected", slog.Any("error", err))
		}
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track("auth_audit")
	if err := j.Trail.Append(ctx, event); err != nil {
		return tracker.End(err)
	}
	j.Metrics.AddAudited(string(event.Kind))
	if j.Logger != nil {
		j.Logger.Info("auth audit recorded",
			slog.String("kind", string(event.Kind)),
			slog.String("username", event.Username),
			slog.Int64("identity_id", event.IdentityID),
		)
	}
	return tracker.End(nil)
}

// KindCount is one line of a digest.
type KindCount struct {
	Kind  string `json:"kind"`
	Count int    `json:"count"`
}

// DigestJob logs how many events of each kind arrived within a window.
type DigestJob struct {
	Trail   *AuditTrail
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewDigestJob initialises the digest handler.
func NewDigestJob(trail *AuditTrail, logger *slog.Logger, metrics *jobmetrics.Metrics) *DigestJob {
	return &DigestJob{
		Trail:   trail,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes TaskAuthAuditDigest.
func (j *DigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Trail == nil {
		return errors.New("auth audit digest: handler not configured")
	}
	var payload AuditDigestPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	window := DefaultDigestWindow
	if payload.WindowMinutes > 0 {
		window = time.Duration(payload.WindowMinutes) * time.Minute
	}
	tracker := j.Metrics.Track("auth_audit_digest")
	counts, err := j.Summarize(ctx, window)
	if err != nil {
		return tracker.End(err)
	}
	if j.Logger != nil {
		attrs := make([]any, 0, len(counts)+1)
		attrs = append(attrs, slog.Duration("window", window))
		for _, c := range counts {
			attrs = append(attrs, slog.Int(c.Kind, c.Count))
		}
		j.Logger.Info("auth audit digest", attrs...)
	}
	return tracker.End(nil)
}

// Summarize counts trail events newer than window, sorted by kind.
func (j *DigestJob) Summarize(ctx context.Context, window time.Duration) ([]KindCount, error) {
	events, err := j.Trail.Recent(ctx, j.Trail.limit)
	if err != nil {
		return nil, err
	}
	since := j.clock().Add(-window)
	byKind := map[string]int{}
	for _, event := range events {
		if event.At.Before(since) {
			continue
		}
		byKind[string(event.Kind)]++
	}
	counts := make([]KindCount, 0, len(byKind))
	for kind, n := range byKind {
		counts = append(counts, KindCount{Kind: kind, Count: n})
	}
	sort.Slice(counts, func(a, b int) bool { return counts[a].Kind < counts[b].Kind })
	return counts, nil
}
