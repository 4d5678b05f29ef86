package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/steward/internal/jobs"
	"github.com/odyssey-erp/steward/internal/session"
)

func newTrail(t *testing.T, limit int64) (*AuditTrail, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAuditTrail(client, "", limit), mr
}

func TestAuthAuditTaskRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task, err := NewAuthAuditTask(session.Event{Kind: session.EventLogin, IdentityID: 3, Username: "admin", At: at})
	require.NoError(t, err)
	assert.Equal(t, TaskAuthAudit, task.Type())

	event, err := decodeAuditEvent(task)
	require.NoError(t, err)
	assert.Equal(t, session.EventLogin, event.Kind)
	assert.True(t, event.At.Equal(at))

	_, err = NewAuthAuditTask(session.Event{Username: "x"})
	assert.ErrorIs(t, err, ErrInvalidAuditEvent)
}

func TestAuditJobAppendsAndTrims(t *testing.T) {
	trail, mr := newTrail(t, 2)
	job := NewAuditJob(trail, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		task, err := NewAuthAuditTask(session.Event{Kind: session.EventLoginFailed, Username: name})
		require.NoError(t, err)
		require.NoError(t, job.Handle(ctx, task))
	}

	items, err := mr.List(DefaultTrailKey)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	recent, err := trail.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Username)
	assert.Equal(t, "b", recent[1].Username)
}

func TestAuditJobSkipsBadPayloads(t *testing.T) {
	trail, _ := newTrail(t, 0)
	job := NewAuditJob(trail, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskAuthAudit, []byte("{")))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	err = job.Handle(context.Background(), asynq.NewTask(TaskAuthAudit, []byte(`{"username":"x"}`)))
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	var unset *AuditJob
	assert.Error(t, unset.Handle(context.Background(), asynq.NewTask(TaskAuthAudit, nil)))
}

func TestDigestCountsWithinWindow(t *testing.T) {
	trail, mr := newTrail(t, 0)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	events := []session.Event{
		{Kind: session.EventLogin, Username: "a", At: now.Add(-10 * time.Minute)},
		{Kind: session.EventLoginFailed, Username: "b", At: now.Add(-20 * time.Minute)},
		{Kind: session.EventLoginFailed, Username: "c", At: now.Add(-30 * time.Minute)},
		{Kind: session.EventLogout, Username: "a", At: now.Add(-3 * time.Hour)},
	}
	for _, e := range events {
		require.NoError(t, trail.Append(ctx, e))
	}
	_, err := mr.Lpush(DefaultTrailKey, "not json")
	require.NoError(t, err)

	digest := NewDigestJob(trail, nil, nil)
	digest.clock = func() time.Time { return now }

	counts, err := digest.Summarize(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []KindCount{
		{Kind: string(session.EventLogin), Count: 1},
		{Kind: string(session.EventLoginFailed), Count: 2},
	}, counts)

	task, err := NewAuthAuditDigestTask(240)
	require.NoError(t, err)
	assert.NoError(t, digest.Handle(ctx, task))
}

type fakeEnqueuer struct {
	events []session.Event
	err    error
}

func (f *fakeEnqueuer) EnqueueAuthAudit(ctx context.Context, event session.Event) (*asynq.TaskInfo, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	f.events = append(f.events, event)
	return &asynq.TaskInfo{Queue: QueueDefault}, f.err
}

func TestAuditPublisherSwallowsFailures(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	publisher := NewAuditPublisher(enqueuer, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	publisher.Record(ctx, session.Event{Kind: session.EventLogout, Username: "a"})
	require.Len(t, enqueuer.events, 1, "a cancelled request must not drop the event")

	enqueuer.err = errors.New("redis down")
	assert.NotPanics(t, func() {
		publisher.Record(context.Background(), session.Event{Kind: session.EventLogin})
	})

	var nilPublisher *AuditPublisher
	assert.NotPanics(t, func() { nilPublisher.Record(context.Background(), session.Event{}) })
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Retry: 1}}, nil).
		health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, queueHealth{Queue: "default", Pending: 4, Retry: 1}, got)

	rec = httptest.NewRecorder()
	NewHandler(stubInspector{err: errors.New("down")}, nil).
		health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(nil, nil).health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
