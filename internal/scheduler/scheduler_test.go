package scheduler

import (
	"context"
	"testing"
	"time"

	"trainhub_backend/platform/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string                            { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool                      { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string                      { return "default" }
func (c testSchedulerConfig) GetAsynqConcurrency() int                       { return 1 }
func (c testSchedulerConfig) GetFollowUpSweepInterval() time.Duration        { return time.Minute }
func (c testSchedulerConfig) GetNotificationDispatchInterval() time.Duration { return time.Second }

type testPipelineConfig struct {
	stallAfter time.Duration
}

func (c testPipelineConfig) GetFollowUpThreshold() int            { return 5 }
func (c testPipelineConfig) GetPlacementTestMinimum() int         { return 50 }
func (c testPipelineConfig) GetFollowUpStallAfter() time.Duration { return c.stallAfter }

type fakeSweeper struct {
	cutoff  time.Time
	limit   int
	touched int
}

func (f *fakeSweeper) SweepStalled(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	f.cutoff = cutoff
	f.limit = limit
	return f.touched, nil
}

type fakeDispatcher struct {
	calls int
}

func (f *fakeDispatcher) DispatchDue(ctx context.Context, now time.Time) (int, error) {
	f.calls++
	return 1, nil
}

func startRedis(t *testing.T) string {
	t.Helper()
	srv := miniredis.RunT(t)
	return "redis://" + srv.Addr()
}

func TestClientEnqueuesTasks(t *testing.T) {
	redisURL := startRedis(t)
	cfg := testSchedulerConfig{redisURL: redisURL}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	if err := client.ScheduleFollowUpSweep(ctx, FollowUpSweepPayload{ScheduledFor: now, Limit: 10}, now); err != nil {
		t.Fatalf("schedule sweep: %v", err)
	}
	if err := client.EnqueueNotificationDispatch(ctx); err != nil {
		t.Fatalf("enqueue dispatch: %v", err)
	}
	if err := client.EnqueueFundingSync(ctx); err != nil {
		t.Fatalf("enqueue funding sync: %v", err)
	}

	opt, err := redisClientOpt(redisURL, false)
	if err != nil {
		t.Fatalf("redis opt: %v", err)
	}
	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks("default")
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	kinds := make(map[string]int)
	for _, task := range pending {
		kinds[task.Type]++
	}
	if kinds[TaskFollowUpSweep] != 1 || kinds[TaskNotificationDispatch] != 1 || kinds[TaskFundingSync] != 1 {
		t.Errorf("pending task kinds = %v", kinds)
	}
}

func TestFollowUpSweepHandlerDerivesCutoff(t *testing.T) {
	cfg := testSchedulerConfig{redisURL: startRedis(t)}
	sweeper := &fakeSweeper{touched: 2}
	dispatcher := &fakeDispatcher{}

	worker, err := NewWorker(cfg, testPipelineConfig{stallAfter: 72 * time.Hour}, sweeper, dispatcher, nil, logger.New("development"))
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	scheduledFor := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	task, err := NewFollowUpSweepTask(FollowUpSweepPayload{ScheduledFor: scheduledFor})
	if err != nil {
		t.Fatalf("new task: %v", err)
	}

	if err := worker.handleFollowUpSweep(context.Background(), task); err != nil {
		t.Fatalf("handle sweep: %v", err)
	}
	wantCutoff := scheduledFor.Add(-72 * time.Hour)
	if !sweeper.cutoff.Equal(wantCutoff) {
		t.Errorf("cutoff = %v, want %v", sweeper.cutoff, wantCutoff)
	}
	if sweeper.limit != defaultSweepLimit {
		t.Errorf("limit = %d, want default %d", sweeper.limit, defaultSweepLimit)
	}
}

func TestDispatchAndSyncHandlers(t *testing.T) {
	cfg := testSchedulerConfig{redisURL: startRedis(t)}
	dispatcher := &fakeDispatcher{}

	worker, err := NewWorker(cfg, testPipelineConfig{stallAfter: time.Hour}, &fakeSweeper{}, dispatcher, nil, logger.New("development"))
	if err != nil {
		t.Fatalf("new worker: %v", err)
	}

	if err := worker.handleNotificationDispatch(context.Background(), NewNotificationDispatchTask()); err != nil {
		t.Fatalf("handle dispatch: %v", err)
	}
	if dispatcher.calls != 1 {
		t.Errorf("dispatcher calls = %d, want 1", dispatcher.calls)
	}

	// No poller configured: the funding sync task is a no-op, not an error.
	if err := worker.handleFundingSync(context.Background(), NewFundingSyncTask()); err != nil {
		t.Fatalf("handle funding sync without poller: %v", err)
	}
}
