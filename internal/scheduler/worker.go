package scheduler

import (
	"context"
	"fmt"
	"time"

	"trainhub_backend/platform/config"
	"trainhub_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultSweepLimit = 200

// LeadSweeper drives stalled leads through an automatic follow-up touch.
type LeadSweeper interface {
	SweepStalled(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

// OutboxDispatcher drains due notification outbox messages.
type OutboxDispatcher interface {
	DispatchDue(ctx context.Context, now time.Time) (int, error)
}

// FundingPoller pulls stage reports from the funding body.
type FundingPoller interface {
	Poll(ctx context.Context) (int, error)
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	sweeper    LeadSweeper
	dispatcher OutboxDispatcher
	poller     FundingPoller
	stallAfter time.Duration
	log        *logger.Logger
}

// NewWorker builds the asynq consumer. The poller may be nil when no funding
// body is configured; the funding sync task then becomes a no-op.
func NewWorker(cfg config.SchedulerConfig, pipeline config.PipelineConfig, sweeper LeadSweeper, dispatcher OutboxDispatcher, poller FundingPoller, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{
		server:     server,
		mux:        asynq.NewServeMux(),
		sweeper:    sweeper,
		dispatcher: dispatcher,
		poller:     poller,
		stallAfter: pipeline.GetFollowUpStallAfter(),
		log:        log,
	}

	w.mux.HandleFunc(TaskFollowUpSweep, w.handleFollowUpSweep)
	w.mux.HandleFunc(TaskNotificationDispatch, w.handleNotificationDispatch)
	w.mux.HandleFunc(TaskFundingSync, w.handleFundingSync)

	return w, nil
}

func (w *Worker) handleFollowUpSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpSweepPayload(task)
	if err != nil {
		return err
	}

	scheduledFor := payload.ScheduledFor
	if scheduledFor.IsZero() {
		scheduledFor = time.Now().UTC()
	}
	limit := payload.Limit
	if limit < 1 {
		limit = defaultSweepLimit
	}

	cutoff := scheduledFor.Add(-w.stallAfter)
	touched, err := w.sweeper.SweepStalled(ctx, cutoff, limit)
	if err != nil {
		return err
	}
	if touched > 0 {
		w.log.Info("follow_up_sweep_done", "touched", touched, "cutoff", cutoff)
	}
	return nil
}

func (w *Worker) handleNotificationDispatch(ctx context.Context, task *asynq.Task) error {
	delivered, err := w.dispatcher.DispatchDue(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if delivered > 0 {
		w.log.Info("notification_dispatch_done", "delivered", delivered)
	}
	return nil
}

func (w *Worker) handleFundingSync(ctx context.Context, task *asynq.Task) error {
	if w.poller == nil {
		return nil
	}
	applied, err := w.poller.Poll(ctx)
	if err != nil {
		return err
	}
	if applied > 0 {
		w.log.Info("funding_sync_done", "applied", applied)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
