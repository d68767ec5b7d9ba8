package scheduler

import (
	"context"
	"time"

	"trainhub_backend/platform/config"
	"trainhub_backend/platform/logger"
)

// Periodic enqueues the recurring tasks on their intervals. It runs next to
// the worker so a single scheduler process both produces and consumes.
type Periodic struct {
	client        *Client
	sweepEvery    time.Duration
	dispatchEvery time.Duration
	syncEvery     time.Duration
	syncEnabled   bool
	log           *logger.Logger
}

func NewPeriodic(client *Client, cfg config.SchedulerConfig, sync config.FundingSyncConfig, log *logger.Logger) *Periodic {
	sweepEvery := cfg.GetFollowUpSweepInterval()
	if sweepEvery <= 0 {
		sweepEvery = 15 * time.Minute
	}
	dispatchEvery := cfg.GetNotificationDispatchInterval()
	if dispatchEvery <= 0 {
		dispatchEvery = 30 * time.Second
	}
	syncEvery := sync.GetFundingSyncInterval()
	if syncEvery <= 0 {
		syncEvery = 15 * time.Minute
	}

	return &Periodic{
		client:        client,
		sweepEvery:    sweepEvery,
		dispatchEvery: dispatchEvery,
		syncEvery:     syncEvery,
		syncEnabled:   sync.IsFundingSyncEnabled(),
		log:           log,
	}
}

func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.client == nil {
		return
	}

	sweep := time.NewTicker(p.sweepEvery)
	defer sweep.Stop()
	dispatch := time.NewTicker(p.dispatchEvery)
	defer dispatch.Stop()
	sync := time.NewTicker(p.syncEvery)
	defer sync.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-sweep.C:
			err := p.client.ScheduleFollowUpSweep(ctx, FollowUpSweepPayload{
				ScheduledFor: now.UTC(),
				Limit:        defaultSweepLimit,
			}, now.UTC())
			if err != nil {
				p.log.Warn("follow_up_sweep_enqueue_failed", "error", err)
			}
		case <-dispatch.C:
			if err := p.client.EnqueueNotificationDispatch(ctx); err != nil {
				p.log.Warn("notification_dispatch_enqueue_failed", "error", err)
			}
		case <-sync.C:
			if !p.syncEnabled {
				continue
			}
			if err := p.client.EnqueueFundingSync(ctx); err != nil {
				p.log.Warn("funding_sync_enqueue_failed", "error", err)
			}
		}
	}
}
