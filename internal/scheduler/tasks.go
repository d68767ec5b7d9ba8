// Package scheduler runs the pipeline's background work on asynq: the stalled
// lead follow-up sweep, the notification outbox dispatch, and the funding-body
// stage sync.
package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskFollowUpSweep        = "leads.followup.sweep"
	TaskNotificationDispatch = "notification.dispatch"
	TaskFundingSync          = "funding.sync"
)

// FollowUpSweepPayload names the moment the sweep was scheduled for. The
// handler derives the staleness cutoff from it so a task replayed after a
// delay still sweeps the window it was meant to.
type FollowUpSweepPayload struct {
	ScheduledFor time.Time `json:"scheduledFor"`
	Limit        int       `json:"limit"`
}

func NewFollowUpSweepTask(payload FollowUpSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowUpSweep, data), nil
}

func ParseFollowUpSweepPayload(task *asynq.Task) (FollowUpSweepPayload, error) {
	var payload FollowUpSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return FollowUpSweepPayload{}, err
	}
	return payload, nil
}

func NewNotificationDispatchTask() *asynq.Task {
	return asynq.NewTask(TaskNotificationDispatch, nil)
}

func NewFundingSyncTask() *asynq.Task {
	return asynq.NewTask(TaskFundingSync, nil)
}
