package notification

import (
	"trainhub_backend/internal/email"
	"trainhub_backend/internal/events"
	"trainhub_backend/internal/notification/outbox"
	"trainhub_backend/platform/config"
	"trainhub_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the notification outbox pipeline. It has no HTTP surface; it
// listens on the event bus and is drained by the scheduler's dispatch task.
type Module struct {
	Service *Service
	Outbox  *outbox.Repository
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, directory LeadDirectory, sender email.Sender, log *logger.Logger, cfg config.NotificationConfig) *Module {
	repo := outbox.New(pool)
	svc := New(repo, directory, sender, log, cfg.GetNotifyInboxAddress())
	svc.Subscribe(bus)

	return &Module{
		Service: svc,
		Outbox:  repo,
	}
}

func (m *Module) Name() string { return "notification" }
