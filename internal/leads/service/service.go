// Package service implements the lead conversion pipeline orchestration:
// loading the aggregate, applying a domain operation, persisting under
// compare-and-swap, and emitting history and events for every accepted
// mutation.
package service

import (
	"context"
	"fmt"
	"time"

	"trainhub_backend/internal/events"
	"trainhub_backend/internal/leads/domain"
	"trainhub_backend/internal/leads/repository"
	"trainhub_backend/internal/leads/scoring"
	"trainhub_backend/platform/apperr"
	"trainhub_backend/platform/config"
	"trainhub_backend/platform/logger"
	"trainhub_backend/platform/phone"
	"trainhub_backend/platform/sanitize"

	"github.com/google/uuid"
)

// maxSaveRetries bounds how many times a mutation is replayed from a fresh
// read after losing the compare-and-swap on the version column.
const maxSaveRetries = 3

// CompliancePort is the seam to the funding-compliance module. The concrete
// implementation is wired in the composition root to avoid a package cycle.
type CompliancePort interface {
	// OpenRecord starts the compliance ledger for a signed third-party lead.
	OpenRecord(ctx context.Context, leadID, tenantID uuid.UUID) (uuid.UUID, error)
	// IsBillableLead reports whether the lead's record cleared the billable gate.
	IsBillableLead(ctx context.Context, leadID, tenantID uuid.UUID) (bool, error)
}

// Actor identifies who performed an operation, for the activity log.
type Actor struct {
	Type string
	Name string
}

// SystemActor is used for scheduler-driven mutations.
var SystemActor = Actor{Type: "system", Name: "scheduler"}

type Service struct {
	repo       repository.LeadsRepository
	scorer     *scoring.Service
	compliance CompliancePort
	storage    StoragePort
	bus        events.Bus
	log        *logger.Logger

	followUpThreshold    int
	placementTestMinimum int
}

func New(
	repo repository.LeadsRepository,
	scorer *scoring.Service,
	compliance CompliancePort,
	storage StoragePort,
	bus events.Bus,
	log *logger.Logger,
	cfg config.PipelineConfig,
) *Service {
	return &Service{
		repo:                 repo,
		scorer:               scorer,
		compliance:           compliance,
		storage:              storage,
		bus:                  bus,
		log:                  log,
		followUpThreshold:    cfg.GetFollowUpThreshold(),
		placementTestMinimum: cfg.GetPlacementTestMinimum(),
	}
}

// CreateLeadInput carries intake data for a new lead.
type CreateLeadInput struct {
	FirstName  string
	LastName   string
	Email      *string
	Phone      string
	SalesStage *domain.SalesStage
	Metadata   map[string]any
}

// Create registers a new lead at the pipeline entry. The phone number is
// normalized to E.164 and used for duplicate detection within the tenant.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, input CreateLeadInput, actor Actor) (domain.Lead, error) {
	normalized := phone.NormalizeE164(input.Phone)
	if normalized == "" {
		return domain.Lead{}, apperr.Validation("phone number is required")
	}

	// Intake fields come from public web forms; strip any markup before the
	// names land in history titles and notification emails.
	input.FirstName = sanitize.Text(input.FirstName)
	input.LastName = sanitize.Text(input.LastName)
	if input.FirstName == "" || input.LastName == "" {
		return domain.Lead{}, apperr.Validation("first and last name are required")
	}

	if existing, err := s.repo.GetByPhone(ctx, normalized, tenantID); err == nil {
		return domain.Lead{}, apperr.Conflict("a lead with this phone number already exists").
			WithDetails(map[string]string{"existingLeadId": existing.ID.String()})
	} else if apperr.GetKind(err) != apperr.KindNotFound {
		return domain.Lead{}, err
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		OrganizationID: tenantID,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		Phone:          normalized,
		SalesStage:     input.SalesStage,
		Metadata:       input.Metadata,
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.appendHistory(ctx, lead, actor, "lead_created", "Lead created",
		fmt.Sprintf("%s %s entered the pipeline", lead.FirstName, lead.LastName), nil)

	email := ""
	if lead.Email != nil {
		email = *lead.Email
	}
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  lead.OrganizationID,
		FirstName: lead.FirstName,
		LastName:  lead.LastName,
		Phone:     lead.Phone,
		Email:     email,
	})
	return lead, nil
}

// GetByID loads a single lead.
func (s *Service) GetByID(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Lead, error) {
	return s.repo.GetByID(ctx, leadID, tenantID)
}

// List returns the tenant's leads in triage order.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, status *domain.Status, limit, offset int) ([]domain.Lead, error) {
	return s.repo.List(ctx, tenantID, status, limit, offset)
}

// History returns the lead's full activity log.
func (s *Service) History(ctx context.Context, leadID, tenantID uuid.UUID) ([]repository.HistoryEntry, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, leadID, tenantID)
}

// IsBillable reports whether the engagement can be invoiced. Self-funded
// leads carry no compliance record: they are billable once Signed. Only the
// third-party branch defers to the funding-compliance gate.
func (s *Service) IsBillable(ctx context.Context, leadID, tenantID uuid.UUID) (bool, error) {
	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		return false, err
	}
	if lead.Financing == nil || lead.Financing.Type != domain.FinancingThirdParty {
		return lead.Status == domain.StatusSigned, nil
	}
	return s.compliance.IsBillableLead(ctx, leadID, tenantID)
}

// mutate loads the lead, applies fn, and saves under compare-and-swap. A lost
// race is replayed from a fresh read so fn re-validates against current state;
// after maxSaveRetries the conflict surfaces to the caller.
func (s *Service) mutate(ctx context.Context, leadID, tenantID uuid.UUID, op string, fn func(*domain.Lead) *apperr.Error) (domain.Lead, domain.Status, error) {
	var lastErr error
	for attempt := 0; attempt < maxSaveRetries; attempt++ {
		lead, err := s.repo.GetByID(ctx, leadID, tenantID)
		if err != nil {
			return domain.Lead{}, "", err
		}
		before := lead.Status

		if derr := fn(&lead); derr != nil {
			s.log.TransitionRejected(leadID.String(), string(before), op, derr.Message)
			return domain.Lead{}, "", derr
		}

		if err := s.repo.Save(ctx, &lead); err != nil {
			if apperr.GetKind(err) == apperr.KindConflict {
				lastErr = err
				continue
			}
			return domain.Lead{}, "", err
		}

		if lead.Status != before {
			s.log.Transition(leadID.String(), string(before), string(lead.Status), op)
			s.bus.Publish(ctx, events.LeadStatusChanged{
				BaseEvent: events.NewBaseEvent(),
				LeadID:    lead.ID,
				TenantID:  lead.OrganizationID,
				OldStatus: string(before),
				NewStatus: string(lead.Status),
				Operation: op,
			})
		}
		return lead, before, nil
	}
	return domain.Lead{}, "", lastErr
}

// appendHistory records an activity-log entry. History is secondary to the
// aggregate write: a failed append is logged, never surfaced.
func (s *Service) appendHistory(ctx context.Context, lead domain.Lead, actor Actor, eventType, title, summary string, metadata map[string]any) {
	_, err := s.repo.AppendHistory(ctx, repository.AppendHistoryParams{
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		ActorType:      actor.Type,
		ActorName:      actor.Name,
		EventType:      eventType,
		Title:          title,
		Summary:        repository.TruncateSummary(summary, repository.HistorySummaryMaxLen),
		Metadata:       metadata,
	})
	if err != nil {
		s.log.DatabaseError("leads.append_history", err)
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
