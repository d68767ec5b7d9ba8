package service

import (
	"context"
	"time"

	"trainhub_backend/internal/events"
	"trainhub_backend/internal/funding/domain"
	"trainhub_backend/internal/funding/repository"
	"trainhub_backend/platform/apperr"
	"trainhub_backend/platform/logger"

	"github.com/google/uuid"
)

// maxAdvanceRetries bounds how many times a stage advance is replayed from a
// fresh read after losing a write race.
const maxAdvanceRetries = 3

type Service struct {
	repo repository.ComplianceRepository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.ComplianceRepository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Open creates the compliance record for a lead that reached the signed
// terminal on the third-party funding path. The record starts at RECEIVED.
func (s *Service) Open(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Record, error) {
	record := domain.NewRecord(leadID, tenantID, time.Now().UTC())

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return domain.Record{}, err
	}

	s.bus.Publish(ctx, events.ComplianceRecordOpened{
		BaseEvent: events.NewBaseEvent(),
		RecordID:  created.ID,
		LeadID:    created.LeadID,
		TenantID:  created.OrganizationID,
	})
	return created, nil
}

// AdvanceStage moves a record exactly one stage forward. A lost write race is
// replayed from a fresh read up to maxAdvanceRetries times; if the race winner
// already took the target stage the replay surfaces the illegal transition.
func (s *Service) AdvanceStage(ctx context.Context, recordID, tenantID uuid.UUID, target domain.Stage) (domain.Record, error) {
	var lastErr error
	for attempt := 0; attempt < maxAdvanceRetries; attempt++ {
		record, err := s.repo.GetByID(ctx, recordID, tenantID)
		if err != nil {
			return domain.Record{}, err
		}
		expected := record.CurrentStage
		wasBillable := record.IsBillable()

		if derr := record.Advance(target, time.Now().UTC()); derr != nil {
			s.log.Warn("compliance_advance_rejected",
				"record_id", recordID.String(),
				"current_stage", string(expected),
				"target_stage", string(target),
			)
			return domain.Record{}, derr
		}

		if err := s.repo.Save(ctx, &record, expected); err != nil {
			if apperr.GetKind(err) == apperr.KindConflict {
				lastErr = err
				continue
			}
			return domain.Record{}, err
		}

		s.log.ComplianceAdvance(recordID.String(), string(expected), string(record.CurrentStage))
		s.bus.Publish(ctx, events.ComplianceStageAdvanced{
			BaseEvent: events.NewBaseEvent(),
			RecordID:  record.ID,
			LeadID:    record.LeadID,
			TenantID:  record.OrganizationID,
			OldStage:  string(expected),
			NewStage:  string(record.CurrentStage),
		})
		if !wasBillable && record.IsBillable() {
			s.bus.Publish(ctx, events.ComplianceRecordBillable{
				BaseEvent: events.NewBaseEvent(),
				RecordID:  record.ID,
				LeadID:    record.LeadID,
				TenantID:  record.OrganizationID,
				Stage:     string(record.CurrentStage),
			})
		}
		return record, nil
	}
	return domain.Record{}, lastErr
}

// GetByID loads a single compliance record.
func (s *Service) GetByID(ctx context.Context, recordID, tenantID uuid.UUID) (domain.Record, error) {
	return s.repo.GetByID(ctx, recordID, tenantID)
}

// GetByLeadID loads the compliance record attached to a lead.
func (s *Service) GetByLeadID(ctx context.Context, leadID, tenantID uuid.UUID) (domain.Record, error) {
	return s.repo.GetByLeadID(ctx, leadID, tenantID)
}

// List returns an organization's compliance records, optionally by stage.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, stage *domain.Stage, limit, offset int) ([]domain.Record, error) {
	return s.repo.List(ctx, tenantID, stage, limit, offset)
}

// IsBillable reports whether a record has cleared the billable gate.
func (s *Service) IsBillable(ctx context.Context, recordID, tenantID uuid.UUID) (bool, error) {
	record, err := s.repo.GetByID(ctx, recordID, tenantID)
	if err != nil {
		return false, err
	}
	return record.IsBillable(), nil
}

// IsBillableLead reports the billable gate for the record attached to a lead.
// A lead without a compliance record is not billable.
func (s *Service) IsBillableLead(ctx context.Context, leadID, tenantID uuid.UUID) (bool, error) {
	record, err := s.repo.GetByLeadID(ctx, leadID, tenantID)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return false, nil
		}
		return false, err
	}
	return record.IsBillable(), nil
}
