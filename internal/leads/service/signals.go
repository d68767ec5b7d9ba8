package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"trainhub_backend/internal/events"
	"trainhub_backend/internal/leads/repository"
	"trainhub_backend/internal/leads/scoring"
	"trainhub_backend/platform/apperr"

	"github.com/google/uuid"
)

// StoragePort is the object-storage seam for dossier documents. The MinIO
// adapter implements it.
type StoragePort interface {
	Upload(ctx context.Context, objectKey, contentType string, size int64, body io.Reader) error
	PresignedGetURL(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
}

// RecordSignal appends a behavioral signal and recomputes the triage score.
func (s *Service) RecordSignal(ctx context.Context, leadID, tenantID uuid.UUID, signalType string, occurredAt time.Time) (*scoring.Result, error) {
	if !scoring.IsKnownSignalType(scoring.SignalType(signalType)) {
		return nil, apperr.InvalidArgument(fmt.Sprintf("unknown signal type %q", signalType))
	}
	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	if occurredAt.IsZero() {
		occurredAt = nowUTC()
	}

	if _, err := s.repo.InsertSignal(ctx, repository.InsertSignalParams{
		LeadID:         leadID,
		OrganizationID: tenantID,
		Type:           signalType,
		OccurredAt:     occurredAt,
	}); err != nil {
		return nil, err
	}
	// The freshness bonus keys off last_response_at, so the signal has to
	// land on the lead row before the rescore below reads it.
	if err := s.repo.TouchLastResponse(ctx, leadID, tenantID, occurredAt); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.LeadSignalRecorded{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		TenantID:   tenantID,
		SignalType: signalType,
		SignalAt:   occurredAt,
	})

	result, err := s.scorer.Recalculate(ctx, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	if result.Score != lead.Score {
		s.bus.Publish(ctx, events.LeadScoreRecalculated{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			TenantID:  tenantID,
			OldScore:  lead.Score,
			NewScore:  result.Score,
			Version:   result.Version,
		})
	}
	return result, nil
}

// Signals returns the lead's behavioral signal history.
func (s *Service) Signals(ctx context.Context, leadID, tenantID uuid.UUID) ([]repository.SignalRow, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		return nil, err
	}
	return s.repo.ListSignals(ctx, leadID, tenantID)
}

// RecalculateScore recomputes the triage score from the stored signal history.
func (s *Service) RecalculateScore(ctx context.Context, leadID, tenantID uuid.UUID) (*scoring.Result, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		return nil, err
	}
	return s.scorer.Recalculate(ctx, leadID, tenantID)
}

// AddAttachmentInput carries an uploaded funding-dossier document.
type AddAttachmentInput struct {
	FileName    string
	ContentType string
	SizeBytes   int64
	Body        io.Reader
	UploadedBy  uuid.UUID
}

// AddAttachment stores a dossier document in object storage and records its
// metadata.
func (s *Service) AddAttachment(ctx context.Context, leadID, tenantID uuid.UUID, input AddAttachmentInput, actor Actor) (repository.Attachment, error) {
	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		return repository.Attachment{}, err
	}

	objectKey := fmt.Sprintf("%s/%s/%s_%s", tenantID, leadID, uuid.New(), input.FileName)
	if err := s.storage.Upload(ctx, objectKey, input.ContentType, input.SizeBytes, input.Body); err != nil {
		return repository.Attachment{}, err
	}

	att, err := s.repo.InsertAttachment(ctx, repository.InsertAttachmentParams{
		LeadID:         leadID,
		OrganizationID: tenantID,
		FileName:       input.FileName,
		ContentType:    input.ContentType,
		SizeBytes:      input.SizeBytes,
		ObjectKey:      objectKey,
		UploadedBy:     input.UploadedBy,
	})
	if err != nil {
		return repository.Attachment{}, err
	}

	s.appendHistory(ctx, lead, actor, "dossier_document_added", "Dossier document added",
		input.FileName, map[string]any{"attachmentId": att.ID.String()})
	s.bus.Publish(ctx, events.DossierAttachmentUploaded{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		TenantID:     tenantID,
		AttachmentID: att.ID,
		FileName:     att.FileName,
		FileKey:      att.ObjectKey,
		ContentType:  att.ContentType,
		SizeBytes:    att.SizeBytes,
	})
	return att, nil
}

// Attachments returns the lead's dossier document metadata.
func (s *Service) Attachments(ctx context.Context, leadID, tenantID uuid.UUID) ([]repository.Attachment, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		return nil, err
	}
	return s.repo.ListAttachments(ctx, leadID, tenantID)
}

// AttachmentURL returns a short-lived download link for a dossier document.
func (s *Service) AttachmentURL(ctx context.Context, leadID, attachmentID, tenantID uuid.UUID) (string, error) {
	attachments, err := s.Attachments(ctx, leadID, tenantID)
	if err != nil {
		return "", err
	}
	for _, att := range attachments {
		if att.ID == attachmentID {
			return s.storage.PresignedGetURL(ctx, att.ObjectKey, 15*time.Minute)
		}
	}
	return "", apperr.NotFound("attachment not found")
}
