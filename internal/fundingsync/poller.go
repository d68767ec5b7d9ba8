package fundingsync

import (
	"context"
	"sort"
	"time"

	funding "trainhub_backend/internal/funding/domain"
	"trainhub_backend/platform/apperr"
	"trainhub_backend/platform/logger"

	"github.com/google/uuid"
)

// ComplianceService is the slice of the funding module the poller drives.
type ComplianceService interface {
	GetByLeadID(ctx context.Context, leadID, tenantID uuid.UUID) (funding.Record, error)
	AdvanceStage(ctx context.Context, recordID, tenantID uuid.UUID, target funding.Stage) (funding.Record, error)
}

// ReportFetcher abstracts the funding-body client for tests.
type ReportFetcher interface {
	FetchReports(ctx context.Context, since time.Time) ([]StageReport, error)
}

// Poller applies funding-body stage reports to local compliance records.
// Reports behind the local ledger are stale and skipped; reports ahead of it
// are caught up one stage at a time so every milestone gets stamped.
type Poller struct {
	fetcher    ReportFetcher
	compliance ComplianceService
	log        *logger.Logger
	since      time.Time
}

// initialLookback bounds the first poll after a restart.
const initialLookback = 24 * time.Hour

func NewPoller(fetcher ReportFetcher, compliance ComplianceService, log *logger.Logger) *Poller {
	return &Poller{
		fetcher:    fetcher,
		compliance: compliance,
		log:        log,
		since:      time.Now().UTC().Add(-initialLookback),
	}
}

// Poll fetches pending reports and applies them. Returns how many reports
// resulted in at least one stage advance.
func (p *Poller) Poll(ctx context.Context) (int, error) {
	reports, err := p.fetcher.FetchReports(ctx, p.since)
	if err != nil {
		return 0, err
	}
	if len(reports) == 0 {
		return 0, nil
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ReportedAt.Before(reports[j].ReportedAt)
	})

	applied := 0
	for _, report := range reports {
		if report.ReportedAt.After(p.since) {
			p.since = report.ReportedAt
		}
		ok, err := p.apply(ctx, report)
		if err != nil {
			p.log.Warn("funding_sync_report_skipped",
				"lead_id", report.LeadID,
				"stage", report.Stage,
				"error", err,
			)
			continue
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}

// apply folds one report into the ledger. The bool return reports whether any
// stage advanced.
func (p *Poller) apply(ctx context.Context, report StageReport) (bool, error) {
	target := funding.Stage(report.Stage)
	if !funding.IsKnownStage(target) {
		return false, apperr.InvalidArgument("unknown funding stage " + report.Stage)
	}

	record, err := p.compliance.GetByLeadID(ctx, report.LeadID, report.OrganizationID)
	if err != nil {
		return false, err
	}

	current := funding.Index(record.CurrentStage)
	reported := funding.Index(target)
	if reported <= current {
		// Stale or duplicate report; the ledger never moves backwards.
		p.log.Info("funding_sync_report_stale",
			"lead_id", report.LeadID,
			"current_stage", record.CurrentStage,
			"reported_stage", target,
		)
		return false, nil
	}

	for record.CurrentStage != target {
		next, ok := funding.Next(record.CurrentStage)
		if !ok {
			break
		}
		// Stages between the ledger position and the reported one were
		// never reported themselves; flag their milestones as inferred so
		// the audit trail distinguishes them from reported ones.
		if next != target {
			p.log.Info("funding_sync_milestone_inferred",
				"lead_id", report.LeadID,
				"stage", next,
				"reported_stage", target,
			)
		}
		record, err = p.compliance.AdvanceStage(ctx, record.ID, report.OrganizationID, next)
		if err != nil {
			return false, err
		}
	}
	return true, nil
}
