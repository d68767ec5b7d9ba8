package service

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"trainhub_backend/internal/events"
	"trainhub_backend/internal/leads/domain"
	"trainhub_backend/internal/leads/repository"
	"trainhub_backend/internal/leads/scoring"
	"trainhub_backend/platform/apperr"
	"trainhub_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type fakeRepo struct {
	leads       map[uuid.UUID]domain.Lead
	history     []repository.HistoryEntry
	signals     map[uuid.UUID][]repository.SignalRow
	attachments map[uuid.UUID][]repository.Attachment

	// spuriousConflicts fails the next N Save calls with a conflict so the
	// orchestrator's retry path is exercised.
	spuriousConflicts int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:       make(map[uuid.UUID]domain.Lead),
		signals:     make(map[uuid.UUID][]repository.SignalRow),
		attachments: make(map[uuid.UUID][]repository.Attachment),
	}
}

func cloneLead(lead domain.Lead) domain.Lead {
	out := lead
	if lead.Financing != nil {
		fin := *lead.Financing
		if fin.SelfFunded != nil {
			sf := *fin.SelfFunded
			fin.SelfFunded = &sf
		}
		if fin.ThirdParty != nil {
			tp := *fin.ThirdParty
			fin.ThirdParty = &tp
		}
		out.Financing = &fin
	}
	if lead.Metadata != nil {
		meta := make(map[string]any, len(lead.Metadata))
		for k, v := range lead.Metadata {
			meta[k] = v
		}
		out.Metadata = meta
	}
	return out
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateLeadParams) (domain.Lead, error) {
	now := time.Now().UTC()
	lead := domain.Lead{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		FirstName:      params.FirstName,
		LastName:       params.LastName,
		Email:          params.Email,
		Phone:          params.Phone,
		Status:         domain.StatusProspect,
		SalesStage:     params.SalesStage,
		Metadata:       params.Metadata,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.leads[lead.ID] = cloneLead(lead)
	return lead, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id, tenantID uuid.UUID) (domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok || lead.OrganizationID != tenantID {
		return domain.Lead{}, apperr.NotFound("lead not found")
	}
	return cloneLead(lead), nil
}

func (f *fakeRepo) GetByPhone(_ context.Context, phone string, tenantID uuid.UUID) (domain.Lead, error) {
	for _, lead := range f.leads {
		if lead.Phone == phone && lead.OrganizationID == tenantID {
			return cloneLead(lead), nil
		}
	}
	return domain.Lead{}, apperr.NotFound("lead not found")
}

func (f *fakeRepo) List(_ context.Context, tenantID uuid.UUID, status *domain.Status, _, _ int) ([]domain.Lead, error) {
	var out []domain.Lead
	for _, lead := range f.leads {
		if lead.OrganizationID != tenantID {
			continue
		}
		if status != nil && lead.Status != *status {
			continue
		}
		out = append(out, cloneLead(lead))
	}
	return out, nil
}

func (f *fakeRepo) Save(_ context.Context, lead *domain.Lead) error {
	stored, ok := f.leads[lead.ID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if f.spuriousConflicts > 0 {
		f.spuriousConflicts--
		return apperr.Conflict("lead was modified concurrently")
	}
	if stored.Version != lead.Version {
		return apperr.Conflict("lead was modified concurrently")
	}
	lead.Version++
	f.leads[lead.ID] = cloneLead(*lead)
	return nil
}

func (f *fakeRepo) UpdateScore(_ context.Context, leadID, tenantID uuid.UUID, score int, _ []byte, _ string) error {
	lead, ok := f.leads[leadID]
	if !ok || lead.OrganizationID != tenantID {
		return apperr.NotFound("lead not found")
	}
	lead.Score = score
	f.leads[leadID] = lead
	return nil
}

func (f *fakeRepo) ListStalled(_ context.Context, cutoff time.Time, limit int) ([]domain.Lead, error) {
	var out []domain.Lead
	for _, lead := range f.leads {
		if domain.IsCallable(lead.Status) && lead.UpdatedAt.Before(cutoff) {
			out = append(out, cloneLead(lead))
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeRepo) AppendHistory(_ context.Context, params repository.AppendHistoryParams) (repository.HistoryEntry, error) {
	entry := repository.HistoryEntry{
		ID:             uuid.New(),
		LeadID:         params.LeadID,
		OrganizationID: params.OrganizationID,
		ActorType:      params.ActorType,
		ActorName:      params.ActorName,
		EventType:      params.EventType,
		Title:          params.Title,
		Summary:        params.Summary,
		Metadata:       params.Metadata,
		CreatedAt:      time.Now().UTC(),
	}
	f.history = append(f.history, entry)
	return entry, nil
}

func (f *fakeRepo) ListHistory(_ context.Context, leadID, tenantID uuid.UUID) ([]repository.HistoryEntry, error) {
	var out []repository.HistoryEntry
	for _, entry := range f.history {
		if entry.LeadID == leadID && entry.OrganizationID == tenantID {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertSignal(_ context.Context, params repository.InsertSignalParams) (repository.SignalRow, error) {
	row := repository.SignalRow{
		ID:             uuid.New(),
		LeadID:         params.LeadID,
		OrganizationID: params.OrganizationID,
		Type:           params.Type,
		OccurredAt:     params.OccurredAt,
		CreatedAt:      time.Now().UTC(),
	}
	f.signals[params.LeadID] = append(f.signals[params.LeadID], row)
	return row, nil
}

func (f *fakeRepo) TouchLastResponse(_ context.Context, leadID, tenantID uuid.UUID, at time.Time) error {
	lead, ok := f.leads[leadID]
	if !ok || lead.OrganizationID != tenantID {
		return apperr.NotFound("lead not found")
	}
	if lead.LastResponseAt == nil || lead.LastResponseAt.Before(at) {
		lead.LastResponseAt = &at
		f.leads[leadID] = lead
	}
	return nil
}

func (f *fakeRepo) ListSignals(_ context.Context, leadID, tenantID uuid.UUID) ([]repository.SignalRow, error) {
	var out []repository.SignalRow
	for _, row := range f.signals[leadID] {
		if row.OrganizationID == tenantID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeRepo) InsertAttachment(_ context.Context, params repository.InsertAttachmentParams) (repository.Attachment, error) {
	att := repository.Attachment{
		ID:             uuid.New(),
		LeadID:         params.LeadID,
		OrganizationID: params.OrganizationID,
		FileName:       params.FileName,
		ContentType:    params.ContentType,
		SizeBytes:      params.SizeBytes,
		ObjectKey:      params.ObjectKey,
		UploadedBy:     params.UploadedBy,
		CreatedAt:      time.Now().UTC(),
	}
	f.attachments[params.LeadID] = append(f.attachments[params.LeadID], att)
	return att, nil
}

func (f *fakeRepo) ListAttachments(_ context.Context, leadID, tenantID uuid.UUID) ([]repository.Attachment, error) {
	var out []repository.Attachment
	for _, att := range f.attachments[leadID] {
		if att.OrganizationID == tenantID {
			out = append(out, att)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountAttachments(_ context.Context, leadID, tenantID uuid.UUID) (int, error) {
	atts, _ := f.ListAttachments(context.Background(), leadID, tenantID)
	return len(atts), nil
}

var _ repository.LeadsRepository = (*fakeRepo)(nil)

type fakeCompliance struct {
	opened   map[uuid.UUID]uuid.UUID
	billable map[uuid.UUID]bool
}

func (f *fakeCompliance) OpenRecord(_ context.Context, leadID, _ uuid.UUID) (uuid.UUID, error) {
	if f.opened == nil {
		f.opened = make(map[uuid.UUID]uuid.UUID)
	}
	id := uuid.New()
	f.opened[leadID] = id
	return id, nil
}

// A freshly opened record sits at the first ledger stage, which is not
// billable; tests flip markBillable to simulate service validation.
func (f *fakeCompliance) IsBillableLead(_ context.Context, leadID, _ uuid.UUID) (bool, error) {
	return f.billable[leadID], nil
}

func (f *fakeCompliance) markBillable(leadID uuid.UUID) {
	if f.billable == nil {
		f.billable = make(map[uuid.UUID]bool)
	}
	f.billable[leadID] = true
}

type fakeStorage struct {
	objects map[string][]byte
}

func (f *fakeStorage) Upload(_ context.Context, objectKey, _ string, _ int64, body io.Reader) error {
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[objectKey] = data
	return nil
}

func (f *fakeStorage) PresignedGetURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://storage.local/" + objectKey, nil
}

type testPipelineConfig struct{}

func (testPipelineConfig) GetFollowUpThreshold() int            { return 5 }
func (testPipelineConfig) GetPlacementTestMinimum() int         { return 50 }
func (testPipelineConfig) GetFollowUpStallAfter() time.Duration { return 72 * time.Hour }

type testEnv struct {
	svc        *Service
	repo       *fakeRepo
	compliance *fakeCompliance
	storage    *fakeStorage
	tenantID   uuid.UUID
	actor      Actor
}

func newTestEnv() *testEnv {
	repo := newFakeRepo()
	compliance := &fakeCompliance{}
	storage := &fakeStorage{}
	log := logger.New("development")
	weights := scoring.Weights{
		Signal: map[scoring.SignalType]int{
			scoring.SignalPageView:        2,
			scoring.SignalFormInteraction: 10,
			scoring.SignalEmailOpen:       3,
			scoring.SignalEmailClick:      5,
			scoring.SignalPricingPageView: 15,
		},
		FreshnessBonus:  10,
		FreshnessWindow: 30 * 24 * time.Hour,
	}
	scorer := scoring.New(repo, weights, log)
	svc := New(repo, scorer, compliance, storage, events.NewInMemoryBus(log), log, testPipelineConfig{})
	return &testEnv{
		svc:        svc,
		repo:       repo,
		compliance: compliance,
		storage:    storage,
		tenantID:   uuid.New(),
		actor:      Actor{Type: "user", Name: "agent"},
	}
}

func (e *testEnv) createLead(t *testing.T, phone string) domain.Lead {
	t.Helper()
	lead, err := e.svc.Create(context.Background(), e.tenantID, CreateLeadInput{
		FirstName: "Marie",
		LastName:  "Laurent",
		Phone:     phone,
	}, e.actor)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return lead
}

// driveTo walks a lead through statuses without domain shortcuts.
func (e *testEnv) driveTo(t *testing.T, leadID uuid.UUID, path ...domain.Status) domain.Lead {
	t.Helper()
	var lead domain.Lead
	var err error
	for _, status := range path {
		lead, err = e.svc.ChangeStatus(context.Background(), leadID, e.tenantID, status, e.actor)
		if err != nil {
			t.Fatalf("ChangeStatus(%s) failed: %v", status, err)
		}
	}
	return lead
}

func TestCreateNormalizesPhoneAndRejectsDuplicates(t *testing.T) {
	e := newTestEnv()

	lead := e.createLead(t, "06 12 34 56 78")
	if lead.Phone != "+33612345678" {
		t.Fatalf("expected normalized phone, got %s", lead.Phone)
	}
	if lead.Status != domain.StatusProspect {
		t.Fatalf("new lead must start as Prospect, got %s", lead.Status)
	}

	_, err := e.svc.Create(context.Background(), e.tenantID, CreateLeadInput{
		FirstName: "Marie",
		LastName:  "Laurent",
		Phone:     "+33612345678",
	}, e.actor)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict for duplicate phone, got %v", err)
	}
}

func TestChangeStatusValidatesTransitions(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")

	updated, err := e.svc.ChangeStatus(context.Background(), lead.ID, e.tenantID, domain.StatusContacted, e.actor)
	if err != nil {
		t.Fatalf("ChangeStatus failed: %v", err)
	}
	if updated.Status != domain.StatusContacted {
		t.Fatalf("expected Contacted, got %s", updated.Status)
	}

	_, err = e.svc.ChangeStatus(context.Background(), lead.ID, e.tenantID, domain.StatusSigned, e.actor)
	if apperr.GetKind(err) != apperr.KindInvalidState {
		t.Fatalf("expected invalid state for Contacted -> Signed, got %v", err)
	}

	entries, err := e.svc.History(context.Background(), lead.ID, e.tenantID)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	// lead_created + one accepted status change; the rejected one leaves no trace.
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
}

func TestQualifyMeetingNoShowCountsAttempt(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")
	e.driveTo(t, lead.ID, domain.StatusContacted, domain.StatusMeetingScheduled)

	updated, err := e.svc.QualifyMeeting(context.Background(), lead.ID, e.tenantID, false, "did not show up", e.actor)
	if err != nil {
		t.Fatalf("QualifyMeeting failed: %v", err)
	}
	if updated.Status != domain.StatusContacted {
		t.Fatalf("no-show must return to Contacted, got %s", updated.Status)
	}
	if updated.CallAttempts != 1 {
		t.Fatalf("no-show must count an attempt, got %d", updated.CallAttempts)
	}

	e.driveTo(t, lead.ID, domain.StatusMeetingScheduled)
	updated, err = e.svc.QualifyMeeting(context.Background(), lead.ID, e.tenantID, true, "", e.actor)
	if err != nil {
		t.Fatalf("QualifyMeeting(honored) failed: %v", err)
	}
	if updated.Status != domain.StatusQualificationDecision {
		t.Fatalf("honored meeting must reach Qualification_Decision, got %s", updated.Status)
	}
}

func TestFollowUpClosesAtThreshold(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")
	e.driveTo(t, lead.ID, domain.StatusContacted)

	for i := 1; i < 5; i++ {
		updated, closed, err := e.svc.ProcessFollowUp(context.Background(), lead.ID, e.tenantID, "no answer", e.actor)
		if err != nil {
			t.Fatalf("ProcessFollowUp %d failed: %v", i, err)
		}
		if closed {
			t.Fatalf("lead closed prematurely at follow-up %d", i)
		}
		if updated.FollowUpCount != i {
			t.Fatalf("follow-up count = %d, want %d", updated.FollowUpCount, i)
		}
	}

	updated, closed, err := e.svc.ProcessFollowUp(context.Background(), lead.ID, e.tenantID, "no answer", e.actor)
	if err != nil {
		t.Fatalf("final ProcessFollowUp failed: %v", err)
	}
	if !closed || updated.Status != domain.StatusNoAnswer {
		t.Fatalf("expected auto-close as No_Answer, got closed=%v status=%s", closed, updated.Status)
	}

	if _, _, err := e.svc.ProcessFollowUp(context.Background(), lead.ID, e.tenantID, "again", e.actor); apperr.GetKind(err) != apperr.KindInvalidState {
		t.Fatalf("expected invalid state on closed lead, got %v", err)
	}
}

func TestSelfFundedPathToSigned(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")
	e.driveTo(t, lead.ID, domain.StatusContacted, domain.StatusMeetingScheduled,
		domain.StatusQualificationDecision, domain.StatusFinancingPending)

	updated, err := e.svc.ChooseFinancing(context.Background(), lead.ID, e.tenantID,
		domain.FinancingSelfFunded, decimal.NewFromInt(1000), 30, e.actor)
	if err != nil {
		t.Fatalf("ChooseFinancing failed: %v", err)
	}
	if updated.Status != domain.StatusOfferPending {
		t.Fatalf("expected Offer_Pending, got %s", updated.Status)
	}

	// Financing is write-once.
	_, err = e.svc.ChooseFinancing(context.Background(), lead.ID, e.tenantID,
		domain.FinancingThirdParty, decimal.Zero, 0, e.actor)
	if apperr.GetKind(err) != apperr.KindInvalidArgument {
		t.Fatalf("expected invalid argument re-choosing financing, got %v", err)
	}

	// 299 misses the 30% floor of 1000; 300 is the inclusive boundary.
	_, err = e.svc.ValidateOffer(context.Background(), lead.ID, e.tenantID, decimal.NewFromInt(299), e.actor)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error for 299 deposit, got %v", err)
	}
	updated, err = e.svc.ValidateOffer(context.Background(), lead.ID, e.tenantID, decimal.NewFromInt(300), e.actor)
	if err != nil {
		t.Fatalf("ValidateOffer(300) failed: %v", err)
	}
	if updated.Status != domain.StatusPaymentInProgress {
		t.Fatalf("expected Payment_In_Progress, got %s", updated.Status)
	}

	// Not billable until the engagement is signed.
	if billable, err := e.svc.IsBillable(context.Background(), lead.ID, e.tenantID); err != nil || billable {
		t.Fatalf("IsBillable before signing: %v %v", billable, err)
	}

	// The 300 deposit already counts, so 200 leaves 500 outstanding.
	_, signed, err := e.svc.RecordPayment(context.Background(), lead.ID, e.tenantID, decimal.NewFromInt(200), e.actor)
	if err != nil || signed {
		t.Fatalf("partial payment: signed=%v err=%v", signed, err)
	}
	updated, signed, err = e.svc.RecordPayment(context.Background(), lead.ID, e.tenantID, decimal.NewFromInt(500), e.actor)
	if err != nil {
		t.Fatalf("final payment failed: %v", err)
	}
	if !signed || updated.Status != domain.StatusSigned {
		t.Fatalf("expected Signed after full payment, got signed=%v status=%s", signed, updated.Status)
	}

	// Overpayment after signing is rejected.
	if _, _, err := e.svc.RecordPayment(context.Background(), lead.ID, e.tenantID, decimal.NewFromInt(1), e.actor); err == nil {
		t.Fatal("expected payment on signed lead to fail")
	}

	// Self-funded engagements have no compliance record: signing alone
	// clears the billing gate.
	billable, err := e.svc.IsBillable(context.Background(), lead.ID, e.tenantID)
	if err != nil || !billable {
		t.Fatalf("IsBillable after signing: %v %v", billable, err)
	}
	if len(e.compliance.opened) != 0 {
		t.Fatal("self-funded signing must not open a compliance record")
	}
}

func TestThirdPartyPathToSigned(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")
	e.driveTo(t, lead.ID, domain.StatusContacted, domain.StatusMeetingScheduled,
		domain.StatusQualificationDecision, domain.StatusFinancingPending)

	updated, err := e.svc.ChooseFinancing(context.Background(), lead.ID, e.tenantID,
		domain.FinancingThirdParty, decimal.Zero, 0, e.actor)
	if err != nil {
		t.Fatalf("ChooseFinancing failed: %v", err)
	}
	if updated.Status != domain.StatusFundingReview {
		t.Fatalf("expected Funding_Review, got %s", updated.Status)
	}

	// Gates stay closed while the funding account is inactive.
	if _, _, err := e.svc.ValidatePlacementTest(context.Background(), lead.ID, e.tenantID, 80, e.actor); apperr.GetKind(err) != apperr.KindInvalidState {
		t.Fatalf("expected invalid state with inactive account, got %v", err)
	}

	if _, err := e.svc.SetFundingAccountStatus(context.Background(), lead.ID, e.tenantID, true, e.actor); err != nil {
		t.Fatalf("SetFundingAccountStatus failed: %v", err)
	}

	// A failing score flags remediation without disqualifying.
	updated, passed, err := e.svc.ValidatePlacementTest(context.Background(), lead.ID, e.tenantID, 40, e.actor)
	if err != nil || passed {
		t.Fatalf("sub-minimum test: passed=%v err=%v", passed, err)
	}
	if updated.Status != domain.StatusFundingReview {
		t.Fatalf("failing test must not move the lead, got %s", updated.Status)
	}
	if updated.Metadata["remediation_required"] != true {
		t.Fatal("expected remediation_required flag")
	}

	// The file cannot be validated before the test passes.
	if _, err := e.svc.ValidateFundingFile(context.Background(), lead.ID, e.tenantID, e.actor); apperr.GetKind(err) != apperr.KindInvalidState {
		t.Fatalf("expected invalid state before passing test, got %v", err)
	}

	if _, passed, err = e.svc.ValidatePlacementTest(context.Background(), lead.ID, e.tenantID, 65, e.actor); err != nil || !passed {
		t.Fatalf("retake: passed=%v err=%v", passed, err)
	}

	// An empty dossier blocks the final gate.
	if _, err := e.svc.ValidateFundingFile(context.Background(), lead.ID, e.tenantID, e.actor); apperr.GetKind(err) != apperr.KindInvalidState {
		t.Fatalf("expected invalid state with empty dossier, got %v", err)
	}

	if _, err := e.svc.AddAttachment(context.Background(), lead.ID, e.tenantID, AddAttachmentInput{
		FileName:    "funding-agreement.pdf",
		ContentType: "application/pdf",
		SizeBytes:   4,
		Body:        bytes.NewReader([]byte("%PDF")),
		UploadedBy:  uuid.New(),
	}, e.actor); err != nil {
		t.Fatalf("AddAttachment failed: %v", err)
	}

	updated, err = e.svc.ValidateFundingFile(context.Background(), lead.ID, e.tenantID, e.actor)
	if err != nil {
		t.Fatalf("ValidateFundingFile failed: %v", err)
	}
	if updated.Status != domain.StatusSigned {
		t.Fatalf("expected Signed, got %s", updated.Status)
	}
	if _, ok := e.compliance.opened[lead.ID]; !ok {
		t.Fatal("expected a compliance record to be opened")
	}

	// Signing opens the ledger but the billing gate stays closed until the
	// delivered service is validated.
	billable, err := e.svc.IsBillable(context.Background(), lead.ID, e.tenantID)
	if err != nil || billable {
		t.Fatalf("IsBillable before service validation: %v %v", billable, err)
	}
	e.compliance.markBillable(lead.ID)
	billable, err = e.svc.IsBillable(context.Background(), lead.ID, e.tenantID)
	if err != nil || !billable {
		t.Fatalf("IsBillable after service validation: %v %v", billable, err)
	}
}

func TestMutateRetriesOnConflict(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")

	e.repo.spuriousConflicts = 2
	updated, err := e.svc.ChangeStatus(context.Background(), lead.ID, e.tenantID, domain.StatusContacted, e.actor)
	if err != nil {
		t.Fatalf("ChangeStatus with transient conflicts failed: %v", err)
	}
	if updated.Status != domain.StatusContacted {
		t.Fatalf("expected Contacted, got %s", updated.Status)
	}

	e.repo.spuriousConflicts = maxSaveRetries
	_, err = e.svc.ChangeStatus(context.Background(), lead.ID, e.tenantID, domain.StatusQualified, e.actor)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict after exhausting retries, got %v", err)
	}
}

func TestReopenResetsCounters(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")
	e.driveTo(t, lead.ID, domain.StatusContacted, domain.StatusDisqualified)

	updated, err := e.svc.Reopen(context.Background(), lead.ID, e.tenantID, "new budget approved", e.actor)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if updated.Status != domain.StatusContacted {
		t.Fatalf("expected Contacted after reopen, got %s", updated.Status)
	}
	if updated.CallAttempts != 0 || updated.FollowUpCount != 0 {
		t.Fatal("expected counters reset on reopen")
	}
}

func TestRecordSignalRecomputesScore(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")

	if _, err := e.svc.RecordSignal(context.Background(), lead.ID, e.tenantID, "sms_received", time.Time{}); apperr.GetKind(err) != apperr.KindInvalidArgument {
		t.Fatal("expected unknown signal type to be rejected")
	}

	// A just-recorded signal refreshes last_response_at, so every rescore
	// below carries the 10-point freshness bonus on top of the weights.
	result, err := e.svc.RecordSignal(context.Background(), lead.ID, e.tenantID, "form_interaction", time.Time{})
	if err != nil {
		t.Fatalf("RecordSignal failed: %v", err)
	}
	if result.Score != 20 {
		t.Fatalf("expected score 20 after one form interaction, got %d", result.Score)
	}

	result, err = e.svc.RecordSignal(context.Background(), lead.ID, e.tenantID, "pricing_page_view", time.Time{})
	if err != nil {
		t.Fatalf("RecordSignal failed: %v", err)
	}
	if result.Score != 35 {
		t.Fatalf("expected cumulative score 35, got %d", result.Score)
	}

	stored, _ := e.svc.GetByID(context.Background(), lead.ID, e.tenantID)
	if stored.Score != 35 {
		t.Fatalf("expected persisted score 35, got %d", stored.Score)
	}
	if stored.LastResponseAt == nil {
		t.Fatal("expected last_response_at to be set by the recorded signals")
	}

	// A signal older than the freshness window does not pull the marker back.
	stale := time.Now().UTC().Add(-60 * 24 * time.Hour)
	if _, err := e.svc.RecordSignal(context.Background(), lead.ID, e.tenantID, "page_view", stale); err != nil {
		t.Fatalf("RecordSignal(stale) failed: %v", err)
	}
	stored, _ = e.svc.GetByID(context.Background(), lead.ID, e.tenantID)
	if stored.Score != 37 {
		t.Fatalf("expected stale signal to keep the bonus, got %d", stored.Score)
	}
}

func TestSweepStalledClosesPastThreshold(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")
	e.driveTo(t, lead.ID, domain.StatusContacted)

	// Four manual touches leave the lead one short of the cap.
	for i := 0; i < 4; i++ {
		if _, _, err := e.svc.ProcessFollowUp(context.Background(), lead.ID, e.tenantID, "no answer", e.actor); err != nil {
			t.Fatalf("ProcessFollowUp failed: %v", err)
		}
	}

	touched, err := e.svc.SweepStalled(context.Background(), time.Now().UTC().Add(time.Hour), 100)
	if err != nil {
		t.Fatalf("SweepStalled failed: %v", err)
	}
	if touched != 1 {
		t.Fatalf("expected 1 touched lead, got %d", touched)
	}

	stored, _ := e.svc.GetByID(context.Background(), lead.ID, e.tenantID)
	if stored.Status != domain.StatusNoAnswer {
		t.Fatalf("expected No_Answer after sweep at cap, got %s", stored.Status)
	}
}

func TestAttachmentURL(t *testing.T) {
	e := newTestEnv()
	lead := e.createLead(t, "+33612345678")

	att, err := e.svc.AddAttachment(context.Background(), lead.ID, e.tenantID, AddAttachmentInput{
		FileName:    "file.pdf",
		ContentType: "application/pdf",
		SizeBytes:   4,
		Body:        bytes.NewReader([]byte("%PDF")),
		UploadedBy:  uuid.New(),
	}, e.actor)
	if err != nil {
		t.Fatalf("AddAttachment failed: %v", err)
	}

	url, err := e.svc.AttachmentURL(context.Background(), lead.ID, att.ID, e.tenantID)
	if err != nil || url == "" {
		t.Fatalf("AttachmentURL: %q %v", url, err)
	}

	if _, err := e.svc.AttachmentURL(context.Background(), lead.ID, uuid.New(), e.tenantID); apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for unknown attachment, got %v", err)
	}
}
