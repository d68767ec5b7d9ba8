package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"trainhub_backend/internal/events"
	"trainhub_backend/internal/notification/outbox"
	"trainhub_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeOutbox struct {
	messages map[uuid.UUID]*outbox.Message
	order    []uuid.UUID
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{messages: make(map[uuid.UUID]*outbox.Message)}
}

func (f *fakeOutbox) Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	payload, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, err
	}
	runAt := p.RunAt
	if runAt.IsZero() {
		runAt = time.Now().UTC()
	}
	id := uuid.New()
	f.messages[id] = &outbox.Message{
		ID:             id,
		OrganizationID: p.OrganizationID,
		LeadID:         p.LeadID,
		Kind:           p.Kind,
		Recipient:      p.Recipient,
		Payload:        payload,
		RunAt:          runAt,
		Status:         outbox.StatusPending,
	}
	f.order = append(f.order, id)
	return id, nil
}

func (f *fakeOutbox) ClaimDue(ctx context.Context, now time.Time, limit int) ([]outbox.Message, error) {
	var claimed []outbox.Message
	for _, id := range f.order {
		if len(claimed) >= limit {
			break
		}
		msg := f.messages[id]
		if msg.Status != outbox.StatusPending || msg.RunAt.After(now) {
			continue
		}
		msg.Status = outbox.StatusProcessing
		msg.Attempts++
		claimed = append(claimed, *msg)
	}
	return claimed, nil
}

func (f *fakeOutbox) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	f.messages[id].Status = outbox.StatusSucceeded
	return nil
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastError string) error {
	msg := f.messages[id]
	if attempts < 5 {
		msg.Status = outbox.StatusPending
		msg.RunAt = msg.RunAt.Add(time.Duration(attempts) * time.Minute)
		return nil
	}
	msg.Status = outbox.StatusFailed
	return nil
}

type sentEmail struct {
	kind      string
	recipient string
	leadName  string
}

type fakeSender struct {
	sent     []sentEmail
	failures int
}

func (f *fakeSender) trySend(kind, toEmail, leadName string) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentEmail{kind: kind, recipient: toEmail, leadName: leadName})
	return nil
}

func (f *fakeSender) SendFollowUpDueEmail(ctx context.Context, toEmail, leadName, leadPhone string, attemptsMade int) error {
	return f.trySend(KindFollowUpDue, toEmail, leadName)
}

func (f *fakeSender) SendLeadSignedEmail(ctx context.Context, toEmail, leadName, financingType string) error {
	return f.trySend(KindLeadSigned, toEmail, leadName)
}

func (f *fakeSender) SendPlacementRemediationEmail(ctx context.Context, toEmail, leadName string, score, minimum int) error {
	return f.trySend(KindPlacementRemediation, toEmail, leadName)
}

func (f *fakeSender) SendComplianceBillableEmail(ctx context.Context, toEmail, leadName, stage string) error {
	return f.trySend(KindComplianceBillable, toEmail, leadName)
}

func (f *fakeSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return f.trySend("custom", toEmail, "")
}

type fakeDirectory struct {
	names map[uuid.UUID]LeadInfo
}

func (f *fakeDirectory) LeadInfo(ctx context.Context, leadID, organizationID uuid.UUID) (LeadInfo, error) {
	info, ok := f.names[leadID]
	if !ok {
		return LeadInfo{}, errors.New("lead not found")
	}
	return info, nil
}

const testInbox = "backoffice@example.test"

func newTestService(t *testing.T) (*Service, *fakeOutbox, *fakeSender, *fakeDirectory) {
	t.Helper()
	repo := newFakeOutbox()
	sender := &fakeSender{}
	directory := &fakeDirectory{names: make(map[uuid.UUID]LeadInfo)}
	svc := New(repo, directory, sender, logger.New("development"), testInbox)
	return svc, repo, sender, directory
}

func TestFollowUpDueEventEnqueuesMessage(t *testing.T) {
	svc, repo, _, directory := newTestService(t)
	bus := events.NewInMemoryBus(logger.New("development"))
	svc.Subscribe(bus)

	leadID := uuid.New()
	orgID := uuid.New()
	directory.names[leadID] = LeadInfo{Name: "Claire Petit", Phone: "+33612345678"}

	err := bus.PublishSync(context.Background(), events.LeadFollowUpDue{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        leadID,
		TenantID:      orgID,
		Status:        "Contacted",
		FollowUpCount: 3,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(repo.order) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(repo.order))
	}
	msg := repo.messages[repo.order[0]]
	if msg.Kind != KindFollowUpDue {
		t.Errorf("kind = %q, want %q", msg.Kind, KindFollowUpDue)
	}
	if msg.Recipient != testInbox {
		t.Errorf("recipient = %q, want %q", msg.Recipient, testInbox)
	}
	if msg.LeadID != leadID || msg.OrganizationID != orgID {
		t.Errorf("lead/org mismatch on outbox message")
	}

	var p followUpDuePayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.LeadName != "Claire Petit" || p.LeadPhone != "+33612345678" || p.AttemptsMade != 3 {
		t.Errorf("payload = %+v", p)
	}
}

func TestPlacementTestPassDoesNotEnqueue(t *testing.T) {
	svc, repo, _, directory := newTestService(t)
	bus := events.NewInMemoryBus(logger.New("development"))
	svc.Subscribe(bus)

	leadID := uuid.New()
	directory.names[leadID] = LeadInfo{Name: "Yanis Morel"}

	evt := events.PlacementTestEvaluated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		TenantID:  uuid.New(),
		Score:     72,
		Minimum:   50,
		Passed:    true,
	}
	if err := bus.PublishSync(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(repo.order) != 0 {
		t.Fatalf("passing test must not enqueue, got %d messages", len(repo.order))
	}

	evt.Score = 40
	evt.Passed = false
	if err := bus.PublishSync(context.Background(), evt); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(repo.order) != 1 {
		t.Fatalf("failing test must enqueue, got %d messages", len(repo.order))
	}
	if repo.messages[repo.order[0]].Kind != KindPlacementRemediation {
		t.Errorf("kind = %q", repo.messages[repo.order[0]].Kind)
	}
}

func TestDispatchDueDeliversAndMarks(t *testing.T) {
	svc, repo, sender, _ := newTestService(t)

	leadID := uuid.New()
	orgID := uuid.New()
	if err := svc.enqueue(context.Background(), orgID, leadID, KindLeadSigned, leadSignedPayload{
		LeadName:      "Sofia Haddad",
		FinancingType: "THIRD_PARTY_FUNDED",
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	delivered, err := svc.DispatchDue(context.Background(), time.Now().UTC().Add(time.Second))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if len(sender.sent) != 1 || sender.sent[0].kind != KindLeadSigned || sender.sent[0].leadName != "Sofia Haddad" {
		t.Errorf("sent = %+v", sender.sent)
	}
	if got := repo.messages[repo.order[0]].Status; got != outbox.StatusSucceeded {
		t.Errorf("status = %q, want succeeded", got)
	}
}

func TestDispatchFailureRequeuesThenSucceeds(t *testing.T) {
	svc, repo, sender, _ := newTestService(t)
	sender.failures = 1

	if err := svc.enqueue(context.Background(), uuid.New(), uuid.New(), KindComplianceBillable, complianceBillablePayload{
		LeadName: "Lucas Bernard",
		Stage:    "SERVICE_VALIDATED",
	}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	now := time.Now().UTC().Add(time.Second)
	delivered, err := svc.DispatchDue(context.Background(), now)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0 on SMTP failure", delivered)
	}
	msg := repo.messages[repo.order[0]]
	if msg.Status != outbox.StatusPending {
		t.Fatalf("status = %q, want pending for retry", msg.Status)
	}

	delivered, err = svc.DispatchDue(context.Background(), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("dispatch retry: %v", err)
	}
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1 on retry", delivered)
	}
	if msg.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", msg.Attempts)
	}
}

func TestDispatchUnknownKindMarksFailed(t *testing.T) {
	svc, repo, sender, _ := newTestService(t)

	if err := svc.enqueue(context.Background(), uuid.New(), uuid.New(), "lead.unknown_kind", map[string]string{}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	delivered, err := svc.DispatchDue(context.Background(), time.Now().UTC().Add(time.Second))
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0", delivered)
	}
	if len(sender.sent) != 0 {
		t.Errorf("unknown kind must not reach the sender")
	}
	if got := repo.messages[repo.order[0]].Status; got != outbox.StatusPending && got != outbox.StatusFailed {
		t.Errorf("status = %q", got)
	}
}

func TestEnqueueFailsWithoutDirectoryEntry(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	bus := events.NewInMemoryBus(logger.New("development"))
	svc.Subscribe(bus)

	err := bus.PublishSync(context.Background(), events.LeadSigned{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        uuid.New(),
		TenantID:      uuid.New(),
		FinancingType: "SELF_FUNDED",
	})
	if err == nil || !strings.Contains(err.Error(), "resolve lead") {
		t.Fatalf("expected resolve error, got %v", err)
	}
	if len(repo.order) != 0 {
		t.Errorf("no message should be enqueued when the lead cannot be resolved")
	}
}
