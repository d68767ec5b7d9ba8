package email

import "context"

// Sender delivers the transactional emails produced by the notification
// dispatcher. Recipients are back-office users (advisors, billing), never the
// lead itself.
type Sender interface {
	SendFollowUpDueEmail(ctx context.Context, toEmail, leadName, leadPhone string, attemptsMade int) error
	SendLeadSignedEmail(ctx context.Context, toEmail, leadName, financingType string) error
	SendPlacementRemediationEmail(ctx context.Context, toEmail, leadName string, score, minimum int) error
	SendComplianceBillableEmail(ctx context.Context, toEmail, leadName, stage string) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender satisfies Sender without doing anything. Used in tests and in
// environments without SMTP configured.
type NoopSender struct{}

func (NoopSender) SendFollowUpDueEmail(ctx context.Context, toEmail, leadName, leadPhone string, attemptsMade int) error {
	return nil
}

func (NoopSender) SendLeadSignedEmail(ctx context.Context, toEmail, leadName, financingType string) error {
	return nil
}

func (NoopSender) SendPlacementRemediationEmail(ctx context.Context, toEmail, leadName string, score, minimum int) error {
	return nil
}

func (NoopSender) SendComplianceBillableEmail(ctx context.Context, toEmail, leadName, stage string) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

var (
	_ Sender = NoopSender{}
	_ Sender = (*SMTPSender)(nil)
)
