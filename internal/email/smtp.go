package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender delivers emails over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendFollowUpDueEmail(ctx context.Context, toEmail, leadName, leadPhone string, attemptsMade int) error {
	subject := fmt.Sprintf(subjectFollowUpDueFmt, leadName)
	content, err := renderEmailTemplate("follow_up_due.html", followUpDueEmailData{
		baseEmailData: baseEmailData{
			Title:   "Relance à faire",
			Heading: "Relance à faire",
		},
		LeadName:     leadName,
		LeadPhone:    leadPhone,
		AttemptsMade: attemptsMade,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendLeadSignedEmail(ctx context.Context, toEmail, leadName, financingType string) error {
	subject := fmt.Sprintf(subjectLeadSignedFmt, leadName)
	content, err := renderEmailTemplate("lead_signed.html", leadSignedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Contrat signé",
			Heading: "Contrat signé",
		},
		LeadName:      leadName,
		FinancingType: financingType,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendPlacementRemediationEmail(ctx context.Context, toEmail, leadName string, score, minimum int) error {
	subject := fmt.Sprintf(subjectPlacementRemediationFmt, leadName)
	content, err := renderEmailTemplate("placement_remediation.html", placementRemediationEmailData{
		baseEmailData: baseEmailData{
			Title:   "Test de positionnement insuffisant",
			Heading: "Test de positionnement insuffisant",
		},
		LeadName: leadName,
		Score:    score,
		Minimum:  minimum,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendComplianceBillableEmail(ctx context.Context, toEmail, leadName, stage string) error {
	subject := fmt.Sprintf(subjectComplianceBillableFmt, leadName)
	content, err := renderEmailTemplate("compliance_billable.html", complianceBillableEmailData{
		baseEmailData: baseEmailData{
			Title:   "Dossier facturable",
			Heading: "Dossier facturable",
		},
		LeadName: leadName,
		Stage:    stage,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}
