package notifications

import (
	"context"
	"fmt"
	"html"
	"time"

	gomail "github.com/wneessen/go-mail"

	"crmhub_backend/platform/config"
)

// Sender delivers notification emails to agents.
type Sender interface {
	SendAssignmentEmail(ctx context.Context, toEmail, toName, subject string) error
}

// SMTPSender implements Sender with a direct SMTP connection via go-mail.
type SMTPSender struct {
	cfg config.EmailConfig
}

// NewSMTPSender creates a new SMTPSender.
func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) SendAssignmentEmail(ctx context.Context, toEmail, toName, subject string) error {
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>A conversation has been assigned to you: <strong>%s</strong></p>`,
		html.EscapeString(toName), html.EscapeString(subject))
	return s.send(ctx, toEmail, "Conversation assigned to you", body)
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.cfg.GetSMTPHost(),
		gomail.WithPort(s.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.GetSMTPUsername()),
		gomail.WithPassword(s.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// NoopSender discards notifications. Used when email delivery is disabled.
type NoopSender struct{}

func (NoopSender) SendAssignmentEmail(context.Context, string, string, string) error { return nil }
