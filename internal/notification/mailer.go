package notification

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"

	"mfg_portal_backend/platform/config"
)

// QCAlert carries the data rendered into a rejection alert email.
type QCAlert struct {
	JobOrderID     string
	SemifinishedID string
	ProcessName    string
	Rejected       int64
	Recycled       int64
	TotalRejected  int64
}

// SMTPMailer delivers QC alert emails via a direct SMTP connection using go-mail.
type SMTPMailer struct {
	cfg config.EmailConfig
}

// NewSMTPMailer creates a mailer from the email configuration.
func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// SendQCAlert sends a rejection alert to the configured recipients.
func (m *SMTPMailer) SendQCAlert(ctx context.Context, recipients []string, alert QCAlert) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.cfg.GetEmailFromName(), m.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(recipients...); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(fmt.Sprintf("QC rejection on %s (order %s)", alert.ProcessName, alert.JobOrderID))
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"QC inspection recorded rejected units.\n\n"+
			"Job order:       %s\n"+
			"Semifinished:    %s\n"+
			"Process:         %s\n"+
			"Rejected now:    %d\n"+
			"Recycled now:    %d\n"+
			"Total rejected:  %d\n",
		alert.JobOrderID, alert.SemifinishedID, alert.ProcessName,
		alert.Rejected, alert.Recycled, alert.TotalRejected,
	))

	client, err := gomail.NewClient(m.cfg.GetSMTPHost(),
		gomail.WithPort(m.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.GetSMTPUsername()),
		gomail.WithPassword(m.cfg.GetSMTPPassword()),
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
