package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface using a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
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

var _ Sender = (*SMTPSender)(nil)

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

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendLeadTransitionedEmail(ctx context.Context, toEmail string, data LeadTransitioned) error {
	subject := fmt.Sprintf(subjectLeadTransitionedFmt, data.CompanyName, data.ToStatus)
	content, err := renderEmailTemplate("lead_transitioned.html", leadTransitionedEmailData{
		baseEmailData: baseEmailData{
			Title:    "Lead status changed",
			Heading:  "Lead status changed",
			CTALabel: "Open lead",
			CTAURL:   data.LeadURL,
		},
		CompanyName: data.CompanyName,
		FromStatus:  data.FromStatus,
		ToStatus:    data.ToStatus,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssigned) error {
	subject := fmt.Sprintf(subjectLeadAssignedFmt, data.CompanyName)
	content, err := renderEmailTemplate("lead_assigned.html", leadAssignedEmailData{
		baseEmailData: baseEmailData{
			Title:    "New lead assigned",
			Heading:  "New lead assigned",
			CTALabel: "Open lead",
			CTAURL:   data.LeadURL,
		},
		CompanyName: data.CompanyName,
		Method:      data.Method,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendLeadReminderEmail(ctx context.Context, toEmail string, data LeadReminder) error {
	subject := fmt.Sprintf(subjectLeadReminderFmt, data.CompanyName)
	content, err := renderEmailTemplate("lead_reminder.html", leadReminderEmailData{
		baseEmailData: baseEmailData{
			Title:    "Lead reminder",
			Heading:  "Lead reminder",
			CTALabel: "Open lead",
			CTAURL:   data.LeadURL,
		},
		CompanyName: data.CompanyName,
		Status:      data.Status,
		Reason:      data.Reason,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
