// Package email renders and delivers lead notification emails.
package email

import "context"

// LeadTransitioned describes a committed status change for the email body.
type LeadTransitioned struct {
	LeadURL     string
	CompanyName string
	FromStatus  string
	ToStatus    string
}

// LeadAssigned describes a committed assignment for the email body.
type LeadAssigned struct {
	LeadURL     string
	CompanyName string
	Method      string
}

// LeadReminder describes an idle or SLA reminder for the email body.
type LeadReminder struct {
	LeadURL     string
	CompanyName string
	Status      string
	Reason      string
}

type Sender interface {
	SendLeadTransitionedEmail(ctx context.Context, toEmail string, data LeadTransitioned) error
	SendLeadAssignedEmail(ctx context.Context, toEmail string, data LeadAssigned) error
	SendLeadReminderEmail(ctx context.Context, toEmail string, data LeadReminder) error
}

type NoopSender struct{}

func (NoopSender) SendLeadTransitionedEmail(context.Context, string, LeadTransitioned) error {
	return nil
}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, LeadAssigned) error {
	return nil
}

func (NoopSender) SendLeadReminderEmail(context.Context, string, LeadReminder) error {
	return nil
}
