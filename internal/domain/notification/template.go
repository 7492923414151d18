// internal/domain/notification/template.go
package notification

import "time"

// TemplateID identifies an email template known to the sender.
type TemplateID string

const (
	TemplateRenewalReminder TemplateID = "renewal_reminder"
)

// RenewalReminderData is the template data for TemplateRenewalReminder.
type RenewalReminderData struct {
	ClientName string
	EndDate    time.Time
	PlanType   string
}
