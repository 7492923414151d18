package app

import (
	"time"

	"membership_renewal_service/internal/domain/membership"
)

const day = 24 * time.Hour

// RenewalPolicy holds the tunables of the reminder pass.
//
// A client inside ReminderWindow gets a first reminder as soon as the sweep sees
// them. After that, another reminder is sent only when the membership ends within
// RenotifyWithinDays and the previous reminder is older than RenotifyCooldown.
type RenewalPolicy struct {
	ReminderWindow     time.Duration
	RenotifyWithinDays int
	RenotifyCooldown   time.Duration
}

// DefaultRenewalPolicy returns the policy the gym runs with: a 7-day reminder
// window and one more reminder during the final day.
func DefaultRenewalPolicy() RenewalPolicy {
	return RenewalPolicy{
		ReminderWindow:     7 * day,
		RenotifyWithinDays: 1,
		RenotifyCooldown:   day,
	}
}

// DaysUntilExpiry rounds the remaining time up to whole days.
func DaysUntilExpiry(endDate, now time.Time) int {
	remaining := endDate.Sub(now)
	days := remaining / day
	if remaining%day > 0 {
		days++
	}
	return int(days)
}

// ShouldSendReminder applies the de-duplication guard to a reminder candidate.
func (p RenewalPolicy) ShouldSendReminder(c *membership.Client, now time.Time) bool {
	if !c.LastNotifiedAt.Valid {
		return true
	}
	daysLeft := DaysUntilExpiry(c.EndDate.Time, now)
	return daysLeft <= p.RenotifyWithinDays && now.Sub(c.LastNotifiedAt.Time) > p.RenotifyCooldown
}
