package app

import "time"

// SweepReport summarises one execution of the renewal sweep.
type SweepReport struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time

	ReminderCandidates int
	RemindersSent      int
	SkippedDedup       int
	SkippedInvalid     int
	ReminderFailures   int
	// NotifiedNotRecorded counts reminders that went out but whose timestamp
	// could not be stored; these clients may be reminded again.
	NotifiedNotRecorded int

	LapsedCandidates int
	Expired          int
	AlreadyInactive  int
	ExpireFailures   int

	PassErrors []string
}

// Duration is the wall-clock time the sweep took.
func (r *SweepReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
