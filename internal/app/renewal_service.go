// internal/app/renewal_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membership_renewal_service/internal/domain/membership"
	"membership_renewal_service/internal/domain/notification"
	idb "membership_renewal_service/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RenewalService defines the membership renewal sweep operations.
type RenewalService interface {
	// RunSweep executes both passes once using the service clock.
	RunSweep(ctx context.Context) (*SweepReport, error)
	// SendExpiryReminders runs the reminder pass at the given instant.
	SendExpiryReminders(ctx context.Context, now time.Time, report *SweepReport) error
	// ExpireLapsedMemberships runs the enforcement pass at the given instant.
	ExpireLapsedMemberships(ctx context.Context, now time.Time, report *SweepReport) error
}

// SweepRecorder receives the outcome of every sweep, e.g. for metrics.
type SweepRecorder interface {
	ObserveSweep(report *SweepReport, err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveSweep(*SweepReport, error) {}

// RenewalServiceImpl implements the RenewalService interface.
type RenewalServiceImpl struct {
	clientRepo membership.Repository
	sender     notification.Sender
	policy     RenewalPolicy
	recorder   SweepRecorder
	logger     *logrus.Entry
	now        func() time.Time
}

func NewRenewalServiceImpl(
	cr membership.Repository,
	sender notification.Sender,
	policy RenewalPolicy,
	recorder SweepRecorder,
	logger *logrus.Entry,
	clock func() time.Time, // nil means time.Now
) *RenewalServiceImpl {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if clock == nil {
		clock = time.Now
	}
	return &RenewalServiceImpl{
		clientRepo: cr,
		sender:     sender,
		policy:     policy,
		recorder:   recorder,
		logger:     logger,
		now:        clock,
	}
}

// RunSweep runs the reminder pass and then the enforcement pass.
// A failing pass is logged and does not prevent the other one from running.
func (s *RenewalServiceImpl) RunSweep(ctx context.Context) (*SweepReport, error) {
	now := s.now()
	report := &SweepReport{RunID: uuid.NewString(), StartedAt: now}
	log := s.logger.WithField("run_id", report.RunID)
	log.WithField("sweep_time", now.Format(time.RFC3339)).Info("Membership renewal sweep started")

	var passErrs []error
	if err := s.SendExpiryReminders(ctx, now, report); err != nil {
		passErrs = append(passErrs, err)
	}
	if err := s.ExpireLapsedMemberships(ctx, now, report); err != nil {
		passErrs = append(passErrs, err)
	}
	for _, err := range passErrs {
		report.PassErrors = append(report.PassErrors, err.Error())
	}
	report.FinishedAt = s.now()

	err := errors.Join(passErrs...)
	s.recorder.ObserveSweep(report, err)

	log.WithFields(logrus.Fields{
		"duration":            report.Duration().String(),
		"reminder_candidates": report.ReminderCandidates,
		"reminders_sent":      report.RemindersSent,
		"skipped_dedup":       report.SkippedDedup,
		"skipped_invalid":     report.SkippedInvalid,
		"reminder_failures":   report.ReminderFailures,
		"lapsed_candidates":   report.LapsedCandidates,
		"expired":             report.Expired,
		"expire_failures":     report.ExpireFailures,
		"pass_errors":         len(passErrs),
	}).Info("Membership renewal sweep finished")
	return report, err
}

// SendExpiryReminders notifies clients whose active membership ends within the
// reminder window, subject to the de-duplication guard.
func (s *RenewalServiceImpl) SendExpiryReminders(ctx context.Context, now time.Time, report *SweepReport) error {
	log := s.logger.WithFields(logrus.Fields{"run_id": report.RunID, "pass": "reminders"})

	clients, err := s.clientRepo.Find(ctx, membership.ReminderCandidatesQuery(now, s.policy.ReminderWindow))
	if err != nil {
		log.WithError(err).Error("Failed to query reminder candidates, skipping reminder pass")
		return fmt.Errorf("reminder pass: failed to query candidates: %w", err)
	}
	report.ReminderCandidates = len(clients)
	log.WithField("candidates", len(clients)).Info("Reminder candidates loaded")

	for _, c := range clients {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Reminder pass interrupted")
			return fmt.Errorf("reminder pass interrupted: %w", err)
		}
		isolate(log.WithField("client_id", c.ID),
			func() { report.ReminderFailures++ },
			func() { s.remindClient(ctx, c, now, report, log) })
	}
	return nil
}

func (s *RenewalServiceImpl) remindClient(ctx context.Context, c *membership.Client, now time.Time, report *SweepReport, passLog *logrus.Entry) {
	log := passLog.WithField("client_id", c.ID)

	if err := c.Validate(); err != nil {
		report.SkippedInvalid++
		log.WithError(err).Warn("Skipping client with malformed membership")
		return
	}

	daysLeft := DaysUntilExpiry(c.EndDate.Time, now)
	log = log.WithField("days_until_expiry", daysLeft)

	if !s.policy.ShouldSendReminder(c, now) {
		report.SkippedDedup++
		log.WithField("last_notified_at", c.LastNotifiedAt.Time.Format(time.RFC3339)).Debug("Reminder already sent, skipping")
		return
	}

	data := notification.RenewalReminderData{
		ClientName: c.FullName(),
		EndDate:    c.EndDate.Time,
		PlanType:   c.PlanType,
	}
	if err := s.sender.Send(ctx, c.Email, notification.TemplateRenewalReminder, data); err != nil {
		report.ReminderFailures++
		log.WithError(err).Error("Failed to send renewal reminder")
		return
	}
	report.RemindersSent++

	// The reminder is already out; a failed write here can only cause a repeat reminder next run.
	if err := s.clientRepo.UpdateLastNotifiedAt(ctx, c.ID, now); err != nil {
		report.NotifiedNotRecorded++
		log.WithError(err).Error("Renewal reminder sent but failed to record notification time")
		return
	}
	log.Info("Renewal reminder sent")
}

// ExpireLapsedMemberships moves active memberships whose end date has passed to EXPIRED.
func (s *RenewalServiceImpl) ExpireLapsedMemberships(ctx context.Context, now time.Time, report *SweepReport) error {
	log := s.logger.WithFields(logrus.Fields{"run_id": report.RunID, "pass": "expiry"})

	clients, err := s.clientRepo.Find(ctx, membership.LapsedMembershipsQuery(now))
	if err != nil {
		log.WithError(err).Error("Failed to query lapsed memberships, skipping expiry pass")
		return fmt.Errorf("expiry pass: failed to query lapsed memberships: %w", err)
	}
	report.LapsedCandidates = len(clients)
	log.WithField("candidates", len(clients)).Info("Lapsed memberships loaded")

	for _, c := range clients {
		if err := ctx.Err(); err != nil {
			log.WithError(err).Warn("Expiry pass interrupted")
			return fmt.Errorf("expiry pass interrupted: %w", err)
		}
		clientLog := log.WithField("client_id", c.ID)
		isolate(clientLog,
			func() { report.ExpireFailures++ },
			func() { s.expireClient(ctx, c, report, clientLog) })
	}
	return nil
}

func (s *RenewalServiceImpl) expireClient(ctx context.Context, c *membership.Client, report *SweepReport, log *logrus.Entry) {
	err := s.clientRepo.ExpireMembership(ctx, c.ID)
	switch {
	case err == nil:
		report.Expired++
		log.WithField("end_date", c.EndDate.Time.Format(time.RFC3339)).Info("Membership expired")
	case errors.Is(err, idb.ErrMembershipNotActive):
		report.AlreadyInactive++
		log.Info("Membership no longer active, leaving it unchanged")
	default:
		report.ExpireFailures++
		log.WithError(err).Error("Failed to expire membership")
	}
}

// isolate runs fn and turns a panic into a logged per-client failure,
// counted through onPanic.
func isolate(log *logrus.Entry, onPanic func(), fn func()) {
	defer func() {
		if r := recover(); r != nil {
			onPanic()
			log.WithField("panic", r).Error("Recovered from panic while processing client")
		}
	}()
	fn()
}
