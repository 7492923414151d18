package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membership_renewal_service/internal/app"
	"membership_renewal_service/internal/infra/lock"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const sweepLockKey = "gym:membership-renewal-sweep"

// lockGrace keeps the guard alive a little past the sweep timeout so a run
// that is finishing up cannot overlap with the next trigger.
const lockGrace = time.Minute

// SkipRecorder counts triggers that found a sweep already running.
type SkipRecorder interface {
	ObserveSkipped()
}

type SweepScheduler struct {
	cronEngine     *cron.Cron
	renewalService app.RenewalService
	locker         lock.Locker
	reporter       app.SweepReporter // optional
	skips          SkipRecorder      // optional
	logger         *logrus.Entry
	cronSpec       string
	timeout        time.Duration
	baseCtx        context.Context
}

func NewSweepScheduler(
	renewalService app.RenewalService,
	locker lock.Locker,
	reporter app.SweepReporter,
	skips SkipRecorder,
	logger *logrus.Entry,
	cronSpec string, // e.g., "0 6 * * *" (06:00 daily)
	timeout time.Duration,
) *SweepScheduler {
	return &SweepScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local), // Use server's local time for cron
			cron.WithChain(cron.Recover(cron.PrintfLogger(logger))),
		),
		renewalService: renewalService,
		locker:         locker,
		reporter:       reporter,
		skips:          skips,
		logger:         logger,
		cronSpec:       cronSpec,
		timeout:        timeout,
		baseCtx:        context.Background(),
	}
}

// Start registers the daily job. Scheduled sweeps are cancelled when ctx is done.
func (s *SweepScheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting renewal sweep scheduler...")
	s.baseCtx = ctx

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.runScheduled); err != nil {
		return fmt.Errorf("could not add renewal sweep cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Renewal sweep scheduler started.")
	return nil
}

func (s *SweepScheduler) runScheduled() {
	s.logger.Info("Cron job triggered for membership renewal sweep.")
	report, err := s.RunNow(s.baseCtx)
	if errors.Is(err, app.ErrSweepInProgress) {
		s.logger.Warn("Previous renewal sweep still running. Skipping this trigger.")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Renewal sweep finished with errors")
	}
	if s.reporter != nil {
		s.reporter.ReportSweep(report, err)
	}
}

// RunNow runs one sweep under the overlap guard and the sweep timeout.
// It returns app.ErrSweepInProgress when another sweep holds the guard.
func (s *SweepScheduler) RunNow(ctx context.Context) (*app.SweepReport, error) {
	release, ok, err := s.locker.TryLock(ctx, sweepLockKey, s.timeout+lockGrace)
	if err != nil {
		return nil, fmt.Errorf("sweep guard unavailable: %w", err)
	}
	if !ok {
		if s.skips != nil {
			s.skips.ObserveSkipped()
		}
		return nil, app.ErrSweepInProgress
	}
	defer release()

	sweepCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.renewalService.RunSweep(sweepCtx)
}

func (s *SweepScheduler) Stop() {
	s.logger.Info("Stopping renewal sweep scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Renewal sweep scheduler gracefully stopped.")
}
