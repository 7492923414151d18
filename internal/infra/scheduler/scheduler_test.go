package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"membership_renewal_service/internal/app"
	"membership_renewal_service/internal/infra/lock"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingService struct {
	started  chan struct{}
	unblock  chan struct{}
	calls    int
	deadline time.Time
	mu       sync.Mutex
}

func (b *blockingService) RunSweep(ctx context.Context) (*app.SweepReport, error) {
	b.mu.Lock()
	b.calls++
	b.deadline, _ = ctx.Deadline()
	b.mu.Unlock()
	if b.started != nil {
		close(b.started)
		<-b.unblock
	}
	return &app.SweepReport{RunID: "run"}, nil
}

func (b *blockingService) SendExpiryReminders(context.Context, time.Time, *app.SweepReport) error {
	return nil
}

func (b *blockingService) ExpireLapsedMemberships(context.Context, time.Time, *app.SweepReport) error {
	return nil
}

type countingSkips struct{ n int }

func (c *countingSkips) ObserveSkipped() { c.n++ }

type capturingReporter struct {
	report *app.SweepReport
	err    error
	calls  int
}

func (c *capturingReporter) ReportSweep(report *app.SweepReport, err error) {
	c.calls++
	c.report, c.err = report, err
}

type brokenLocker struct{}

func (brokenLocker) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return nil, false, errors.New("redis: connection refused")
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestRunNow_AppliesTimeout(t *testing.T) {
	svc := &blockingService{}
	s := NewSweepScheduler(svc, lock.NewLocalLocker(), nil, nil, quietLogger(), "0 6 * * *", 10*time.Minute)

	before := time.Now()
	report, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run", report.RunID)
	assert.Equal(t, 1, svc.calls)
	assert.WithinDuration(t, before.Add(10*time.Minute), svc.deadline, 5*time.Second)
}

func TestRunNow_SkipsOverlappingSweep(t *testing.T) {
	svc := &blockingService{started: make(chan struct{}), unblock: make(chan struct{})}
	skips := &countingSkips{}
	s := NewSweepScheduler(svc, lock.NewLocalLocker(), nil, skips, quietLogger(), "0 6 * * *", time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		done <- err
	}()
	<-svc.started

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, app.ErrSweepInProgress)
	assert.Equal(t, 1, skips.n)

	close(svc.unblock)
	require.NoError(t, <-done)

	// Guard released: a later run proceeds.
	svc.started = nil
	_, err = s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, svc.calls)
}

func TestRunNow_GuardUnavailable(t *testing.T) {
	svc := &blockingService{}
	s := NewSweepScheduler(svc, brokenLocker{}, nil, nil, quietLogger(), "0 6 * * *", time.Minute)

	_, err := s.RunNow(context.Background())
	assert.ErrorContains(t, err, "sweep guard unavailable")
	assert.Equal(t, 0, svc.calls)
}

func TestRunScheduled_ReportsResult(t *testing.T) {
	reporter := &capturingReporter{}
	s := NewSweepScheduler(&blockingService{}, lock.NewLocalLocker(), reporter, nil, quietLogger(), "0 6 * * *", time.Minute)

	s.runScheduled()
	require.Equal(t, 1, reporter.calls)
	assert.Equal(t, "run", reporter.report.RunID)
	assert.NoError(t, reporter.err)
}

func TestRunScheduled_DoesNotReportSkippedTrigger(t *testing.T) {
	locker := lock.NewLocalLocker()
	release, ok, _ := locker.TryLock(context.Background(), sweepLockKey, time.Hour)
	require.True(t, ok)
	defer release()

	reporter := &capturingReporter{}
	s := NewSweepScheduler(&blockingService{}, locker, reporter, nil, quietLogger(), "0 6 * * *", time.Minute)
	s.runScheduled()
	assert.Equal(t, 0, reporter.calls)
}

func TestStart_InvalidSpec(t *testing.T) {
	s := NewSweepScheduler(&blockingService{}, lock.NewLocalLocker(), nil, nil, quietLogger(), "not a cron spec", time.Minute)
	assert.Error(t, s.Start(context.Background()))
}

func TestStartStop(t *testing.T) {
	s := NewSweepScheduler(&blockingService{}, lock.NewLocalLocker(), nil, nil, quietLogger(), "0 6 * * *", time.Minute)
	require.NoError(t, s.Start(context.Background()))
	assert.Len(t, s.cronEngine.Entries(), 1)
	s.Stop()
}
