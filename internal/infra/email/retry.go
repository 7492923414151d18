package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"membership_renewal_service/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// RetryConfig bounds the retry loop of RetryingSender.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialBackoff: 2 * time.Second, MaxBackoff: 30 * time.Second}
}

// RetryingSender retries transient send failures with exponential backoff.
// Rendering errors are not retried.
type RetryingSender struct {
	next   notification.Sender
	cfg    RetryConfig
	logger *logrus.Entry
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewRetryingSender(next notification.Sender, cfg RetryConfig, logger *logrus.Entry) *RetryingSender {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryingSender{next: next, cfg: cfg, logger: logger, sleep: sleepContext}
}

func (s *RetryingSender) Send(ctx context.Context, recipient string, templateID notification.TemplateID, data any) error {
	backoff := s.cfg.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		lastErr = s.next.Send(ctx, recipient, templateID, data)
		if lastErr == nil {
			return nil
		}
		if isPermanent(lastErr) || attempt == s.cfg.MaxAttempts {
			break
		}

		s.logger.WithError(lastErr).WithFields(logrus.Fields{
			"attempt":  attempt,
			"template": templateID,
			"backoff":  backoff.String(),
		}).Warn("Email send failed, retrying")

		if err := s.sleep(ctx, backoff); err != nil {
			return fmt.Errorf("retry aborted after %d attempts: %w (last error: %v)", attempt, err, lastErr)
		}
		backoff *= 2
		if s.cfg.MaxBackoff > 0 && backoff > s.cfg.MaxBackoff {
			backoff = s.cfg.MaxBackoff
		}
	}
	return lastErr
}

// isPermanent reports errors a resend cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, ErrUnknownTemplate) || errors.Is(err, ErrRenderFailed)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
