package email

import (
	"context"
	"fmt"

	"membership_renewal_service/internal/domain/notification"
	"membership_renewal_service/internal/infra/config"

	"github.com/sirupsen/logrus"
)

// NewSenderFromConfig builds the configured transport wrapped in RetryingSender.
func NewSenderFromConfig(ctx context.Context, cfg *config.AppConfig, logger *logrus.Entry) (notification.Sender, error) {
	renderer := NewTemplateRenderer()

	var transport notification.Sender
	switch cfg.EmailProvider {
	case config.EmailProviderSMTP:
		transport = NewSMTPSender(SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.EmailFrom,
			UseTLS:   cfg.SMTPUseTLS,
		}, renderer)
	case config.EmailProviderSES:
		ses, err := NewSESSenderFromRegion(ctx, cfg.AWSRegion, cfg.EmailFrom, renderer)
		if err != nil {
			return nil, err
		}
		transport = ses
	case config.EmailProviderLog:
		return NewLogSender(renderer, logger), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.EmailProvider)
	}
	return NewRetryingSender(transport, DefaultRetryConfig(), logger), nil
}
