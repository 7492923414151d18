package email

import (
	"context"

	"membership_renewal_service/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// LogSender renders messages and logs them instead of delivering them.
// Used for local runs and dry runs.
type LogSender struct {
	renderer *TemplateRenderer
	logger   *logrus.Entry
}

func NewLogSender(renderer *TemplateRenderer, logger *logrus.Entry) *LogSender {
	return &LogSender{renderer: renderer, logger: logger}
}

func (s *LogSender) Send(_ context.Context, recipient string, templateID notification.TemplateID, data any) error {
	msg, err := s.renderer.Render(templateID, data)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"to":       recipient,
		"template": templateID,
		"subject":  msg.Subject,
	}).Info("Email (dry run)")
	return nil
}
