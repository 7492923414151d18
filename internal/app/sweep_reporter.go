package app

import (
	"fmt"
	"strings"
	"time"

	domainTelegram "membership_renewal_service/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// SweepReporter publishes a finished sweep somewhere a human will see it.
type SweepReporter interface {
	ReportSweep(report *SweepReport, err error)
}

// TelegramSweepReporter sends the sweep summary to the admin chat.
type TelegramSweepReporter struct {
	client      domainTelegram.Client
	adminChatID int64
	logger      *logrus.Entry
}

func NewTelegramSweepReporter(client domainTelegram.Client, adminChatID int64, logger *logrus.Entry) *TelegramSweepReporter {
	return &TelegramSweepReporter{client: client, adminChatID: adminChatID, logger: logger}
}

func (r *TelegramSweepReporter) ReportSweep(report *SweepReport, err error) {
	if r.adminChatID == 0 {
		r.logger.Warn("Admin Telegram ID not configured. Cannot send sweep summary.")
		return
	}
	if sendErr := r.client.SendMessage(r.adminChatID, FormatSweepSummary(report, err), nil); sendErr != nil {
		r.logger.WithError(sendErr).WithField("admin_chat_id", r.adminChatID).Error("Failed to send sweep summary")
		return
	}
	r.logger.WithField("admin_chat_id", r.adminChatID).Debug("Sweep summary sent")
}

// FormatSweepSummary renders a plain-text summary of a sweep.
func FormatSweepSummary(report *SweepReport, err error) string {
	if report == nil {
		if err != nil {
			return fmt.Sprintf("Renewal sweep did not run: %v", err)
		}
		return "Renewal sweep did not run."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Renewal sweep %s (%s)\n", report.RunID, report.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "Reminders: %d sent, %d already notified, %d failed, %d invalid records (of %d candidates)\n",
		report.RemindersSent, report.SkippedDedup, report.ReminderFailures, report.SkippedInvalid, report.ReminderCandidates)
	if report.NotifiedNotRecorded > 0 {
		fmt.Fprintf(&b, "Warning: %d reminders sent but not recorded, they may repeat\n", report.NotifiedNotRecorded)
	}
	fmt.Fprintf(&b, "Expired: %d, failed: %d, already inactive: %d (of %d lapsed)\n",
		report.Expired, report.ExpireFailures, report.AlreadyInactive, report.LapsedCandidates)
	for _, pe := range report.PassErrors {
		fmt.Fprintf(&b, "Error: %s\n", pe)
	}
	return strings.TrimRight(b.String(), "\n")
}
