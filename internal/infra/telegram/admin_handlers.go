package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"membership_renewal_service/internal/app"
	"membership_renewal_service/internal/domain/membership"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	defaultExpiringDays = 7
	maxExpiringDays     = 90
	maxListedClients    = 50
)

var errInvalidDays = fmt.Errorf("days must be a whole number between 1 and %d", maxExpiringDays)

// RegisterAdminHandlers registers handlers for admin commands.
// It requires the bot instance, admin service, and the configured admin Telegram ID.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, adminTelegramID int64, baseLogger *logrus.Entry) {
	b.Handle("/sweep_now", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/sweep_now",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}

		if err := c.Send("Starting renewal sweep..."); err != nil {
			handlerLogger.WithError(err).Warn("Failed to acknowledge command")
		}

		report, err := adminService.TriggerSweep(ctx, c.Sender().ID)
		switch {
		case errors.Is(err, app.ErrAdminNotAuthorized):
			handlerLogger.WithError(err).Warn("Admin not authorized (service level)")
			return c.Send("Error: you are not allowed to run this command.")
		case errors.Is(err, app.ErrSweepInProgress):
			handlerLogger.Info("Sweep already running, manual trigger skipped")
			return c.Send("A renewal sweep is already running. Try again later.")
		case err != nil && report == nil:
			handlerLogger.WithError(err).Error("Manual sweep could not start")
			return c.Send(app.FormatSweepSummary(nil, err))
		case err != nil:
			handlerLogger.WithError(err).Warn("Manual sweep finished with errors")
		default:
			handlerLogger.WithField("run_id", report.RunID).Info("Manual sweep finished")
		}
		return c.Send(app.FormatSweepSummary(report, err))
	})

	b.Handle("/expiring", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/expiring",
			"sender_id": c.Sender().ID,
		})
		if c.Sender().ID != adminTelegramID {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send("Error: you are not allowed to run this command.")
		}

		days, err := parseLookaheadDays(c.Args())
		if err != nil {
			handlerLogger.WithField("args", c.Args()).Warn("Invalid command format")
			return c.Send(fmt.Sprintf("Invalid argument: %v. Usage: /expiring [days]", err))
		}
		handlerLogger = handlerLogger.WithField("days", days)

		clients, err := adminService.ListExpiring(ctx, c.Sender().ID, time.Duration(days)*24*time.Hour)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if errors.Is(err, app.ErrAdminNotAuthorized) {
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send("Error: you are not allowed to run this command.")
			}
			logWithError.Error("Failed to list expiring memberships")
			return c.Send(fmt.Sprintf("Could not load expiring memberships: %s", err.Error()))
		}

		handlerLogger.WithField("clients_count", len(clients)).Info("Successfully retrieved expiring memberships")
		return c.Send(formatExpiringList(clients, days, time.Now()))
	})
}

func parseLookaheadDays(args []string) (int, error) {
	if len(args) == 0 {
		return defaultExpiringDays, nil
	}
	if len(args) > 1 {
		return 0, errInvalidDays
	}
	days, err := strconv.Atoi(args[0])
	if err != nil || days < 1 || days > maxExpiringDays {
		return 0, errInvalidDays
	}
	return days, nil
}

func formatExpiringList(clients []*membership.Client, days int, now time.Time) string {
	if len(clients) == 0 {
		return fmt.Sprintf("No active memberships end within %d days.", days)
	}

	var response strings.Builder
	response.WriteString(fmt.Sprintf("--- Memberships ending within %d days (%d) ---\n", days, len(clients)))
	for i, c := range clients {
		if i == maxListedClients {
			response.WriteString(fmt.Sprintf("... and %d more\n", len(clients)-maxListedClients))
			break
		}
		notified := "never"
		if c.LastNotifiedAt.Valid {
			notified = c.LastNotifiedAt.Time.Format("2006-01-02 15:04")
		}
		response.WriteString(fmt.Sprintf("ID: %d, %s <%s>, plan: %s, ends: %s (%d d), reminded: %s\n",
			c.ID,
			c.FullName(),
			c.Email,
			c.PlanType,
			c.EndDate.Time.Format("2006-01-02"),
			app.DaysUntilExpiry(c.EndDate.Time, now),
			notified))
	}
	return strings.TrimRight(response.String(), "\n")
}
