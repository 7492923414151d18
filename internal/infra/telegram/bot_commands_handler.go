// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	b *telebot.Bot,
	adminTelegramID int64,
	baseLogger *logrus.Entry, // For contextual logging
) {
	startHelpLogger := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/start").WithField("sender_id", senderID)
		logCtx.Info("Processing /start command")

		if senderID == adminTelegramID {
			logCtx.Info("User identified as Admin")
			return c.Send(fmt.Sprintf("Hello, %s! Membership renewal sweeps report here. Use /help for the command list.", c.Sender().FirstName))
		}

		logCtx.Info("User is not the admin")
		return c.Send("Hello! This bot is the gym's internal renewal console and has no commands for you.")
	})

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := startHelpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if senderID != adminTelegramID {
			logCtx.Info("User is not the admin, sending restricted help.")
			return c.Send("No commands are available for you.")
		}
		return c.Send(adminHelpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
}

func adminHelpText() string {
	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/sweep_now`\n - Run the membership renewal sweep now (reminders, then expiry).\n\n")
	helpText.WriteString(fmt.Sprintf("`/expiring [days]`\n - List active memberships ending within the given days (default %d).\n\n", defaultExpiringDays))
	helpText.WriteString("`/help`\n - Show this message.\n\n")
	helpText.WriteString("A summary is sent here after every scheduled sweep.")
	return helpText.String()
}
