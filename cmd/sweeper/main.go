package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"membership_renewal_service/internal/app"
	"membership_renewal_service/internal/infra/config"
	idb "membership_renewal_service/internal/infra/database"
	"membership_renewal_service/internal/infra/email"
	"membership_renewal_service/internal/infra/lock"
	"membership_renewal_service/internal/infra/logger"
	"membership_renewal_service/internal/infra/metrics"
	"membership_renewal_service/internal/infra/scheduler"
	"membership_renewal_service/internal/infra/telegram"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	fmt.Println("Membership Renewal Service starting...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Could not load application configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg)
	mainLogger := logger.ForComponent("main")
	mainLogger.WithFields(logrus.Fields{
		"log_level":      cfg.LogLevel,
		"environment":    cfg.Environment,
		"email_provider": cfg.EmailProvider,
		"sweep_timeout":  cfg.SweepTimeout.String(),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize Database Connection
	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	if err := idb.RunMigrations(db.DB, logger.ForComponent("migrations")); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database migrations")
	}

	clientRepo := idb.NewPostgresClientRepository(db)

	sender, err := email.NewSenderFromConfig(ctx, cfg, logger.ForComponent("email"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not initialize email sender")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sweepMetrics := metrics.NewSweepMetrics(registry)

	var metricsServer *metrics.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.NewServer(cfg.MetricsAddr, registry, logger.ForComponent("metrics"))
		metricsServer.Start()
	}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		redisClient, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to Redis")
		}
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, logger.ForComponent("lock"))
		mainLogger.Info("Using Redis sweep guard.")
	}

	renewalService := app.NewRenewalServiceImpl(
		clientRepo,
		sender,
		app.DefaultRenewalPolicy(),
		sweepMetrics,
		logger.ForComponent("renewal_sweep"),
		nil,
	)

	// Initialize Telegram Bot
	var bot *telebot.Bot
	var reporter app.SweepReporter
	if cfg.TelegramToken != "" {
		botLogger := logger.ForComponent("telegram")
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) { // Global error handler
				entry := botLogger.WithError(err)
				if c != nil && c.Sender() != nil && c.Chat() != nil {
					entry = entry.WithFields(logrus.Fields{"sender_id": c.Sender().ID, "chat_id": c.Chat().ID})
				}
				entry.Error("Telegram handler error")
			},
		})
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		reporter = app.NewTelegramSweepReporter(telegram.NewTelebotAdapter(bot), cfg.AdminTelegramID, botLogger)
	}

	// Initialize SweepScheduler
	sweepScheduler := scheduler.NewSweepScheduler(
		renewalService,
		locker,
		reporter,
		sweepMetrics,
		logger.ForComponent("scheduler"),
		config.SweepCronSpec,
		cfg.SweepTimeout,
	)
	if err := sweepScheduler.Start(ctx); err != nil {
		mainLogger.WithError(err).Fatal("Could not start renewal sweep scheduler")
	}

	if bot != nil {
		adminService := app.NewAdminService(clientRepo, sweepScheduler, cfg.AdminTelegramID)
		botLogger := logger.ForComponent("telegram")
		telegram.RegisterBotCommands(bot, cfg.AdminTelegramID, botLogger)
		telegram.RegisterAdminHandlers(ctx, bot, adminService, cfg.AdminTelegramID, botLogger)
		mainLogger.Info("Admin command handlers registered.")

		// Start bot in a goroutine so it doesn't block graceful shutdown handling
		go bot.Start()
	}

	mainLogger.Info("Application setup complete. Waiting for scheduled sweeps.")
	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	if bot != nil {
		bot.Stop()
	}
	sweepScheduler.Stop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			mainLogger.WithError(err).Warn("Metrics server shutdown failed")
		}
		cancel()
	}
	mainLogger.Info("Application shut down gracefully.")
}
