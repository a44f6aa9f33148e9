package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"homework_status_bot/internal/app"
	"homework_status_bot/internal/infra/config"
	"homework_status_bot/internal/infra/logger"
	"homework_status_bot/internal/infra/practicum"
	"homework_status_bot/internal/infra/scheduler"
	"homework_status_bot/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/telebot.v3"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the review API and notify on status changes until stopped",
	RunE:  runBot,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle and exit",
	Long: `Run one fetch-compare-notify cycle with an empty status cache.
The latest submission status is always sent, which makes this useful as a
smoke check of both tokens and the chat id.`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(runCmd, onceCmd)
}

type application struct {
	cfg       *config.AppConfig
	bot       *telebot.Bot
	scheduler *scheduler.PollScheduler
}

// setup loads configuration and wires every component. Missing credentials
// are fatal: the loop is never entered.
func setup() *application {
	mainLogger := logger.Component("main")

	cfg, err := config.Load()
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not load application configuration")
	}
	logger.Init(cfg.LogLevel, cfg.Environment)
	mainLogger.WithFields(logrus.Fields{
		"log_level":      cfg.LogLevel,
		"environment":    cfg.Environment,
		"chat_id":        cfg.TelegramChatID,
		"retry_interval": cfg.RetryInterval.String(),
		"poll_schedule":  cfg.PollSchedule,
	}).Info("Configuration loaded")

	schedule, err := scheduler.ParseSchedule(cfg.PollSchedule, cfg.RetryInterval)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not parse poll schedule")
	}

	pref := telebot.Settings{
		Token:  cfg.TelegramToken,
		Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c telebot.Context) { // Global error handler
			entry := logger.Component("telebot").WithError(err)
			if c != nil && c.Chat() != nil {
				entry = entry.WithField("chat_id", c.Chat().ID)
			}
			entry.Error("Telegram handler error")
		},
	}
	bot, err := telebot.NewBot(pref)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create Telegram bot")
	}

	telegram.RegisterBotCommands(bot, telegram.BotInfo{
		ChatID:        cfg.TelegramChatID,
		Endpoint:      cfg.Endpoint,
		RetryInterval: cfg.RetryInterval,
		Schedule:      cfg.PollSchedule,
	}, logger.Component("telegram"))

	fetcher := practicum.NewClient(cfg.Endpoint, cfg.PracticumToken, cfg.RequestTimeout, logger.Component("practicum"))
	pollService := app.NewPollService(
		fetcher,
		telegram.NewTelebotAdapter(bot),
		cfg.TelegramChatID,
		cfg.RetryInterval,
		logger.Component("poll_service"),
	)

	return &application{
		cfg:       cfg,
		bot:       bot,
		scheduler: scheduler.NewPollScheduler(pollService, schedule, logger.Component("scheduler")),
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	a := setup()
	mainLogger := logger.Component("main")

	ctx, stop := shutdownContext(cmd.Context())
	defer stop()

	// The long poller only serves /start and /help.
	go a.bot.Start()
	defer a.bot.Stop()

	mainLogger.Info("Application setup complete. Bot and poll loop are starting...")
	err := a.scheduler.Run(ctx)
	if errors.Is(err, context.Canceled) {
		mainLogger.Info("Application shut down gracefully.")
		return nil
	}
	return err
}

func runOnce(cmd *cobra.Command, args []string) error {
	a := setup()

	ctx, stop := shutdownContext(cmd.Context())
	defer stop()

	return a.scheduler.RunOnce(ctx)
}

// shutdownContext is cancelled on SIGINT or SIGTERM.
func shutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
