package cli

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"habitbot/internal/api"
	"habitbot/internal/bot"
	"habitbot/internal/config"
	"habitbot/internal/delivery"
	"habitbot/internal/httpserver"
	"habitbot/internal/jobs"
	"habitbot/internal/notify"
	"habitbot/internal/scheduler"
	"habitbot/internal/service"
	"habitbot/internal/session"
	"habitbot/pkg/mq"
	"habitbot/pkg/otel"
	"habitbot/pkg/outbox"
	"habitbot/pkg/util"
)

const (
	dedupTTL        = 24 * time.Hour
	retryCounterTTL = 24 * time.Hour
	outboxKeep      = 7 * 24 * time.Hour
	shutdownTimeout = 30 * time.Second
	jobDrainMargin  = 5 * time.Second
)

func serveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot, the scheduler and the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, cmd.Root().Version)
		},
	}
}

// reminderTimes renders reminder times as "15:00, 18:00 and 21:00".
func reminderTimes(times []config.ClockTime) string {
	parts := make([]string, 0, len(times))
	for _, t := range times {
		parts = append(parts, t.String())
	}
	if len(parts) <= 1 {
		return strings.Join(parts, "")
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
}

func serve(ctx context.Context, cfg *config.Config, version string) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.logger

	log.Info("Starting habitbot...",
		zap.String("version", version),
		zap.String("timezone", cfg.Scheduler.Timezone),
		zap.String("delivery_mode", cfg.Delivery.Mode),
		zap.Bool("redis", a.rdb != nil),
	)

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    "habitbot",
		ServiceVersion: version,
		Endpoint:       cfg.Otel.Endpoint,
		Exporter:       cfg.Otel.Exporter,
		Enabled:        cfg.Otel.Enabled,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer shutdownTracing()

	// Telegram
	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	botAPI.Debug = cfg.Bot.Debug
	log.Info("Authorized on Telegram", zap.String("bot", botAPI.Self.UserName))
	telegramSink := delivery.NewTelegramSink(botAPI, cfg.Bot.ChatID, log)

	var (
		wg      sync.WaitGroup
		jobSink notify.Sink = telegramSink
		deduper *util.Deduper
		replay  *outbox.ReplayService
		pruner  jobs.OutboxPruner
		checks  []httpserver.ReadyCheck
	)
	// background workers outlive ctx until the shutdown sequence stops them
	bgCtx, bgStop := context.WithCancel(context.WithoutCancel(ctx))
	defer bgStop()

	if a.rdb != nil {
		deduper = util.NewDeduper(a.rdb, dedupTTL, log)
	}

	// Queue delivery: jobs -> outbox -> RabbitMQ -> consumer -> Telegram
	if cfg.Delivery.Mode == config.DeliveryQueue {
		publisher, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			return fmt.Errorf("init mq publisher: %w", err)
		}
		defer publisher.Close()
		checks = append(checks, httpserver.ReadyCheck{Name: "mq", Ready: publisher.IsConnected})

		outboxRepo := outbox.NewRepository(a.pool)
		jobSink = delivery.NewOutboxSink(a.pool, outboxRepo, log)
		replay = outbox.NewReplayService(outboxRepo, publisher, log)
		pruner = outboxRepo

		dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).WithMaxRetries(cfg.Delivery.MaxRetries)
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.Start(bgCtx)
		}()

		consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Delivery.Queue, delivery.RoutingKey, log)
		if err != nil {
			return fmt.Errorf("init mq consumer: %w", err)
		}
		defer consumer.Close()

		handler := delivery.NewHandler(
			telegramSink,
			deduper,
			util.NewRetryCounter(a.rdb, retryCounterTTL),
			publisher,
			cfg.Delivery.MaxRetries,
			log,
		)
		consumer.SetHandler(handler.Handle)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.StartConsuming(bgCtx); err != nil {
				log.Error("Notification consumer stopped", zap.Error(err))
			}
		}()
	}

	// Scheduler
	j := jobs.New(a.tracker, a.planner, a.notebook, jobSink, cfg.Scheduler.RetentionDays, log)
	if pruner != nil {
		j.WithOutboxPruner(pruner, outboxKeep)
	}
	schedOpts := []scheduler.Option{scheduler.WithJobTimeout(cfg.Scheduler.JobTimeout())}
	if cfg.Scheduler.SlotGuard && deduper != nil {
		schedOpts = append(schedOpts, scheduler.WithSlotGuard(deduper))
	}
	engine := scheduler.New(a.loc, log, schedOpts...)
	if err := j.Register(engine, cfg.Scheduler); err != nil {
		return fmt.Errorf("register jobs: %w", err)
	}
	schedCtx, schedStop := context.WithCancel(context.WithoutCancel(ctx))
	defer schedStop()
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := engine.Run(schedCtx); err != nil {
			log.Error("Scheduler stopped", zap.Error(err))
		}
	}()

	// Bot
	var sessions session.Store = session.NewMemoryStore(cfg.Session.TTL())
	if a.rdb != nil {
		sessions = session.NewRedisStore(a.rdb, cfg.Session.TTL(), log)
	}
	handler := bot.NewHandler(a.tracker, a.planner, a.notebook, sessions, reminderTimes(cfg.Scheduler.Reminders), log)
	poller := bot.NewPoller(botAPI, handler, telegramSink, cfg.Bot.ChatID, cfg.Bot.PollTimeout, log)
	pollCtx, pollStop := context.WithCancel(ctx)
	defer pollStop()
	botDone := make(chan struct{})
	go func() {
		defer close(botDone)
		poller.Run(pollCtx)
	}()

	// HTTP
	router := httpserver.NewRouter(a.pool, log, checks...)
	if cfg.API.Enabled {
		auth := service.NewAdminAuth(cfg.API.AdminPasswordHash, cfg.JWT.Secret, time.Duration(cfg.JWT.TTLHours)*time.Hour)
		api.Register(router.Engine, api.Handlers{
			Auth:      api.NewAuthHandler(auth, log),
			Habits:    api.NewHabitHandler(a.tracker, log),
			Schedules: api.NewScheduleHandler(a.planner, log),
			Notes:     api.NewNoteHandler(a.notebook, cfg.Scheduler.RetentionDays, log),
			Admin:     api.NewAdminHandler(j, replay, log),
		}, cfg.JWT.Secret)
	}
	srv := httpserver.NewServer(cfg.Server.Port, router.Engine, log)
	srvErr := srv.Start()

	log.Info("habitbot is fully initialized and running")

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-srvErr:
		if ok && err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	// Graceful shutdown
	log.Info("Shutting down habitbot gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	pollStop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	select {
	case <-botDone:
	case <-shutdownCtx.Done():
	}

	// in-flight jobs get their full timeout before the store is released
	if drainScheduler(schedStop, schedDone, cfg.Scheduler.JobTimeout()+jobDrainMargin) {
		log.Info("Scheduler stopped")
	} else {
		log.Warn("Timed out waiting for scheduled jobs")
	}

	bgStop()
	wg.Wait()

	log.Info("habitbot shutdown complete")
	return runErr
}

// drainScheduler stops the engine and waits up to budget for its running jobs to return.
// It reports whether they did.
func drainScheduler(stop context.CancelFunc, done <-chan struct{}, budget time.Duration) bool {
	stop()
	t := time.NewTimer(budget)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}
