package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/salonlime/booking_bot/internal/app"
	"github.com/salonlime/booking_bot/internal/config"
	"github.com/salonlime/booking_bot/internal/controller"
	"github.com/salonlime/booking_bot/internal/google"
	"github.com/salonlime/booking_bot/internal/metrics"
	"github.com/salonlime/booking_bot/internal/repository"
	"github.com/salonlime/booking_bot/internal/service"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting booking bot",
		zap.String("environment", cfg.Environment),
		zap.Duration("hold_ttl", cfg.HoldTTL),
		zap.Int("horizon_days", cfg.HorizonDays),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Клиенты Google: таблица как хранилище, календарь как арбитр занятости
	clients, err := google.NewClients(ctx, cfg.CredentialsFile)
	if err != nil {
		logger.Fatal("Failed to create Google clients", zap.Error(err))
	}
	sheetsClient := clients.Sheets(cfg.SpreadsheetID)
	calendarClient := clients.Calendar(cfg.CalendarID, cfg.Timezone)

	// Redis для hold'ов: переживают рестарт процесса
	redisClient := repository.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	holdRepo := repository.NewHoldRepository(redisClient)

	serviceRepo := repository.NewServiceRepository(sheetsClient)
	scheduleRepo := repository.NewScheduleRepository(sheetsClient)
	reservationRepo := repository.NewReservationRepository(sheetsClient, logger)
	waitlistRepo := repository.NewWaitlistRepository(sheetsClient)
	refData := repository.NewRefDataCache(serviceRepo, scheduleRepo, cfg.CacheTTL, nil)

	b, err := bot.New(cfg.TelegramToken)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	notifier := controller.NewTelegramNotifier(b, cfg.AdminChatID)

	waitlistSvc := service.NewWaitlistService(
		waitlistRepo, notifier,
		cfg.WaitlistMaxTimeDiff, cfg.WaitlistNotifyLimit,
		cfg.Timezone, logger,
	)
	holdSvc := service.NewHoldService(
		holdRepo, calendarClient, waitlistSvc, notifier,
		cfg.HoldTTL, cfg.HoldWarningLead,
		nil, logger,
	)
	availabilitySvc := service.NewAvailabilityService(
		refData, reservationRepo, holdRepo, calendarClient,
		cfg.HorizonDays, cfg.Timezone,
		nil, logger,
	)
	bookingSvc := service.NewBookingService(
		reservationRepo, refData, holdSvc, holdRepo,
		waitlistSvc, calendarClient, notifier,
		cfg.Timezone, nil, logger,
	)

	botController := controller.NewBotController(
		b, availabilitySvc, holdSvc, bookingSvc, waitlistSvc,
		refData, notifier, cfg.AdminChatID, cfg.Timezone, logger,
	)
	if err := botController.RegisterHandlers(ctx); err != nil {
		logger.Fatal("Failed to register handlers", zap.Error(err))
	}

	// Восстанавливаем таймеры hold'ов, переживших рестарт
	if err := holdSvc.Recover(ctx); err != nil {
		logger.Error("Failed to recover holds", zap.Error(err))
	}

	scheduler := app.NewScheduler(holdSvc, refData, cfg.SweepInterval, cfg.CacheTTL, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	metrics.Register()
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	logger.Info("Bot is running")
	b.Start(ctx)

	logger.Info("Bot stopped")
}
