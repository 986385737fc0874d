package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutor_market/internal/app"
	"github.com/Freeeeeet/tutor_market/internal/config"
	"github.com/Freeeeeet/tutor_market/internal/controller"
	"github.com/Freeeeeet/tutor_market/internal/controller/httpapi"
	"github.com/Freeeeeet/tutor_market/internal/realtime"
	"github.com/Freeeeeet/tutor_market/internal/repository"
	"github.com/Freeeeeet/tutor_market/internal/repository/mongodb"
	"github.com/Freeeeeet/tutor_market/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := app.NewLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting tutor market",
		zap.String("environment", cfg.Environment),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("timezone", cfg.Location.String()),
	)

	// Postgres
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		return err
	}
	if err := migrator.Run(ctx); err != nil {
		return err
	}
	_ = migrator.Close()

	profileRepo := repository.NewUserRepository(pool)
	matchingRepo := repository.NewMatchingRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	reviewRepo := repository.NewReviewRepository(pool)

	// MongoDB для чата
	mongoDB, err := mongodb.OpenConnection(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = mongoDB.Client().Disconnect(disconnectCtx)
	}()

	conversationRepo := mongodb.NewConversationRepository(mongoDB, logger)
	messageRepo := mongodb.NewMessageRepository(mongoDB, logger)
	if err := conversationRepo.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := messageRepo.EnsureIndexes(ctx); err != nil {
		return err
	}

	broker := realtime.NewBroker(logger)
	defer broker.Close()

	// Telegram опционален: без токена уведомления только логируются
	var notifier service.Notifier = service.NewNopNotifier(logger)
	if cfg.TelegramToken != "" {
		botInstance, err := bot.New(cfg.TelegramToken)
		if err != nil {
			return err
		}
		notifier = service.NewTelegramNotifier(botInstance, profileRepo, logger)

		botController := controller.NewBotController(botInstance, logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Failed to register bot handlers", zap.Error(err))
		}
		go botController.Start(ctx)
	}

	userService := service.NewUserService(profileRepo, logger)
	matchingService := service.NewMatchingService(matchingRepo, profileRepo, broker, notifier, cfg.FollowupDelay, logger)
	bookingService := service.NewBookingService(bookingRepo, profileRepo, broker, notifier, cfg.Location, logger)
	chatService := service.NewChatService(conversationRepo, messageRepo, matchingRepo, profileRepo, broker, notifier, logger)
	reviewService := service.NewReviewService(reviewRepo, bookingRepo, notifier, logger)

	scheduler := app.NewScheduler(matchingService, bookingService, cfg.FollowupSweepInterval, cfg.BookingSweepInterval, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := httpapi.NewServer(&httpapi.Options{
		Address:   cfg.HTTPAddr,
		JWTSecret: []byte(cfg.AuthJWTSecret),
		Issuer:    cfg.AuthIssuer,
		Location:  cfg.Location,
		Debug:     !cfg.IsProduction(),
		Users:     userService,
		Matchings: matchingService,
		Bookings:  bookingService,
		Chat:      chatService,
		Reviews:   reviewService,
		Logger:    logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}
