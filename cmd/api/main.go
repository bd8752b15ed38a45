package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/remindly/deadline-service/internal/config"
	"github.com/remindly/deadline-service/internal/domain"
	"github.com/remindly/deadline-service/internal/handler"
	"github.com/remindly/deadline-service/internal/infra/postgresql"
	"github.com/remindly/deadline-service/internal/infra/postgresql/migrations"
	infraredis "github.com/remindly/deadline-service/internal/infra/redis"
	"github.com/remindly/deadline-service/internal/mailer"
	"github.com/remindly/deadline-service/internal/observability"
	"github.com/remindly/deadline-service/internal/repository"
	"github.com/remindly/deadline-service/internal/service"
	"github.com/remindly/deadline-service/internal/transport"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal("invalid timezone", zap.String("timezone", cfg.Timezone), zap.Error(err))
	}

	precision, err := domain.ParsePrecisionFromString(cfg.DatePrecision)
	if err != nil {
		logger.Fatal("invalid date precision", zap.String("precision", cfg.DatePrecision), zap.Error(err))
	}

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN())
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	rateLimiter, err := infraredis.NewRedisRateLimiter(rdb, cfg.MailRatePerSec)
	if err != nil {
		logger.Fatal("rate limiter initialization failed", zap.Error(err))
	}

	smtpMailer, err := mailer.NewSMTPMailer(mailer.SMTPConfig{
		Host:               cfg.SMTPHost,
		Port:               cfg.SMTPPort,
		Username:           cfg.SMTPUser,
		Password:           cfg.SMTPPassword,
		SenderAddress:      cfg.MailSenderAddress,
		SenderName:         cfg.MailSenderName,
		InsecureSkipVerify: cfg.MailInsecureSkipVerify,
		SendTimeout:        cfg.MailSendTimeout(),
	})
	if err != nil {
		logger.Fatal("mailer initialization failed", zap.Error(err))
	}

	deadlineRepo := repository.NewGormDeadlineRepo(db)

	deadlineService, err := service.NewDeadlineService(deadlineRepo, location, precision, logger)
	if err != nil {
		logger.Fatal("deadline service initialization failed", zap.Error(err))
	}

	scheduler, err := service.NewScheduler(
		deadlineRepo,
		smtpMailer,
		rateLimiter,
		cfg.TickInterval(),
		cfg.ScanLimit,
		location,
		precision,
		logger,
	)
	if err != nil {
		logger.Fatal("scheduler initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	scheduler.SetMetrics(metrics)

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	if err := handler.RegisterDeadlineRoutes(app, deadlineService); err != nil {
		logger.Fatal("route registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("scheduler started",
			zap.Duration("interval", cfg.TickInterval()),
			zap.String("timezone", cfg.Timezone),
			zap.String("precision", precision.String()),
		)
		return scheduler.Start(gctx)
	})

	g.Go(func() error {
		logger.Info("api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("service terminated", zap.Error(err))
	}

	logger.Info("service stopped")
}
