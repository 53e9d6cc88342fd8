// Package main запускает HTTP-сервер платформы fundvault.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/fundvault/internal/config"
	"github.com/mmeshcher/fundvault/internal/handler"
	"github.com/mmeshcher/fundvault/internal/middleware"
	"github.com/mmeshcher/fundvault/internal/notify"
	"github.com/mmeshcher/fundvault/internal/price"
	"github.com/mmeshcher/fundvault/internal/repository"
	"github.com/mmeshcher/fundvault/internal/scheduler"
	"github.com/mmeshcher/fundvault/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		sugar.Fatalw("database initialization error", "error", err.Error())
	}

	priceOpts := []price.Option{price.WithLogger(logger)}
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			sugar.Fatalw("redis configuration error", "error", err.Error())
		}
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		priceOpts = append(priceOpts, price.WithCache(price.NewRedisCache(rdb, "fundvault:price:"), cfg.PriceCacheTTL))
		sugar.Infow("price cache enabled", "ttl", cfg.PriceCacheTTL.String())
	}
	prices := price.NewClient(cfg.PriceOracleAddress, priceOpts...)

	var publisher notify.Publisher
	if cfg.RabbitMQURL != "" {
		amqpPublisher, err := notify.NewAMQPPublisher(cfg.RabbitMQURL, cfg.NotificationExchange)
		if err != nil {
			sugar.Fatalw("rabbitmq initialization error", "error", err.Error())
		}
		publisher = amqpPublisher
	} else {
		sugar.Info("RABBITMQ_URL is not set, notifications are written to the log")
		publisher = notify.NewLogPublisher(logger)
	}

	svc := service.NewService(repo, prices, publisher, logger,
		service.WithTwoFactorCode(cfg.TwoFactorCode),
		service.WithAdminEmail(cfg.AdminEmail),
	)
	defer svc.Close()

	if cfg.JWTSecret == "" {
		sugar.Warn("JWT_SECRET is not set, sessions will not survive a restart")
	}
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTSecret, middleware.WithUserLookup(svc))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if len(cfg.CORSAllowedOrigins) == 0 {
		sugar.Info("CORS_ALLOWED_ORIGINS is not set, cross-origin requests are not allowed")
	}
	h := handler.NewHandler(svc, logger, authMiddleware, reg, handler.WithAllowedOrigins(cfg.CORSAllowedOrigins))

	server := &http.Server{
		Addr:              cfg.RunAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.ProfitDistributionSchedule != "" {
		sched, err := scheduler.New(svc, logger, cfg.ProfitDistributionSchedule)
		if err != nil {
			sugar.Fatalw("scheduler configuration error", "error", err.Error())
		}
		g.Go(func() error {
			sched.Start()
			<-ctx.Done()
			<-sched.Stop().Done()
			sugar.Info("scheduler stopped")
			return nil
		})
	}

	g.Go(func() error {
		sugar.Infow("starting fundvault server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}
