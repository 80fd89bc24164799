package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"zawaj/backend/internal/account"
	"zawaj/backend/internal/api"
	"zawaj/backend/internal/api/handler"
	"zawaj/backend/internal/api/middleware"
	"zawaj/backend/internal/auth"
	"zawaj/backend/internal/chathub"
	"zawaj/backend/internal/config"
	"zawaj/backend/internal/localization"
	"zawaj/backend/internal/logger"
	"zawaj/backend/internal/moderation"
	"zawaj/backend/internal/notification"
	"zawaj/backend/internal/storage"
	"zawaj/backend/internal/telegram"
	"zawaj/backend/internal/validation"
	"zawaj/backend/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), storage.GormConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect PostgreSQL")
	}
	if err := storage.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	// Redis is optional: without it the hub delivers locally and suspension
	// checks read the database.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to connect Redis")
		}
	}

	logger.Info().Bool("redis", rdb != nil).Msg("database ready, migrations complete")
	return db, rdb
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("production")
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger.Init(cfg.Env)
	logger.Info().Str("env", cfg.Env).Msg("starting zawaj backend")

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, rdb := setupDependencies(ctx, cfg)
	store := storage.NewStorageService(db, rdb)

	var broker chathub.Broker
	if rdb != nil {
		broker = store
	}
	hub := chathub.NewManagerService(broker)

	localizer, err := localization.Default()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load translations")
	}
	notifications := notification.NewService(store, localizer, cfg.DefaultLanguage, hub)

	var bot *telegram.BotService
	if cfg.TelegramBotToken != "" {
		bot, err = telegram.NewBotService(cfg.TelegramBotToken, store, localizer, cfg.DefaultLanguage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to start Telegram bot")
		}
		notifications.AddPusher(telegram.NewNotifier(bot.Sender(), store))
	} else {
		logger.Info().Msg("TELEGRAM_BOT_TOKEN not set, Telegram channel disabled")
	}

	policy := cfg.RequestPolicy()
	validator := validation.New(policy)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)

	requests := workflow.NewService(store, notifications, validator, policy)
	h := handler.NewHandler(
		account.NewService(store, tokens, validator),
		requests,
		moderation.NewService(store, notifications, hub, validator),
		notifications,
		hub,
	)

	authLimiter := middleware.NewIPRateLimiter(rate.Limit(20.0/60.0), 10)
	apiLimiter := middleware.NewIPRateLimiter(rate.Limit(10), 50)
	router := api.NewRouter(h, api.RouterConfig{
		Tokens:      tokens,
		Suspensions: store,
		FrontendURL: cfg.FrontendURL,
		AuthLimiter: authLimiter,
		APILimiter:  apiLimiter,
	})

	go hub.Run(ctx)
	go workflow.NewSweeper(requests, cfg.SweepInterval).Run(ctx)
	go authLimiter.Cleanup(ctx, time.Minute, 3*time.Minute)
	go apiLimiter.Cleanup(ctx, time.Minute, 3*time.Minute)
	if bot != nil {
		go bot.Run(ctx)
	}

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown failed")
	}
	notifications.Wait()
	if rdb != nil {
		_ = rdb.Close()
	}
}
