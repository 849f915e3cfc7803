package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lmercier/hosting-ai-platform/internal/api/router"
	"github.com/lmercier/hosting-ai-platform/internal/cache"
	"github.com/lmercier/hosting-ai-platform/internal/config"
	"github.com/lmercier/hosting-ai-platform/internal/http/handlers"
	"github.com/lmercier/hosting-ai-platform/internal/msgsync"
	"github.com/lmercier/hosting-ai-platform/internal/notify"
	"github.com/lmercier/hosting-ai-platform/internal/observability/metrics"
	"github.com/lmercier/hosting-ai-platform/internal/push"
	"github.com/lmercier/hosting-ai-platform/internal/reply"
	"github.com/lmercier/hosting-ai-platform/internal/store"
	"github.com/lmercier/hosting-ai-platform/internal/whatsapp"
	"github.com/lmercier/hosting-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting api", "env", cfg.Env, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis backs the local message cache, fetch snapshots and notifications.
	redisOpts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)
	replyMetrics := metrics.NewReplyMetrics(registry)

	st := store.NewStore(pool)
	fetcher := store.NewCachedFetcher(st, redisClient, 0, logger)
	messageCache := cache.NewMessageCache(redisClient, cfg.MessageCacheTTL)

	var channel push.Channel
	if cfg.RealtimeURL != "" {
		channel = push.NewRealtimeClient(cfg.RealtimeURL, cfg.RealtimeAPIKey, logger)
	} else {
		logger.Warn("REALTIME_URL not set, running on polling alone")
	}

	notifier := notify.Multi{
		notify.NewLogNotifier(logger),
		notify.NewRedisPublisher(redisClient, "", logger),
	}

	manager := msgsync.NewManager(func(conversationID string) *msgsync.Engine {
		return msgsync.NewEngine(conversationID, messageCache, fetcher, channel, notifier, syncMetrics, logger, msgsync.Options{
			PollInterval:      cfg.PollInterval,
			ReconcileInterval: cfg.ReconcileInterval,
			DebounceDelay:     cfg.PushDebounce,
		})
	})
	defer manager.CloseAll()

	client, provider, reason := reply.BuildCompletionClient(ctx, reply.ProviderSelectionConfig{
		Preference:   cfg.AIProvider,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIOrgID:  cfg.OpenAIOrgID,
		OpenAIModel:  cfg.OpenAIModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	}, logger)
	if client == nil {
		logger.Error("no completion provider available", "reason", reason)
		os.Exit(1)
	}
	logger.Info("completion provider selected", "provider", provider)
	generator := reply.NewGenerator(client, provider, replyMetrics, logger)

	sender := whatsapp.NewSender(cfg.WhatsAppGraphBaseURL, nil, logger)

	handler := router.New(&router.Config{
		Logger:               logger,
		ReplyHandler:         handlers.NewReplyHandler(st, generator, logger),
		WhatsAppHandler:      handlers.NewWhatsAppHandler(st, sender, logger),
		ConversationsHandler: handlers.NewConversationsHandler(manager, logger),
		MetricsHandler:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AdminJWTSecret:       cfg.AdminJWTSecret,
		CORSAllowedOrigins:   cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
