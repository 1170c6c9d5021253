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

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"storefront/internal/assistant"
	"storefront/internal/assistant/gemini"
	"storefront/internal/config"
	httpapi "storefront/internal/http"
	"storefront/internal/logging"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/telemetry"

	_ "storefront/docs"
)

// @title Storefront API
// @version 1.0
// @description Catalog, session cart and shopping assistant of a single-brand storefront.
// @BasePath /api/v1
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("STOREFRONT_CONFIG"))
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	if cfg.Logging.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing, err := telemetry.Setup(telemetry.Options{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
	})
	if err != nil {
		return err
	}

	profile, err := repository.LoadProfile(cfg.Profile)
	if err != nil {
		return fmt.Errorf("%w (available: %v)", err, repository.ProfileNames())
	}
	catalogRepo := repository.NewProfileCatalog(profile)

	var (
		sessions repository.SessionRepository
		health   func(ctx context.Context) error
		memory   *repository.MemorySessions
	)
	switch cfg.Session.Store {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		defer func() { _ = client.Close() }()
		store := repository.NewRedisSessions(client, cfg.Session.RedisPrefix, cfg.Session.TTL)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := store.Ping(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis %s: %w", cfg.Session.RedisAddr, err)
		}
		sessions, health = store, store.Ping
	default:
		memory = repository.NewMemorySessions(cfg.Session.TTL)
		sessions = memory
	}

	catalogSvc := service.NewCatalogService(catalogRepo, profile)
	cartSvc := service.NewCartService(catalogRepo, sessions, repository.NewMemoryTx(), profile, logger.Named("cart"))

	if cfg.Assistant.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; assistant replies will use the fallback message")
	}
	model := gemini.NewClient(gemini.Config{
		APIKey:     cfg.Assistant.APIKey,
		BaseURL:    cfg.Assistant.BaseURL,
		Model:      cfg.Assistant.Model,
		Timeout:    cfg.Assistant.Timeout,
		MaxRetries: cfg.Assistant.MaxRetries,
		Logger:     logger.Named("gemini"),
	})
	assistantLogger := logger.Named("assistant")
	conversations := assistant.NewConversations(func(sid string) *assistant.Bridge {
		return assistant.NewBridge(model, catalogSvc, cartSvc.ForSession(sid), assistant.Options{
			Copy:        profile.Assistant,
			Currency:    profile.Currency,
			Temperature: &cfg.Assistant.Temperature,
			MaxRounds:   cfg.Assistant.MaxRounds,
			Logger:      assistantLogger.With(zap.String("session_id", sid)),
		})
	}, cfg.Session.TTL)

	srv := httpapi.NewServer(catalogSvc, cartSvc, conversations, httpapi.Options{
		SessionKey:   cfg.SessionKey,
		CookieSecure: cfg.Server.CookieSecure,
		CookieDomain: cfg.Server.CookieDomain,
		CSRFKey:      cfg.CSRFKey,
		TrustedOrigins: []string{
			"localhost:" + cfg.Server.Port, "127.0.0.1:" + cfg.Server.Port, "localhost", "127.0.0.1",
		},
		Health: health,
		Logger: logger.Named("http"),
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweep(sweepCtx, logger, memory, conversations)

	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", httpServer.Addr),
			zap.String("profile", profile.Name),
			zap.String("session_store", cfg.Session.Store),
			zap.String("model", model.Model()),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}
	return nil
}

// sweep drops expired in-memory sessions and idle conversations
func sweep(ctx context.Context, logger *zap.Logger, memory *repository.MemorySessions, conversations *assistant.Conversations) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions := 0
			if memory != nil {
				sessions = memory.Sweep()
			}
			convs := conversations.Sweep()
			if sessions > 0 || convs > 0 {
				logger.Debug("swept idle state", zap.Int("sessions", sessions), zap.Int("conversations", convs))
			}
		}
	}
}
