package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/oddscope/matchpulse/internal/api"
	"github.com/oddscope/matchpulse/internal/cache"
	"github.com/oddscope/matchpulse/internal/config"
	"github.com/oddscope/matchpulse/internal/database"
	"github.com/oddscope/matchpulse/internal/engine"
	"github.com/oddscope/matchpulse/internal/services"
	"github.com/oddscope/matchpulse/internal/telemetry"
	"github.com/oddscope/matchpulse/internal/upstream"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Environment: cfg.Environment,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logrus.WithError(err).Warn("Telemetry initialization failed, continuing without tracing")
	}

	logHook, err := telemetry.NewLogHook(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		Environment: cfg.Environment,
	})
	if err != nil {
		logrus.WithError(err).Warn("Log shipping initialization failed, continuing with stdout only")
	} else if logHook != nil {
		logrus.AddHook(logHook)
	}

	// Persistence is best-effort: a down database disables snapshots
	// and history, never live predictions.
	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		logrus.WithError(err).Warn("Database unavailable, persistence features disabled")
		db = nil
	} else {
		defer db.Close()
	}

	redisClient, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		logrus.WithError(err).Warn("Redis unavailable, using in-memory caches only")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	var repo *database.PredictionRepository
	if db != nil {
		repo = database.NewPredictionRepository(db.Pool)
	}

	var cacheBackend *redis.Client
	if redisClient != nil {
		cacheBackend = redisClient.Client
	}
	oddsCache := cache.NewOddsCache(cacheBackend, config.Duration(cfg.Ingestion.OddsTTL), "odds:")
	preMatchCache := cache.NewOddsCache(cacheBackend, config.Duration(cfg.Ingestion.PreMatchOddsTTL), "prematch:")

	feed := upstream.NewClient(&cfg.Upstream)
	broadcaster := services.NewBroadcaster(redisClient)

	stateManager := services.NewStateManager(services.StateManagerConfig{
		ModelConfig:     engine.ModelConfig{HomeBaseXG: cfg.Engine.HomeBaseXG, AwayBaseXG: cfg.Engine.AwayBaseXG},
		BookmakerMargin: cfg.Engine.BookmakerMargin,
		ActivityWindow:  config.Duration(cfg.State.ActivityWindow),
		ActivityBuffer:  config.Duration(cfg.State.ActivityBuffer),
		IdleEviction:    config.Duration(cfg.State.IdleEviction),
		SweepInterval:   config.Duration(cfg.State.SweepInterval),
	})
	stateManager.Start()
	defer stateManager.Stop()

	ingestion := services.NewIngestionService(feed, oddsCache, preMatchCache, broadcaster, services.IngestionConfig{
		PollInterval:   config.Duration(cfg.Ingestion.PollInterval),
		AllowedLeagues: cfg.Ingestion.AllowedLeagues,
		DeniedLeagues:  cfg.Ingestion.DeniedLeagues,
	})
	ingestion.Start(ctx)
	defer ingestion.Stop()

	var writerStore services.SnapshotStore
	if repo != nil {
		writerStore = repo
	}
	writer := services.NewSnapshotWriter(writerStore)

	notifier := services.NewNotificationService(services.NotificationConfig{
		BotToken:       cfg.Telegram.BotToken,
		ChatID:         cfg.Telegram.ChatID,
		MinEdge:        cfg.Telegram.MinEdge,
		MinProbability: cfg.Telegram.MinProbability,
	})

	predictions := services.NewPredictionService(services.PredictionServiceConfig{
		Interval:        config.Duration(cfg.Ingestion.PredictionInterval),
		ModelConfig:     engine.ModelConfig{HomeBaseXG: cfg.Engine.HomeBaseXG, AwayBaseXG: cfg.Engine.AwayBaseXG},
		BookmakerMargin: cfg.Engine.BookmakerMargin,
	}, stateManager, ingestion, oddsCache, broadcaster, writer, notifier)
	predictions.Start(ctx)
	defer predictions.Stop()

	var pruner services.SnapshotPruner
	if repo != nil {
		pruner = repo
	}
	retention := services.NewRetentionService(pruner, services.RetentionConfig{
		RetentionDays: cfg.Cleanup.SnapshotRetentionDays,
		Interval:      time.Duration(cfg.Cleanup.CleanupIntervalMinutes) * time.Minute,
	})
	retention.Start(ctx)
	defer retention.Stop()

	monitor := services.NewResourceMonitor(30 * time.Second)
	monitor.Start(ctx)
	defer monitor.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(telemetry.ServiceName))

	api.SetupRoutes(router, api.Dependencies{
		DB:          db,
		Redis:       redisClient,
		Repo:        repo,
		Upstream:    feed,
		Ingestion:   ingestion,
		Predictions: predictions,
		Monitor:     monitor,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
	}

	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}
	if tracing != nil {
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Warn("Tracer shutdown failed")
		}
	}
	if err := logHook.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("Log exporter shutdown failed")
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stdout)
	logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}
