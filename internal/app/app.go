package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/marksync/agent/internal/auth"
	"github.com/marksync/agent/internal/config"
	"github.com/marksync/agent/internal/httpserver"
	"github.com/marksync/agent/internal/httpserver/deps"
	"github.com/marksync/agent/internal/kv"
	"github.com/marksync/agent/internal/logger"
	"github.com/marksync/agent/internal/redis"
	"github.com/marksync/agent/internal/scheduler"
	"github.com/marksync/agent/internal/settings"
	"github.com/marksync/agent/internal/sources"
	"github.com/marksync/agent/internal/syncer"
	"github.com/marksync/agent/internal/token"
	"github.com/marksync/agent/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	controller  *scheduler.Controller
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Connect the state store early - fail fast if unavailable
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		DB:             cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to state store: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("state store initialized")

	store := kv.NewRedis(redisClient)
	prefs := settings.New(store, loggerClient)
	tokens := token.New(store)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	broker := auth.NewBroker(tokens, httpClient, cfg.ServerURL, loggerClient)

	source, err := sources.ForFormat(cfg.BookmarkFormat, cfg.BookmarkFile)
	if err != nil {
		loggerClient.Errorf("Invalid bookmark source: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("bookmark source configured",
		logger.String("format", source.Name()),
		logger.String("file", cfg.BookmarkFile))

	fallbackDevice := prefs.FallbackDevice(context.Background())
	syncClient := syncer.NewClient(source, broker, tokens, httpClient, cfg.ServerURL, fallbackDevice, loggerClient)

	controller := scheduler.NewController(prefs, syncClient, loggerClient)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:       loggerClient,
		StartTime:    time.Now(),
		Version:      version.Version,
		Commit:       version.Commit,
		BuildDate:    version.BuildDate,
		GoVersion:    version.GoVersion,
		AllowedCIDRS: cfg.AllowedCIDRS,
		RedisClient:  redisClient,
		Settings:     prefs,
		Syncer:       syncClient,
		Scheduler:    controller,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		controller:  controller,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting marksync %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("marksync %s (commit=%s, built=%s, go=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Evaluate the stored schedule once at startup; the timer arms itself
	// when auto-sync is enabled.
	if err := a.controller.Apply(ctx); err != nil {
		return fmt.Errorf("failed to apply sync schedule: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("control API error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.controller.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop control API: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close state store: %v", err)
		} else {
			a.logger.Info("✅ state store closed cleanly")
		}
	}

	a.logger.Info("✅ marksync stopped cleanly")
	return nil
}
