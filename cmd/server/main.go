package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sparkplay/dominion-server-go/internal/bot"
	"github.com/sparkplay/dominion-server-go/internal/config"
	"github.com/sparkplay/dominion-server-go/internal/game"
	"github.com/sparkplay/dominion-server-go/internal/game/cards"
	"github.com/sparkplay/dominion-server-go/internal/game/rules"
	"github.com/sparkplay/dominion-server-go/internal/server"
	"github.com/sparkplay/dominion-server-go/internal/spark"
	"github.com/sparkplay/dominion-server-go/internal/storage"
	"github.com/sparkplay/dominion-server-go/internal/storage/postgres"
	"github.com/sparkplay/dominion-server-go/internal/storage/sqlite"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	envFile    = flag.String("env", ".env", "optional dotenv file loaded before configuration")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// A missing .env is normal outside development.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", *envFile, err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting dominion server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)
	if cfg.Auth.AdminPasswordHash == "" {
		logger.Warn("admin password hash not configured; admin endpoints disabled")
	}
	if cfg.Spark.WebhookSecret == "" {
		logger.Warn("webhook secret not configured; webhook signatures are not checked")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commandLog, err := openCommandLog(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open command log: %w", err)
	}
	defer commandLog.Close()
	logger.Info("command log ready", zap.String("driver", cfg.Database.Driver))

	client := spark.NewClient(spark.Options{
		BaseURL:    cfg.Spark.APIBase,
		Token:      cfg.Spark.Token,
		AdminToken: cfg.Spark.AdminToken,
		Timeout:    cfg.Spark.Timeout,
		MaxRetries: cfg.Spark.MaxRetries,
		Logger:     logger.Named("spark"),
	})
	outbox := spark.NewOutbox(client, cfg.Spark.OutboxSize, logger.Named("outbox"))
	gate := bot.NewGate(outbox)

	events := rules.NewEventBus()
	hub := server.NewHub(cfg.Server.WebSocket.WriteTimeout, cfg.Server.WebSocket.SendBufferSize, logger.Named("ws"))
	if cfg.Server.WebSocket.Enabled {
		hub.Attach(events)
	}

	manager := game.NewManager(game.ManagerConfig{
		Catalog:     cards.Standard(),
		Notifier:    gate,
		Events:      events,
		Logger:      logger.Named("game"),
		KingdomSize: cfg.Game.KingdomSize,
		PileSize:    cfg.Game.KingdomPileSize,
		MaxPlayers:  cfg.Game.MaxPlayers,
	})

	handler, err := bot.NewHandler(bot.Options{
		Manager:   manager,
		Gate:      gate,
		People:    client,
		Log:       commandLog,
		BotID:     cfg.Spark.BotPersonID,
		AdminRoom: cfg.Spark.AdminRoom,
		Logger:    logger.Named("bot"),
	})
	if err != nil {
		return err
	}

	if cfg.Database.Replay {
		n, err := handler.Replay(ctx)
		if err != nil {
			return fmt.Errorf("replay command log: %w", err)
		}
		logger.Info("games restored",
			zap.Int("commands", n),
			zap.Int("active_games", manager.ActiveCount()),
		)
	}

	// Background work outlives the signal so the outbox can drain on shutdown.
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := outbox.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox stopped", zap.Error(err))
		}
	}()
	if cfg.Server.WebSocket.Enabled {
		go hub.Run(runCtx)
	}

	var grpcDone chan error
	if cfg.Server.GRPC.Enabled {
		lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.Server.GRPC.Address, err)
		}
		grpcServer := server.NewGRPCServer(logger.Named("grpc"))
		grpcDone = make(chan error, 1)
		go func() {
			logger.Info("starting gRPC health server", zap.String("address", cfg.Server.GRPC.Address))
			grpcDone <- grpcServer.Serve(runCtx, lis)
		}()
	}

	var wsHub *server.Hub
	if cfg.Server.WebSocket.Enabled {
		wsHub = hub
	}
	httpServer := &http.Server{
		Addr: cfg.Server.HTTP.Address,
		Handler: server.NewRouter(server.HTTPOptions{
			Fetcher:           client,
			Handler:           handler,
			Manager:           manager,
			Hub:               wsHub,
			Outbox:            outbox,
			Logger:            logger.Named("http"),
			Version:           version,
			Timeout:           cfg.Server.HTTP.WriteTimeout,
			WebhookSecret:     cfg.Spark.WebhookSecret,
			AdminUser:         cfg.Auth.AdminUser,
			AdminPasswordHash: cfg.Auth.AdminPasswordHash,
		}),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
	}
	httpDone := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpDone <- err
			return
		}
		httpDone <- nil
	}()

	logger.Info("dominion server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.Bool("grpc_enabled", cfg.Server.GRPC.Enabled),
		zap.Bool("websocket_enabled", cfg.Server.WebSocket.Enabled),
	)

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-httpDone:
		logger.Error("HTTP server error", zap.Error(serveErr))
	}

	logger.Info("shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}

	// Give queued chat messages a moment to drain before the outbox stops.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.Server.HTTP.ShutdownTimeout/2)
	if err := outbox.Drain(drainCtx); err != nil {
		logger.Warn("outbox not drained", zap.Int("pending", outbox.Pending()), zap.Error(err))
	}
	drainCancel()
	cancel()
	select {
	case <-outbox.Done():
	case <-time.After(cfg.Server.HTTP.ShutdownTimeout / 2):
		logger.Warn("outbox still delivering at exit")
	}

	if grpcDone != nil {
		if err := <-grpcDone; err != nil {
			logger.Warn("gRPC server error", zap.Error(err))
		}
	}

	logger.Info("dominion server stopped",
		zap.Int("active_games", manager.ActiveCount()),
		zap.Int64("dropped_notifications", outbox.Dropped()),
	)
	return serveErr
}

// openCommandLog selects the command log backend named by cfg.Driver.
func openCommandLog(ctx context.Context, cfg config.DatabaseConfig) (storage.CommandLog, error) {
	switch cfg.Driver {
	case "memory", "":
		return storage.NewMemory(), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create %s: %w", dir, err)
			}
		}
		return sqlite.Open(cfg.SQLitePath)
	case "postgres":
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		return postgres.Open(connectCtx, cfg.URL, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
