package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"tg-sanctions/internal/audit"
	"tg-sanctions/internal/bot"
	"tg-sanctions/internal/config"
	"tg-sanctions/internal/crash"
	"tg-sanctions/internal/handler"
	"tg-sanctions/internal/logger"
	"tg-sanctions/internal/sanction"
	"tg-sanctions/internal/service"
	"tg-sanctions/internal/storage"
)

var _ service.Store = (*storage.ActionRepository)(nil)

func main() {
	defer crash.RecoverWithStackAndExit("main")
	crash.SetupCrashHandler()

	configPath := flag.String("config", "configs/config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logger.Setup(cfg); err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	defer logger.Sync()

	if err := sanction.ValidateRegistry(); err != nil {
		logger.Fatalf("Invalid action registry: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.Open(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	if err := storage.Migrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	var background conc.WaitGroup

	var (
		rdb     *goredis.Client
		ids     storage.IDReserver
		journal audit.Journal
	)
	if cfg.Redis.Enabled {
		rdb, err = storage.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to redis: %v", err)
		}
		ids = storage.NewRedisCounter(rdb, cfg.Redis.KeyPrefix)
		journal = audit.NewRedisJournal(rdb, cfg.Redis.KeyPrefix, cfg.Moderation.AuditWindow)
		logger.Infof("Using redis at %s for id counter and audit journal", cfg.Redis.Addr)
	} else {
		ids = storage.NewCounterRepository(db)
		mem := audit.NewMemoryJournal(cfg.Moderation.AuditWindow)
		crash.Go(&background, "audit-journal", func() {
			mem.Run(ctx, cfg.Moderation.AuditWindow)
		})
		journal = mem
	}
	store := storage.NewActionRepository(db, ids, cfg.Moderation.IDCounter)

	botService, server, err := bot.Initialize(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to initialize bot: %v", err)
	}

	actuator := bot.NewActuator(botService.Bot, cfg.Bot.ChatID)
	notifier := bot.NewNotifier(botService.Bot)
	dispatcher := service.NewDispatcher(store, bot.NewModLog(botService.Bot, cfg.Bot.LogChatID))
	clock := service.SystemClock{}

	svc := service.New(service.Options{
		Store:        store,
		Actuator:     actuator,
		Notifier:     notifier,
		Dispatcher:   dispatcher,
		Clock:        clock,
		System:       botService.Self,
		RejoinReason: cfg.Moderation.RejoinReason,
	})
	reader := audit.NewReader(journal, cfg.Moderation.AuditRetryDelay, cfg.Moderation.AuditWindow)
	correlator := service.NewCorrelator(reader, dispatcher, botService.Self, cfg.Moderation.AuditRetries)
	reconciler := service.NewReconciler(
		store,
		bot.NewDirectory(botService.Bot, cfg.Bot.ChatID),
		actuator,
		notifier,
		dispatcher,
		clock,
		botService.Self,
		service.ReconcilerConfig{
			Interval:        cfg.Moderation.ReconcileInterval,
			ReversalTimeout: cfg.Moderation.ReversalTimeout,
			Reason:          cfg.Moderation.ExpiredReason,
		},
	)

	h := handler.New(ctx, cfg.Bot.ChatID, botService.Self.ID, svc, correlator, journal)
	h.SetupHandlers(botService.Handler)

	crash.SafeGoroutine("http-server", func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server error: %v", err)
		}
	})

	ready := make(chan struct{})
	crash.Go(&background, "bot-handler", func() {
		if err := botService.Start(); err != nil {
			logger.Errorf("Bot handler stopped: %v", err)
		}
	})
	close(ready)

	crash.Go(&background, "reconciler", func() {
		reconciler.Run(ctx, ready)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	sig := <-sigChan
	logger.Infof("Received signal: %v, shutting down...", sig)
	cancel()

	timeout := cfg.Moderation.ShutdownTimeout
	if !reconciler.Wait(timeout) {
		logger.Warning("Some reversals were cancelled during shutdown")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := botService.Stop(shutdownCtx); err != nil {
		logger.Warningf("Bot handler did not stop cleanly: %v", err)
	}
	h.WaitForHandlers()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warningf("HTTP server shutdown error: %v", err)
	}
	background.Wait()

	if err := closeAll(db, rdb); err != nil {
		logger.Errorf("Error while closing connections: %v", err)
	}
	logger.Info("Shutdown complete")
}

func closeAll(db *gorm.DB, rdb *goredis.Client) error {
	err := storage.Close(db)
	if rdb != nil {
		err = multierr.Append(err, rdb.Close())
	}
	return err
}
