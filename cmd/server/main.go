package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/seat-reservation/internal/cache"
	"github.com/eventhall/seat-reservation/internal/config"
	"github.com/eventhall/seat-reservation/internal/coordinator"
	"github.com/eventhall/seat-reservation/internal/database"
	"github.com/eventhall/seat-reservation/internal/eventlog"
	"github.com/eventhall/seat-reservation/internal/handler"
	"github.com/eventhall/seat-reservation/internal/queue"
	"github.com/eventhall/seat-reservation/internal/repository"
	"github.com/eventhall/seat-reservation/internal/router"
	"github.com/eventhall/seat-reservation/internal/store"
)

func main() {
	_ = godotenv.Load()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.Load()
	if cfg.Env == "dev" {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Rebuild state from the event log, then reopen it for appends.
	replayed, err := eventlog.Replay(cfg.EventLogPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to replay event log")
	}
	journal, err := eventlog.Open(cfg.EventLogPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to open event log")
	}
	defer journal.Close()

	var (
		areaStore    store.AreaStateStore
		reservations coordinator.ReservationStore
	)
	switch cfg.StoreBackend {
	case "mysql":
		db, err := database.Open(cfg)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to database")
		}
		defer db.Close()
		areaStore = store.NewMySQLStore(db, journal)
		reservations = repository.NewMySQLReservations(db)
	default:
		// Seed the journaled live store from the replayed snapshots.
		mem := store.NewMemoryStore(journal)
		for _, status := range replayed.Store.Snapshots() {
			mem.Restore(status)
		}
		memRes := repository.NewMemoryReservations()
		memRes.Restore(replayed.Reservations, replayed.Outcomes)
		areaStore = mem
		reservations = memRes
	}

	rdb := config.NewRedisClient(cfg)
	if rdb == nil {
		logger.Warn("redis unavailable, snapshot cache and rate limiting disabled")
	}
	snapshots := cache.New(rdb, cfg.SnapshotCacheTTL, logger)

	var publisher coordinator.OutcomePublisher
	if cfg.AMQPURL != "" {
		publisher = queue.NewPublisher(cfg.AMQPURL, logger)
	}

	coord := coordinator.New(coordinator.Property{
		Logger:       logger,
		AreaStore:    areaStore,
		Reservations: reservations,
		Journal:      journal,
		Publisher:    publisher,
		Snapshots:    snapshots,
		MaxAttempts:  cfg.MaxAttempts,
	})
	defer coord.Close()

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if cfg.AMQPURL != "" {
		go queue.StartReservationConsumer(consumerCtx, cfg.AMQPURL, coord, logger)
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e,
		handler.NewEventHandler(coord),
		handler.NewReservationHandler(coord),
		handler.NewAreaHandler(areaStore, snapshots),
		config.LoadRateLimitConfig(), rdb)

	go func() {
		addr := ":" + cfg.Port
		logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env}).Info("listening")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	stopConsumer()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("forced shutdown")
	}
}
