package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/erclient/internal/api"
	"github.com/Checker-Finance/erclient/internal/bootstrap"
	"github.com/Checker-Finance/erclient/internal/publisher"
	"github.com/Checker-Finance/erclient/internal/store"
	"github.com/Checker-Finance/erclient/internal/syncer"
	"github.com/Checker-Finance/erclient/pkg/config"
	"github.com/Checker-Finance/erclient/pkg/erclient"
	"github.com/Checker-Finance/erclient/pkg/logger"
	"github.com/Checker-Finance/erclient/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load("er-sync")

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Info("starting [er-sync]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- Credentials (env or AWS Secrets Manager) ---
	session, err := bootstrap.NewSession(ctx, cfg, logg.Desugar(), nil)
	if err != nil {
		logg.Fatalw("failed to init credentials", "error", err, "source", cfg.SecretsSource)
	}

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(store.RedisConfig{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPass,
	}, cfg.DatabaseURL, store.PGPoolConfig{}, logg.Desugar())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}
	defer st.Close() //nolint:errcheck

	sink, err := st.Sink()
	if err != nil {
		logg.Fatalw("failed to init sink", "error", err)
	}

	// --- EarthRanger client, tokens shared across replicas through Redis ---
	client, resolved, err := session.Connect(ctx, 30*time.Second,
		erclient.WithTokenCache(store.NewRedisTokenCache(st.Redis(), cfg.Profile, 0)))
	if err != nil {
		logg.Fatalw("earthranger login failed", "error", err, "profile", cfg.Profile)
	}
	cfg = resolved

	// --- Publisher ---
	checks := map[string]api.Checker{"store": st}
	pub, err := newPublisher(cfg, checks)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err, "publisher", cfg.Publisher)
	}
	defer pub.Close() //nolint:errcheck

	// --- Syncer ---
	fields, err := syncer.ParseFieldMap(config.GetEnvList("SYNC_FIELD_MAP", nil))
	if err != nil {
		logg.Fatalw("invalid SYNC_FIELD_MAP", "error", err)
	}
	sy := syncer.New(logger.Named("syncer"),
		syncer.ClientSource{Client: client},
		sink,
		store.NewWatermarks(st.Redis(), ""),
		pub,
		syncer.Options{
			Table:     cfg.SyncTable,
			ChunkSize: cfg.SyncChunkSize,
			Lookback:  cfg.SyncLookback,
			States:    cfg.SyncStates,
			Fields:    fields,
			Site:      cfg.BaseURL,
			Interval:  cfg.SyncInterval,
		})
	go sy.Start(ctx)

	// --- HTTP API ---
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	api.RegisterRoutes(app, checks, api.NewSyncHandler(logger.Named("api"), sy))

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[er-sync] running",
		"table", cfg.SyncTable,
		"publisher", cfg.Publisher,
		"sync_interval", cfg.SyncInterval)

	<-ctx.Done()
	stop()
	logg.Info("shutting down [er-sync]...")
	sy.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	app.ShutdownWithContext(shutdownCtx) //nolint:errcheck
}

// newPublisher connects the configured broker and registers its health check.
func newPublisher(cfg *config.Config, checks map[string]api.Checker) (publisher.Publisher, error) {
	switch cfg.Publisher {
	case "nats":
		nc, err := nats.Connect(cfg.NATSURL, nats.Name(cfg.ServiceName))
		if err != nil {
			return nil, err
		}
		checks["nats"] = api.CheckFunc(func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("nats status %s", nc.Status())
			}
			return nil
		})
		return publisher.NewNATS(nc, cfg.ServiceName, logger.Named("publisher"))
	case "amqp":
		return publisher.NewAMQP(cfg.RabbitMQURL, config.GetEnv("RABBITMQ_EXCHANGE", "earthranger"), cfg.ServiceName, logger.Named("publisher"))
	case "", "none":
		return publisher.Nop{}, nil
	default:
		return nil, fmt.Errorf("unknown PUBLISHER %q (want nats, amqp or none)", cfg.Publisher)
	}
}
