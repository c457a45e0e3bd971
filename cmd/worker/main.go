package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/vaultledger/vaultledger/internal/app"
	"github.com/vaultledger/vaultledger/internal/cryptox"
	"github.com/vaultledger/vaultledger/internal/keys"
	"github.com/vaultledger/vaultledger/internal/ledger"
	"github.com/vaultledger/vaultledger/internal/observability"
	"github.com/vaultledger/vaultledger/internal/platform/db"
	"github.com/vaultledger/vaultledger/internal/securepayload"
	"github.com/vaultledger/vaultledger/internal/shared"
	"github.com/vaultledger/vaultledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	material, err := keys.Load(cfg.Keys())
	if err != nil {
		logger.Error("load key material", slog.Any("error", err))
		os.Exit(1)
	}
	cipher, err := cryptox.NewSymmetricCipher(material.SymmetricKey)
	if err != nil {
		logger.Error("init cipher", slog.Any("error", err))
		os.Exit(1)
	}
	// Packets arriving here were addressed to our own public key.
	mapper, err := securepayload.NewMapper(material.PublicKey, material.PrivateKey)
	if err != nil {
		logger.Error("init packet mapper", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	ledgerService := ledger.NewService(
		ledger.NewRepository(pool, ledger.NewAccountCodec(cipher)),
		shared.NewAuditLogger(pool),
		mapper,
		ledger.Config{MinAmount: cfg.LedgerMinAmount, Logger: logger, Metrics: metrics},
	)

	relayJob := jobs.NewRelayJob(mapper, logger, metrics.Jobs())
	integrityJob := jobs.NewIntegrityJob(ledgerService, logger, metrics.Jobs())

	integrityTask, err := jobs.NewIntegrityTask(jobs.DefaultIntegrityLimit)
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerRelay, Handler: relayJob.Handle},
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
