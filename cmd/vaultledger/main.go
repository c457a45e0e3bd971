package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/vaultledger/vaultledger/cmd/vaultledger/cli"
	"github.com/vaultledger/vaultledger/internal/app"
	"github.com/vaultledger/vaultledger/internal/auth"
	"github.com/vaultledger/vaultledger/internal/cryptox"
	"github.com/vaultledger/vaultledger/internal/keys"
	"github.com/vaultledger/vaultledger/internal/ledger"
	"github.com/vaultledger/vaultledger/internal/observability"
	"github.com/vaultledger/vaultledger/internal/platform/cache"
	"github.com/vaultledger/vaultledger/internal/platform/db"
	"github.com/vaultledger/vaultledger/internal/rbac"
	"github.com/vaultledger/vaultledger/internal/securepayload"
	"github.com/vaultledger/vaultledger/internal/shared"
	"github.com/vaultledger/vaultledger/internal/tokens"
	"github.com/vaultledger/vaultledger/internal/users"
	"github.com/vaultledger/vaultledger/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	if len(os.Args) > 1 && os.Args[1] == "jobs" {
		os.Exit(runJobs(ctx, cfg, os.Args[2:]))
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
	tokenService, err := tokens.NewService(material.PrivateKey, material.PublicKey, cfg.Tokens())
	if err != nil {
		logger.Error("init token service", slog.Any("error", err))
		os.Exit(1)
	}
	mapper, err := securepayload.NewMapper(material.PeerPublicKey, material.PrivateKey)
	if err != nil {
		logger.Error("init packet mapper", slog.Any("error", err))
		os.Exit(1)
	}
	public, err := cfg.PublicEndpointList()
	if err != nil {
		logger.Error("parse public endpoints", slog.Any("error", err))
		os.Exit(1)
	}

	dbpool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisOpts := cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB}
	redisClient, err := cache.New(ctx, redisOpts)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(dbpool)

	userService := users.NewService(users.NewRepository(dbpool))
	authService := auth.NewService(userService, tokenService)

	ledgerCfg := cfg.Ledger()
	ledgerCfg.Logger = logger
	ledgerCfg.Metrics = metrics
	if cfg.LedgerRelay {
		relay := jobs.NewClient(asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB})
		defer func() {
			if err := relay.Close(); err != nil {
				logger.Warn("relay client close", slog.Any("error", err))
			}
		}()
		ledgerCfg.Relayer = relay
	}
	ledgerService := ledger.NewService(
		ledger.NewRepository(dbpool, ledger.NewAccountCodec(cipher)),
		auditLogger,
		mapper,
		ledgerCfg,
	)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Gate:          auth.NewGate(tokenService, public, logger, metrics),
		Authorizer:    rbac.Middleware{Engine: rbac.DefaultEngine(), Logger: logger},
		AuthHandler:   auth.NewHandler(logger, authService),
		UsersHandler:  users.NewHandler(logger, userService),
		LedgerHandler: ledger.NewHandler(logger, ledgerService),
		Readiness:     []app.Check{app.PostgresCheck(dbpool), app.RedisCheck(redisClient)},
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// runJobs implements "vaultledger jobs trigger|stats".
func runJobs(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	job := fs.String("job", jobs.TaskLedgerIntegrity, "job to trigger")
	queue := fs.String("queue", jobs.QueueLedger, "queue to inspect")
	limit := fs.Int("limit", jobs.DefaultIntegrityLimit, "maximum violations reported by an integrity run")
	asJSON := fs.Bool("json", false, "print JSON")
	if len(args) == 0 {
		fs.Usage()
		return 2
	}
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	c := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
	defer func() { _ = c.Close() }()
	return c.JobsCommand(ctx, cli.JobsOptions{
		Action:     args[0],
		Job:        *job,
		Queue:      *queue,
		Limit:      *limit,
		JSONOutput: *asJSON,
	})
}
