package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/registration-demo/registration/cmd/registration/cli"
	"github.com/registration-demo/registration/internal/accounts"
	"github.com/registration-demo/registration/internal/app"
	"github.com/registration-demo/registration/internal/mail"
	"github.com/registration-demo/registration/internal/observability"
	"github.com/registration-demo/registration/internal/platform/cache"
	"github.com/registration-demo/registration/internal/platform/db"
	"github.com/registration-demo/registration/jobs"
)

const usage = `usage: registration [serve | migrate | mail-queue [--json] [--requeue-archived]]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	command := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	switch command {
	case "serve":
		err = serve(ctx, stop, cfg, logger)
	case "migrate":
		err = migrate(ctx, cfg, logger)
	case "mail-queue":
		os.Exit(mailQueue(ctx, cfg, args))
	default:
		_, _ = fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(command, slog.Any("error", err))
		os.Exit(1)
	}
}

func connectPostgres(ctx context.Context, cfg *app.Config) (*pgxpool.Pool, error) {
	return db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
}

func migrate(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func mailQueue(ctx context.Context, cfg *app.Config, args []string) int {
	fs := flag.NewFlagSet("mail-queue", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", false, "print queue stats as JSON")
	requeue := fs.Bool("requeue-archived", false, "move archived mail tasks back to pending")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	queueCLI := cli.NewMailQueueCLI(cfg.RedisAddr)
	defer func() { _ = queueCLI.Close() }()
	return queueCLI.Command(ctx, cli.MailQueueOptions{JSONOutput: *jsonOutput, RequeueArchived: *requeue})
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	pool, err := connectPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	metrics := observability.NewMetrics()
	readiness := []app.ReadinessCheck{{Name: "postgres", Check: pool.Ping}}

	var (
		sender     mail.Sender
		jobHandler *jobs.Handler
	)
	switch cfg.MailDelivery {
	case app.MailDeliveryQueue:
		redisClient, err := cache.New(ctx, cache.Config{Addr: cfg.RedisAddr})
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		readiness = append(readiness, app.ReadinessCheck{Name: "redis", Check: cache.Check(redisClient, time.Second)})

		queueSender := jobs.NewQueueSender(asynq.RedisClientOpt{Addr: cfg.RedisAddr}, cfg.MailMaxRetry)
		defer func() { _ = queueSender.Close() }()
		sender = queueSender

		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() { _ = inspector.Close() }()
		jobHandler = jobs.NewHandler(inspector, logger)
	default:
		httpSender, err := mail.NewHTTPSender(cfg.MailURL, cfg.MailTimeout)
		if err != nil {
			return err
		}
		sender = httpSender
	}

	notifier := mail.NewNotifier(sender, cfg.MailFrom, logger, metrics)
	service := accounts.NewService(
		accounts.NewRepository(pool),
		accounts.NewBcryptHasher(cfg.BcryptCost),
		notifier,
		accounts.WithLogger(logger),
		accounts.WithOutcomeRecorder(metrics),
	)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Pool:            pool,
		AccountsHandler: accounts.NewHandler(logger, service),
		JobHandler:      jobHandler,
		Metrics:         metrics,
		Readiness:       readiness,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("mail_delivery", cfg.MailDelivery))
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
	return nil
}
