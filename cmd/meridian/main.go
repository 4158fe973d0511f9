package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-books/meridian/internal/app"
	"github.com/meridian-books/meridian/internal/banking"
	"github.com/meridian-books/meridian/internal/checks"
	"github.com/meridian-books/meridian/internal/ledger/accounts"
	"github.com/meridian-books/meridian/internal/ledger/journals"
	"github.com/meridian-books/meridian/internal/ledger/periods"
	"github.com/meridian-books/meridian/internal/ledger/reports"
	ledgershared "github.com/meridian-books/meridian/internal/ledger/shared"
	"github.com/meridian-books/meridian/internal/observability"
	"github.com/meridian-books/meridian/internal/platform/cache"
	"github.com/meridian-books/meridian/internal/platform/db"
	"github.com/meridian-books/meridian/internal/recon"
	"github.com/meridian-books/meridian/internal/shared"
	"github.com/meridian-books/meridian/jobs"
)

// closeMailer queues a notification email once a period close commits.
type closeMailer struct {
	client *jobs.Client
	to     string
}

func (m closeMailer) NotifyPeriodClosed(ctx context.Context, period periods.Period) error {
	_, err := m.client.EnqueueSendEmail(ctx, jobs.SendEmailPayload{
		To:      m.to,
		Subject: fmt.Sprintf("Period closed: %s", period.Name),
		Body:    fmt.Sprintf("Accounting period %s (%s to %s) was closed.", period.Name, period.StartDate.Format("2006-01-02"), period.EndDate.Format("2006-01-02")),
	})
	return err
}

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

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, report cache and close locks disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)
	metrics := observability.NewMetrics()

	accountsRepo := accounts.NewRepository(dbpool)
	accountsService := accounts.NewService(accountsRepo, auditLogger)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	var closeLocker periods.CloseLocker
	if redisClient != nil {
		closeLocker = shared.NewPeriodCloseLocker(redisClient, cfg.CloseLockTTL)
	}
	periodsRepo := periods.NewRepository(dbpool)
	periodsService := periods.NewService(periodsRepo, auditLogger, closeLocker, periods.Config{
		RetainedEarningsCode: cfg.RetainedEarningsCode,
	})
	periodsHandler := periods.NewHandler(logger, periodsService)

	threshold, err := ledgershared.ParseMoney(cfg.ApprovalThreshold)
	if err != nil {
		logger.Error("parse approval threshold", slog.Any("error", err))
		os.Exit(1)
	}
	journalsRepo := journals.NewRepository(dbpool)
	journalsService := journals.NewService(journalsRepo, periodsService, auditLogger, idempotencyStore, journals.ThresholdPolicy{
		Threshold:     threshold,
		ApproverRoles: cfg.ApproverRoles,
	})
	journalsService.WithMetrics(metrics)
	journalsHandler := journals.NewHandler(logger, journalsService)

	reportsRepo := reports.NewRepository(dbpool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache, logger)
	reportsHandler := reports.NewHandler(logger, reportsService)

	bankingRepo := banking.NewRepository(dbpool)
	bankingService := banking.NewService(bankingRepo, accountsService)
	bankingHandler := banking.NewHandler(logger, bankingService)

	reconRepo := recon.NewRepository(dbpool)
	reconService := recon.NewService(reconRepo, bankingService, auditLogger, recon.Config{
		MatchWindowDays: cfg.MatchWindowDays,
	})
	reconHandler := recon.NewHandler(logger, reconService)

	checksRepo := checks.NewRepository(dbpool)
	checksService := checks.NewService(checksRepo)
	checksHandler := checks.NewHandler(logger, checksService)

	var jobsHandler *jobs.Handler
	if redisClient != nil {
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobsHandler = jobs.NewHandler(inspector, logger)

		if cfg.CloseNotifyEmail != "" {
			jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			if err != nil {
				logger.Warn("jobs client", slog.Any("error", err))
			} else {
				defer func() {
					if err := jobsClient.Close(); err != nil {
						logger.Warn("jobs client close", slog.Any("error", err))
					}
				}()
				periodsService.WithCloseNotifier(closeMailer{client: jobsClient, to: cfg.CloseNotifyEmail})
			}
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accountsHandler,
		JournalsHandler: journalsHandler,
		PeriodsHandler:  periodsHandler,
		ReportsHandler:  reportsHandler,
		BankingHandler:  bankingHandler,
		ReconHandler:    reconHandler,
		ChecksHandler:   checksHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
