package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-books/meridian/internal/ledger/reports"
)

// ReportWarmupJob pre-renders the trial balance and balance sheet so the
// first interactive request after the cache TTL stays fast.
type ReportWarmupJob struct {
	service *reports.Service
	logger  *slog.Logger
}

func NewReportWarmupJob(service *reports.Service, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{service: service, logger: logger}
}

// Handle processes TaskTypeReportWarmup tasks.
func (j *ReportWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	asOf := time.Now().UTC()
	if _, err := j.service.TrialBalance(ctx, asOf); err != nil {
		j.logger.Warn("warm trial balance", slog.Any("error", err))
		return err
	}
	if _, err := j.service.BalanceSheet(ctx, asOf); err != nil {
		j.logger.Warn("warm balance sheet", slog.Any("error", err))
		return err
	}
	j.logger.Info("report cache warmed", slog.Time("as_of", asOf))
	return nil
}
