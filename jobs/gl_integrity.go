package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// IntegrityChecker rebuilds the trial balance and errors when the ledger is
// out of balance.
type IntegrityChecker interface {
	VerifyIntegrity(ctx context.Context, asOf time.Time) error
}

// GLIntegrityJob runs the scheduled double-entry self check. A failure means
// a posting transaction was not atomic and needs human attention, so the
// task is retried and the error logged loudly.
type GLIntegrityJob struct {
	checker IntegrityChecker
	logger  *slog.Logger
}

func NewGLIntegrityJob(checker IntegrityChecker, logger *slog.Logger) *GLIntegrityJob {
	return &GLIntegrityJob{checker: checker, logger: logger}
}

// Handle processes TaskTypeGLIntegrity tasks.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	asOf := time.Now().UTC()
	if err := j.checker.VerifyIntegrity(ctx, asOf); err != nil {
		j.logger.Error("ledger integrity check failed",
			slog.Any("error", err),
			slog.Time("as_of", asOf))
		return err
	}
	j.logger.Info("ledger integrity check passed", slog.Time("as_of", asOf))
	return nil
}
