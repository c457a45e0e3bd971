package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/vaultledger/vaultledger/internal/jobs"
	"github.com/vaultledger/vaultledger/internal/ledger"
)

// IntegrityChecker lists transactions that break double entry.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context, limit int) ([]ledger.Violation, error)
}

// IntegrityJob verifies that every transaction id has exactly one debit and
// one credit with equal amounts.
type IntegrityJob struct {
	Checker IntegrityChecker
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewIntegrityJob initialises the integrity handler.
func NewIntegrityJob(checker IntegrityChecker, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{Checker: checker, Logger: logger, Metrics: metrics}
}

// Handle executes TaskLedgerIntegrity. Violations are reported, not repaired.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Checker == nil {
		return errors.New("ledger integrity: handler not configured")
	}
	payload := IntegrityPayload{Limit: DefaultIntegrityLimit}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("ledger integrity: decode payload: %w", asynq.SkipRetry)
		}
	}
	if payload.Limit <= 0 {
		payload.Limit = DefaultIntegrityLimit
	}

	start := time.Now()
	tracker := j.Metrics.Track(TaskLedgerIntegrity)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	violations, err := j.Checker.CheckIntegrity(ctx, payload.Limit)
	if err != nil {
		logger.Error("integrity check failed", slog.Any("error", err))
		return err
	}

	byKind := map[string]int{}
	for _, v := range violations {
		logger.Warn("ledger integrity violation", slog.Any("violation", v))
		byKind[v.Kind()]++
	}
	for kind, count := range byKind {
		j.Metrics.AddViolations(kind, count)
	}

	logger.Info("completed integrity check",
		slog.Int("violations", len(violations)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *IntegrityJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
}
