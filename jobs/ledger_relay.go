package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/vaultledger/vaultledger/internal/jobs"
	"github.com/vaultledger/vaultledger/internal/securepayload"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// PacketDecrypter opens packets addressed to this service.
type PacketDecrypter interface {
	ToDecrypted(p securepayload.Packet) (securepayload.Fields, error)
}

// RelayJob receives transfer packets, decrypts and re-validates them.
type RelayJob struct {
	Decrypter PacketDecrypter
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewRelayJob initialises the relay handler.
func NewRelayJob(decrypter PacketDecrypter, logger *slog.Logger, metrics *jobmetrics.Metrics) *RelayJob {
	return &RelayJob{Decrypter: decrypter, Logger: logger, Metrics: metrics}
}

// Handle processes TaskLedgerRelay tasks. Tampered or inconsistent packets
// are not retried.
func (j *RelayJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Decrypter == nil {
		return errors.New("ledger relay: handler not configured")
	}
	tracker := j.Metrics.Track(TaskLedgerRelay)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	var payload RelayPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("ledger relay: decode payload: %w", asynq.SkipRetry)
	}

	fields, err := j.open(payload.Packets)
	if err != nil {
		if errors.Is(err, shared.ErrData) {
			j.logger().Warn("ledger relay rejected", slog.Any("error", err))
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		j.logger().Error("ledger relay failed", slog.Any("error", err))
		return err
	}

	for _, f := range fields {
		j.logger().Info("ledger relay received", slog.Any("packet", f))
	}
	return nil
}

// open decrypts every packet and checks that together they form one balanced transfer.
func (j *RelayJob) open(packets []securepayload.Packet) ([]securepayload.Fields, error) {
	if len(packets) != 2 {
		return nil, shared.Wrap(shared.ErrData, "ledger relay", fmt.Errorf("expected 2 packets, got %d", len(packets)))
	}
	fields := make([]securepayload.Fields, 0, len(packets))
	for _, p := range packets {
		f, err := j.Decrypter.ToDecrypted(p)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	debit, credit := fields[0], fields[1]
	if debit.InDebt.IsZero() {
		debit, credit = credit, debit
	}
	switch {
	case debit.TransactionID != credit.TransactionID:
		return nil, shared.Wrap(shared.ErrData, "ledger relay", errors.New("packets belong to different transactions"))
	case !debit.InDebt.IsPositive() || !credit.Have.IsPositive():
		return nil, shared.Wrap(shared.ErrData, "ledger relay", errors.New("packets are not one debit and one credit"))
	case !debit.InDebt.Equal(credit.Have):
		return nil, shared.Wrap(shared.ErrData, "ledger relay", errors.New("debit and credit differ"))
	case debit.Account == credit.Account:
		return nil, shared.Wrap(shared.ErrData, "ledger relay", errors.New("source and destination are equal"))
	}
	return []securepayload.Fields{debit, credit}, nil
}

func (j *RelayJob) logger() *slog.Logger {
	if j.Logger == nil {
		return slog.Default()
	}
	return j.Logger.With(slog.String("job", TaskLedgerRelay))
}
