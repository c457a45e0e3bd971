package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/vaultledger/vaultledger/internal/securepayload"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// Submission results reported to metrics.
const (
	ResultAccepted = "accepted"
	ResultConflict = "conflict"
	ResultInvalid  = "invalid"
	ResultError    = "error"
)

const queryTimeout = 10 * time.Second

// AuditPort records audit entries after commit.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// PacketMapper converts transfer sides to inter-service packets.
type PacketMapper interface {
	ToEncrypted(f securepayload.Fields) (securepayload.Packet, error)
	ToDecrypted(p securepayload.Packet) (securepayload.Fields, error)
}

// Relayer hands encrypted packets to the receiving service.
type Relayer interface {
	EnqueueRelay(ctx context.Context, packets []securepayload.Packet) (string, error)
}

// Recorder counts submission results.
type Recorder interface {
	ObserveLedger(result string)
}

// Config carries optional collaborators.
type Config struct {
	MinAmount decimal.Decimal
	Logger    *slog.Logger
	Relayer   Relayer
	Metrics   Recorder
}

// Service enforces double entry and transaction id uniqueness.
type Service struct {
	repo      Repository
	audit     AuditPort
	mapper    PacketMapper
	relayer   Relayer
	metrics   Recorder
	logger    *slog.Logger
	validator *validator.Validate
	minAmount decimal.Decimal
	queries   singleflight.Group
	now       func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo Repository, audit AuditPort, mapper PacketMapper, cfg Config) *Service {
	minAmount := cfg.MinAmount
	if minAmount.IsZero() {
		minAmount = DefaultMinAmount
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		audit:     audit,
		mapper:    mapper,
		relayer:   cfg.Relayer,
		metrics:   cfg.Metrics,
		logger:    logger,
		validator: NewValidator(),
		minAmount: minAmount,
		now:       time.Now,
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Submit records the debit/credit pair for a transfer. A reused transaction
// id is shared.ErrConflict; the storage constraint is authoritative.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Transaction, error) {
	txn, err := s.submit(ctx, in)
	s.observe(err)
	if err != nil {
		return Transaction{}, err
	}
	if s.relayer != nil {
		if _, err := s.Relay(ctx, in); err != nil {
			s.logger.WarnContext(ctx, "ledger relay enqueue failed", slog.String("reference", txn.Reference.String()), slog.Any("error", err))
		}
	}
	return txn, nil
}

func (s *Service) submit(ctx context.Context, in SubmitInput) (Transaction, error) {
	in.normalize()
	if err := in.Validate(s.validator, s.minAmount); err != nil {
		return Transaction{}, err
	}
	existing, err := s.repo.FindByTransactionID(ctx, in.TransactionID)
	if err != nil {
		return Transaction{}, err
	}
	if len(existing) > 0 {
		return Transaction{}, shared.Wrap(shared.ErrConflict, "ledger: transaction id already exists", nil)
	}

	now := s.now().UTC()
	header := Header{
		TransactionID: in.TransactionID,
		Reference:     uuid.New(),
		Amount:        in.Amount,
		Time:          in.Time.Time,
		CreatedAt:     now,
	}
	pair := buildPair(in, now)
	var stored []Entry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertHeader(ctx, header); err != nil {
			return err
		}
		var err error
		stored, err = tx.InsertEntries(ctx, pair)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	if s.audit != nil {
		var actor int64
		if id := shared.IdentityFromContext(ctx); id != nil {
			actor = id.UserID
		}
		meta := map[string]any{"entries": len(stored)}
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			meta["request_id"] = reqID
		}
		if err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor,
			Action:   "ledger.submit",
			Entity:   "ledger_transaction",
			EntityID: header.Reference.String(),
			Meta:     meta,
			At:       now,
		}); err != nil {
			s.logger.WarnContext(ctx, "ledger audit failed", slog.String("reference", header.Reference.String()), slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "ledger transaction recorded",
		slog.String("reference", header.Reference.String()),
		slog.String("transaction_id", in.TransactionID))
	return Transaction{Reference: header.Reference, TransactionID: in.TransactionID, Entries: stored}, nil
}

func (s *Service) observe(err error) {
	if s.metrics == nil {
		return
	}
	switch {
	case err == nil:
		s.metrics.ObserveLedger(ResultAccepted)
	case errors.Is(err, shared.ErrConflict):
		s.metrics.ObserveLedger(ResultConflict)
	case errors.Is(err, shared.ErrValidation):
		s.metrics.ObserveLedger(ResultInvalid)
	default:
		s.metrics.ObserveLedger(ResultError)
	}
}

// buildPair debits the source and credits the destination with the full amount.
func buildPair(in SubmitInput, createdAt time.Time) []Entry {
	return []Entry{
		{
			TransactionID: in.TransactionID,
			Side:          SideDebit,
			Account:       in.SourceAccount,
			Debit:         in.Amount,
			Credit:        decimal.Zero,
			Time:          in.Time.Time,
			CreatedAt:     createdAt,
		},
		{
			TransactionID: in.TransactionID,
			Side:          SideCredit,
			Account:       in.DestAccount,
			Debit:         decimal.Zero,
			Credit:        in.Amount,
			Time:          in.Time.Time,
			CreatedAt:     createdAt,
		},
	}
}

// Query returns the entries for a transaction id, debit first. Concurrent
// lookups of the same id share one storage read.
func (s *Service) Query(ctx context.Context, transactionID string) ([]Entry, error) {
	v, err, _ := s.queries.Do(transactionID, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), queryTimeout)
		defer cancel()
		return s.repo.FindByTransactionID(qctx, transactionID)
	})
	if err != nil {
		return nil, err
	}
	entries := v.([]Entry)
	if len(entries) == 0 {
		return nil, shared.Wrap(shared.ErrNotFound, "ledger: transaction not found", nil)
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Packets encrypts the debit and credit sides as inter-service packets.
func (s *Service) Packets(ctx context.Context, in SubmitInput) ([]securepayload.Packet, error) {
	in.normalize()
	if err := in.Validate(s.validator, s.minAmount); err != nil {
		return nil, err
	}
	packets := make([]securepayload.Packet, 0, 2)
	for _, e := range buildPair(in, s.now()) {
		packet, err := s.mapper.ToEncrypted(securepayload.Fields{
			TransactionID: e.TransactionID,
			Account:       e.Account,
			InDebt:        e.Debit,
			Have:          e.Credit,
			Time:          shared.LocalDateTime{Time: e.Time},
		})
		if err != nil {
			return nil, err
		}
		packets = append(packets, packet)
	}
	return packets, nil
}

// Decrypt opens one received packet.
func (s *Service) Decrypt(packet securepayload.Packet) (securepayload.Fields, error) {
	return s.mapper.ToDecrypted(packet)
}

// Relay encrypts both sides and enqueues them for the receiving worker.
func (s *Service) Relay(ctx context.Context, in SubmitInput) (string, error) {
	if s.relayer == nil {
		return "", shared.Wrap(shared.ErrConfig, "ledger: relay transport not configured", nil)
	}
	packets, err := s.Packets(ctx, in)
	if err != nil {
		return "", err
	}
	return s.relayer.EnqueueRelay(ctx, packets)
}

// CheckIntegrity lists transaction ids breaking the double-entry rule.
func (s *Service) CheckIntegrity(ctx context.Context, limit int) ([]Violation, error) {
	if limit <= 0 {
		limit = 500
	}
	return s.repo.FindViolations(ctx, limit)
}
