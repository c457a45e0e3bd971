package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vaultledger/vaultledger/internal/platform/db"
	"github.com/vaultledger/vaultledger/internal/shared"
)

// Repository encapsulates DB operations for the ledger. Implementations pass
// accounts through the AccountCodec so callers only see plaintext.
type Repository interface {
	FindByTransactionID(ctx context.Context, transactionID string) ([]Entry, error)
	FindViolations(ctx context.Context, limit int) ([]Violation, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	// InsertHeader fails with shared.ErrConflict when the id already exists.
	InsertHeader(ctx context.Context, header Header) error
	InsertEntries(ctx context.Context, entries []Entry) ([]Entry, error)
}

type repository struct {
	db    *pgxpool.Pool
	codec *AccountCodec
}

// NewRepository builds the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, codec *AccountCodec) Repository {
	return &repository{db: pool, codec: codec}
}

func (r *repository) FindByTransactionID(ctx context.Context, transactionID string) ([]Entry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, transaction_id, side, account, debit, credit, occurred_at, created_at
FROM ledger_entries WHERE transaction_id = $1
ORDER BY CASE side WHEN 'DEBIT' THEN 0 ELSE 1 END, id`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("ledger: find entries: %w", err)
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.Side, &e.Account, &e.Debit, &e.Credit, &e.Time, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ledger: scan entry: %w", err)
		}
		decoded, err := r.codec.decodeEntry(e)
		if err != nil {
			return nil, err
		}
		entries = append(entries, decoded)
	}
	return entries, rows.Err()
}

func (r *repository) FindViolations(ctx context.Context, limit int) ([]Violation, error) {
	rows, err := r.db.Query(ctx, `SELECT t.transaction_id,
       COUNT(e.id),
       COUNT(e.id) FILTER (WHERE e.side = 'DEBIT'),
       COUNT(e.id) FILTER (WHERE e.side = 'CREDIT'),
       COALESCE(SUM(e.debit), 0),
       COALESCE(SUM(e.credit), 0)
FROM ledger_transactions t
LEFT JOIN ledger_entries e ON e.transaction_id = t.transaction_id
GROUP BY t.transaction_id
HAVING COUNT(e.id) <> 2
    OR COUNT(e.id) FILTER (WHERE e.side = 'DEBIT') <> 1
    OR COALESCE(SUM(e.debit), 0) <> COALESCE(SUM(e.credit), 0)
    OR COALESCE(SUM(e.debit), 0) <= 0
ORDER BY t.transaction_id
LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: find violations: %w", err)
	}
	defer rows.Close()
	var out []Violation
	for rows.Next() {
		var v Violation
		if err := rows.Scan(&v.TransactionID, &v.Entries, &v.Debits, &v.Credits, &v.DebitTotal, &v.CreditTotal); err != nil {
			return nil, fmt.Errorf("ledger: scan violation: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, codec: r.codec})
	})
}

type txRepository struct {
	tx    pgx.Tx
	codec *AccountCodec
}

func (r *txRepository) InsertHeader(ctx context.Context, header Header) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO ledger_transactions (transaction_id, reference, amount, occurred_at, created_at)
VALUES ($1, $2, $3, $4, $5)`, header.TransactionID, header.Reference, header.Amount, header.Time, header.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return shared.Wrap(shared.ErrConflict, "ledger: transaction id already exists", nil)
		}
		return fmt.Errorf("ledger: insert header: %w", err)
	}
	return nil
}

func (r *txRepository) InsertEntries(ctx context.Context, entries []Entry) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		stored, err := r.codec.encodeEntry(e)
		if err != nil {
			return nil, err
		}
		err = r.tx.QueryRow(ctx, `INSERT INTO ledger_entries (transaction_id, side, account, debit, credit, occurred_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
			stored.TransactionID, string(stored.Side), stored.Account, stored.Debit, stored.Credit, stored.Time, stored.CreatedAt).Scan(&e.ID)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return nil, shared.Wrap(shared.ErrConflict, "ledger: entry already exists", nil)
			}
			return nil, fmt.Errorf("ledger: insert entry: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
