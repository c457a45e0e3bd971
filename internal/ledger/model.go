// Package ledger records transfers as append-only double-entry pairs.
package ledger

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vaultledger/vaultledger/internal/shared"
)

// Side marks which half of the pair an entry is.
type Side string

// Entry sides.
const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// Entry is one ledger row. Account is plaintext here and ciphertext at rest.
type Entry struct {
	ID            int64
	TransactionID string
	Side          Side
	Account       string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	Time          time.Time
	CreatedAt     time.Time
}

// LogValue implements slog.LogValuer so entries never print their values.
func (e Entry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("id", e.ID),
		slog.String("side", string(e.Side)),
		slog.String("transaction_id", "?"),
		slog.String("account", "?"),
	)
}

// Header is the one row per transaction id that guards uniqueness.
type Header struct {
	TransactionID string
	Reference     uuid.UUID
	Amount        decimal.Decimal
	Time          time.Time
	CreatedAt     time.Time
}

// Transaction is a stored header with its two entries, debit first.
type Transaction struct {
	Reference     uuid.UUID
	TransactionID string
	Entries       []Entry
}

// Violation describes a transaction id that breaks the double-entry rule.
type Violation struct {
	TransactionID string
	Entries       int
	Debits        int
	Credits       int
	DebitTotal    decimal.Decimal
	CreditTotal   decimal.Decimal
}

// Kind classifies the violation for metrics.
func (v Violation) Kind() string {
	switch {
	case v.Entries != 2:
		return "entry_count"
	case v.Debits != 1 || v.Credits != 1:
		return "side_mismatch"
	default:
		return "unbalanced"
	}
}

// LogValue keeps the transaction id out of logs.
func (v Violation) LogValue() slog.Value {
	return slog.GroupValue(slog.String("kind", v.Kind()), slog.Int("entries", v.Entries))
}

// EntryResponse is the JSON view of an entry.
type EntryResponse struct {
	TransactionID string               `json:"transactionId"`
	Account       string               `json:"account"`
	InDebt        decimal.Decimal      `json:"inDebt"`
	Have          decimal.Decimal      `json:"have"`
	Time          shared.LocalDateTime `json:"time"`
}

func toResponses(entries []Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryResponse{
			TransactionID: e.TransactionID,
			Account:       e.Account,
			InDebt:        e.Debit,
			Have:          e.Credit,
			Time:          shared.LocalDateTime{Time: e.Time},
		})
	}
	return out
}
