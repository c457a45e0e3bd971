package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/vaultledger/vaultledger/internal/shared"
)

// mockRepository mirrors the PostgreSQL constraints: a unique header per
// transaction id and a unique (transaction_id, side) per entry. Accounts are
// stored through the codec exactly like the real repository.
type mockRepository struct {
	mu        sync.Mutex
	codec     *AccountCodec
	headers   map[string]Header
	rows      []Entry
	nextID    int64
	findCalls atomic.Int32

	// hidePrecheck makes FindByTransactionID miss existing rows, the way
	// a concurrent submit sees them before the other commits.
	hidePrecheck bool
	findErr      error
	// failSide makes InsertEntries fail when it reaches that side.
	failSide     Side
	findGate     chan struct{}
	violations   []Violation
}

func newMockRepository(codec *AccountCodec) *mockRepository {
	return &mockRepository{codec: codec, headers: make(map[string]Header)}
}

func (m *mockRepository) FindByTransactionID(ctx context.Context, transactionID string) ([]Entry, error) {
	m.findCalls.Add(1)
	if m.findGate != nil {
		<-m.findGate
	}
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hidePrecheck {
		return nil, nil
	}
	var out []Entry
	for _, row := range m.rows {
		if row.TransactionID != transactionID {
			continue
		}
		decoded, err := m.codec.decodeEntry(row)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Side == SideDebit && out[j].Side != SideDebit })
	return out, nil
}

func (m *mockRepository) FindViolations(ctx context.Context, limit int) ([]Violation, error) {
	if len(m.violations) > limit {
		return m.violations[:limit], nil
	}
	return m.violations, nil
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &mockTx{repo: m}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for _, h := range tx.headers {
		m.headers[h.TransactionID] = h
	}
	m.rows = append(m.rows, tx.rows...)
	return nil
}

func (m *mockRepository) hasHeader(transactionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.headers[transactionID]
	return ok
}

func (m *mockRepository) storedRows(transactionID string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Entry
	for _, row := range m.rows {
		if row.TransactionID == transactionID {
			out = append(out, row)
		}
	}
	return out
}

type mockTx struct {
	repo    *mockRepository
	headers []Header
	rows    []Entry
}

func (t *mockTx) InsertHeader(ctx context.Context, header Header) error {
	if _, ok := t.repo.headers[header.TransactionID]; ok {
		return shared.Wrap(shared.ErrConflict, "ledger: transaction id already exists", nil)
	}
	t.headers = append(t.headers, header)
	return nil
}

func (t *mockTx) InsertEntries(ctx context.Context, entries []Entry) ([]Entry, error) {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if t.repo.failSide != "" && e.Side == t.repo.failSide {
			return nil, errors.New("insert entry: connection reset")
		}
		for _, existing := range append(append([]Entry{}, t.repo.rows...), t.rows...) {
			if existing.TransactionID == e.TransactionID && existing.Side == e.Side {
				return nil, shared.Wrap(shared.ErrConflict, "ledger: entry already exists", nil)
			}
		}
		stored, err := t.repo.codec.encodeEntry(e)
		if err != nil {
			return nil, err
		}
		t.repo.nextID++
		stored.ID = t.repo.nextID
		e.ID = stored.ID
		t.rows = append(t.rows, stored)
		out = append(out, e)
	}
	return out, nil
}

type auditStub struct {
	mu   sync.Mutex
	logs []shared.AuditLog
	err  error
}

func (a *auditStub) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return a.err
}

type metricsStub struct {
	mu      sync.Mutex
	results []string
}

func (m *metricsStub) ObserveLedger(result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}
