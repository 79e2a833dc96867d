package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fetchCall struct {
	token      string
	start, end time.Time
}

type fakeAggregator struct {
	batches  map[string][]RawTransaction // by token
	balances map[string]decimal.Decimal  // by account id
	err      error
	failing  map[string]error // by token
	calls    []fetchCall
}

func (a *fakeAggregator) FetchTransactions(_ context.Context, token string, start, end time.Time) ([]RawTransaction, error) {
	a.calls = append(a.calls, fetchCall{token: token, start: start, end: end})
	if a.err != nil {
		return nil, a.err
	}
	if err, ok := a.failing[token]; ok {
		return nil, err
	}
	return a.batches[token], nil
}

func (a *fakeAggregator) FetchAccountBalance(_ context.Context, _, accountID string) (decimal.Decimal, error) {
	if a.err != nil {
		return decimal.Zero, a.err
	}
	b, ok := a.balances[accountID]
	if !ok {
		return decimal.Zero, errors.New("unknown account")
	}
	return b, nil
}

// fakeLedger keeps the first transaction per imported id.
type fakeLedger struct {
	accounts  []LedgerAccount
	txs       map[string][]LedgerTransaction
	importErr error
	imports   int
	syncs     int
	shutdowns int
}

func newFakeLedger(ids ...string) *fakeLedger {
	l := &fakeLedger{txs: make(map[string][]LedgerTransaction)}
	for _, id := range ids {
		l.accounts = append(l.accounts, LedgerAccount{ID: id, Name: "name-" + id, Type: "checking"})
	}
	return l
}

func (l *fakeLedger) ListAccounts(context.Context) ([]LedgerAccount, error) {
	return l.accounts, nil
}

func (l *fakeLedger) GetTransactionsInRange(_ context.Context, accountID string, from, to time.Time) ([]LedgerTransaction, error) {
	var out []LedgerTransaction
	for _, tx := range l.txs[accountID] {
		if !tx.Date.Before(from) && !tx.Date.After(to) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (l *fakeLedger) ImportTransactions(_ context.Context, accountID string, txs []LedgerTransaction) (ImportResult, error) {
	l.imports++
	if l.importErr != nil {
		return ImportResult{}, l.importErr
	}

	seen := make(map[string]struct{})
	for _, list := range l.txs {
		for _, tx := range list {
			seen[tx.ImportedID] = struct{}{}
		}
	}

	var res ImportResult
	for _, tx := range txs {
		if _, ok := seen[tx.ImportedID]; ok {
			res.Duplicates++
			continue
		}
		seen[tx.ImportedID] = struct{}{}
		l.txs[accountID] = append(l.txs[accountID], tx)
		res.Added++
	}
	return res, nil
}

func (l *fakeLedger) ComputeSignedSum(_ context.Context, accountID string) (int64, error) {
	var sum int64
	for _, tx := range l.txs[accountID] {
		sum += tx.Amount
	}
	return sum, nil
}

func (l *fakeLedger) Sync(context.Context) error {
	l.syncs++
	return nil
}

func (l *fakeLedger) Shutdown(context.Context) error {
	l.shutdowns++
	return nil
}

type fakeStore struct {
	accounts []LinkedAccount
	values   map[string]string
}

func newFakeStore(accounts ...LinkedAccount) *fakeStore {
	return &fakeStore{accounts: accounts, values: make(map[string]string)}
}

func (s *fakeStore) LinkedAccounts(context.Context) ([]LinkedAccount, error) {
	return s.accounts, nil
}

func (s *fakeStore) Get(_ context.Context, path string) (string, error) {
	return s.values[path], nil
}

func (s *fakeStore) Set(_ context.Context, path, value string) error {
	s.values[path] = value
	return nil
}

var testToday = time.Date(2024, time.March, 15, 13, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testConfig() Config {
	return Config{
		AccountPacing:  2 * time.Second,
		PendingPolicy:  PendingUncleared,
		Fallback:       FallbackMonthStart,
		LookbackMonths: 1,
		ServeInterval:  time.Hour,
	}
}

// newTestSyncer has a frozen clock and records pacing waits instead of sleeping.
func newTestSyncer(a Aggregator, l Ledger, s Store, cfg Config) (*Syncer, *[]time.Duration) {
	syncer := New(a, l, s, nil, zap.NewNop(), cfg)
	syncer.now = func() time.Time { return testToday }

	var waits []time.Duration
	syncer.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}

	return syncer, &waits
}

func linked(id, name, aggregatorID, token string) LinkedAccount {
	return LinkedAccount{
		LedgerAccountID:     id,
		LedgerAccountName:   name,
		LedgerAccountType:   "checking",
		AggregatorAccountID: aggregatorID,
		AccessToken:         token,
	}
}
