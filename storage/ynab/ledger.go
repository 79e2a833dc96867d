// Package ynab implements syncer.Ledger on top of a YNAB budget.
package ynab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brunomvsouza/ynab.go"
	"github.com/brunomvsouza/ynab.go/api"
	"github.com/brunomvsouza/ynab.go/api/account"
	"github.com/brunomvsouza/ynab.go/api/transaction"
	"github.com/google/uuid"

	"github.com/eqtlab/ledger-syncer/syncer"
)

// YNAB limits import_id to 36 characters.
const maxImportIDLen = 36

// milliunits per minor unit
const milliunits = 10

var ErrNotConfigured = errors.New("ynab: token or budget id not set")

type Config struct {
	Token    string `env:"TOKEN"`
	BudgetID string `env:"BUDGET_ID"`
}

type accountService interface {
	GetAccounts(budgetID string, f *api.Filter) (*account.SearchResultSnapshot, error)
	GetAccount(budgetID, accountID string) (*account.Account, error)
}

type transactionService interface {
	GetTransactionsByAccount(budgetID, accountID string, f *transaction.Filter) ([]*transaction.Transaction, error)
	CreateTransactions(budgetID string, p []transaction.PayloadTransaction) (*transaction.OperationSummary, error)
}

// Ledger deduplicates on import_id server side: YNAB keeps the first transaction with a given id
// and reports later ones as duplicates.
type Ledger struct {
	budgetID     string
	accounts     accountService
	transactions transactionService
}

func New(cfg Config) (*Ledger, error) {
	if cfg.Token == "" || cfg.BudgetID == "" {
		return nil, ErrNotConfigured
	}

	client := ynab.NewClient(cfg.Token)
	return &Ledger{
		budgetID:     cfg.BudgetID,
		accounts:     client.Account(),
		transactions: client.Transaction(),
	}, nil
}

func (l *Ledger) ListAccounts(context.Context) ([]syncer.LedgerAccount, error) {
	snapshot, err := l.accounts.GetAccounts(l.budgetID, nil)
	if err != nil {
		return nil, fmt.Errorf("ynab get accounts: %w", err)
	}

	out := make([]syncer.LedgerAccount, 0, len(snapshot.Accounts))
	for _, a := range snapshot.Accounts {
		if a.Deleted || a.Closed {
			continue
		}
		out = append(out, syncer.LedgerAccount{ID: a.ID, Name: a.Name, Type: string(a.Type)})
	}
	return out, nil
}

func (l *Ledger) GetTransactionsInRange(
	_ context.Context,
	accountID string,
	from time.Time,
	to time.Time,
) ([]syncer.LedgerTransaction, error) {
	since, err := api.DateFromString(from.Format(syncer.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("since date: %w", err)
	}

	txs, err := l.transactions.GetTransactionsByAccount(l.budgetID, accountID, &transaction.Filter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("ynab get transactions: %w", err)
	}

	out := make([]syncer.LedgerTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Deleted || tx.Date.After(to) {
			continue
		}
		out = append(out, fromYNAB(tx))
	}
	return out, nil
}

func fromYNAB(tx *transaction.Transaction) syncer.LedgerTransaction {
	return syncer.LedgerTransaction{
		AccountID:     tx.AccountID,
		Date:          tx.Date.Time,
		Amount:        tx.Amount / milliunits,
		PayeeName:     deref(tx.PayeeName),
		ImportedPayee: deref(tx.PayeeName),
		Notes:         deref(tx.Memo),
		ImportedID:    deref(tx.ImportID),
		Cleared:       tx.Cleared != transaction.ClearingStatusUncleared,
	}
}

func (l *Ledger) ImportTransactions(
	_ context.Context,
	accountID string,
	txs []syncer.LedgerTransaction,
) (syncer.ImportResult, error) {
	if len(txs) == 0 {
		return syncer.ImportResult{}, nil
	}

	payloads := make([]transaction.PayloadTransaction, 0, len(txs))
	for _, tx := range txs {
		p, err := toPayload(accountID, tx)
		if err != nil {
			return syncer.ImportResult{}, err
		}
		payloads = append(payloads, p)
	}

	summary, err := l.transactions.CreateTransactions(l.budgetID, payloads)
	if err != nil {
		return syncer.ImportResult{}, fmt.Errorf("ynab create transactions: %w", err)
	}

	return syncer.ImportResult{
		Added:      len(summary.TransactionIDs),
		Duplicates: len(summary.DuplicateImportIDs),
	}, nil
}

func toPayload(accountID string, tx syncer.LedgerTransaction) (transaction.PayloadTransaction, error) {
	date, err := api.DateFromString(tx.Date.Format(syncer.DateLayout))
	if err != nil {
		return transaction.PayloadTransaction{}, fmt.Errorf("transaction %s date: %w", tx.ImportedID, err)
	}

	cleared := transaction.ClearingStatusCleared
	if !tx.Cleared {
		cleared = transaction.ClearingStatusUncleared
	}

	importID := ImportID(tx.ImportedID)
	p := transaction.PayloadTransaction{
		AccountID: accountID,
		Date:      date,
		Amount:    tx.Amount * milliunits,
		Cleared:   cleared,
		PayeeName: optional(tx.PayeeName),
		Memo:      optional(tx.Notes),
		ImportID:  &importID,
	}

	return p, nil
}

// ImportID fits id into YNAB's import_id. Longer ids are replaced by a name based UUID so the
// mapping stays stable across runs.
func ImportID(id string) string {
	if len(id) <= maxImportIDLen {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func (l *Ledger) ComputeSignedSum(_ context.Context, accountID string) (int64, error) {
	a, err := l.accounts.GetAccount(l.budgetID, accountID)
	if err != nil {
		return 0, fmt.Errorf("ynab get account: %w", err)
	}

	if a.Balance%milliunits != 0 {
		return 0, fmt.Errorf("account %s balance %d milliunits is not a whole minor unit", accountID, a.Balance)
	}
	return a.Balance / milliunits, nil
}

// Sync is a no-op, YNAB commits every request on its own.
func (l *Ledger) Sync(context.Context) error {
	return nil
}

func (l *Ledger) Shutdown(context.Context) error {
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
