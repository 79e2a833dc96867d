package syncer

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrMapping        = errors.New("mapping error")
	ErrFetch          = errors.New("fetch error")
	ErrImport         = errors.New("import error")
	ErrReconciliation = errors.New("reconciliation error")
)

// ReconciliationError reports a ledger balance that differs from the aggregator's.
type ReconciliationError struct {
	AccountID         string
	LedgerSum         int64
	LedgerBalance     decimal.Decimal
	AggregatorBalance decimal.Decimal
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf(
		"account %s: ledger balance %s (sum %d) does not match aggregator balance %s",
		e.AccountID, e.LedgerBalance, e.LedgerSum, e.AggregatorBalance,
	)
}

func (e *ReconciliationError) Unwrap() error {
	return ErrReconciliation
}
