package syncer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/eqtlab/ledger-syncer/syncer/bank"
)

// PendingPolicy decides what happens to transactions the bank has not settled yet.
type PendingPolicy string

const (
	// PendingUncleared imports pending transactions as not cleared.
	PendingUncleared PendingPolicy = "uncleared"
	// PendingReject fails the run on the first pending transaction.
	PendingReject PendingPolicy = "reject"
)

func (p *PendingPolicy) EnvDecode(val string) error {
	switch v := PendingPolicy(val); v {
	case PendingUncleared, PendingReject:
		*p = v
		return nil
	default:
		return fmt.Errorf("unknown pending policy %q", val)
	}
}

var hundred = decimal.NewFromInt(100)

// MapTransaction converts an aggregator transaction into a ledger transaction of accountID.
// The amount is scaled to minor units, rounded half away from zero and its sign inverted.
func MapTransaction(accountID string, bankID bank.ID, raw RawTransaction, pending PendingPolicy) (LedgerTransaction, error) {
	if raw.TransactionID == "" {
		return LedgerTransaction{}, fmt.Errorf("%w: transaction without id dated %s", ErrMapping, raw.Date.Format(DateLayout))
	}
	if raw.Pending && pending == PendingReject {
		return LedgerTransaction{}, fmt.Errorf("%w: transaction %s is pending", ErrMapping, raw.TransactionID)
	}

	parsed, err := bank.Parse(bankID, raw.Name)
	if err != nil {
		return LedgerTransaction{}, fmt.Errorf("%w: transaction %s: %w", ErrMapping, raw.TransactionID, err)
	}

	tx := LedgerTransaction{
		AccountID:  accountID,
		Date:       raw.Date,
		Amount:     MinorUnits(raw.Amount),
		ImportedID: raw.TransactionID,
		Cleared:    !raw.Pending,
	}

	if parsed.Matched {
		tx.PayeeName = parsed.Payee
		tx.Notes = parsed.Notes
	} else {
		tx.PayeeName = raw.MerchantName
		if tx.PayeeName == "" {
			tx.PayeeName = raw.Name
		}
	}
	tx.ImportedPayee = tx.PayeeName

	return tx, nil
}

// MinorUnits converts a debit-positive decimal amount into credit-positive minor units.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).Neg().IntPart()
}
