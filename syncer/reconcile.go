package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Balance struct {
	AccountID         string
	AccountName       string
	LedgerSum         int64
	LedgerBalance     decimal.Decimal
	AggregatorBalance decimal.Decimal
}

// Reconcile compares the ledger sum of acc, converted to the aggregator's unit and sign, with the
// balance the aggregator reports. Any difference is a *ReconciliationError.
func (s *Syncer) Reconcile(ctx context.Context, acc LinkedAccount) (Balance, error) {
	sum, err := s.ledger.ComputeSignedSum(ctx, acc.LedgerAccountID)
	if err != nil {
		return Balance{}, fmt.Errorf("ledger signed sum: %w", err)
	}

	aggregatorBalance, err := s.aggregator.FetchAccountBalance(ctx, acc.AccessToken, acc.AggregatorAccountID)
	if err != nil {
		return Balance{}, fmt.Errorf("%w: account balance: %w", ErrFetch, err)
	}

	b := Balance{
		AccountID:         acc.LedgerAccountID,
		AccountName:       acc.LedgerAccountName,
		LedgerSum:         sum,
		LedgerBalance:     decimal.New(-sum, -2),
		AggregatorBalance: aggregatorBalance,
	}

	if !b.LedgerBalance.Equal(b.AggregatorBalance) {
		return b, &ReconciliationError{
			AccountID:         b.AccountID,
			LedgerSum:         b.LedgerSum,
			LedgerBalance:     b.LedgerBalance,
			AggregatorBalance: b.AggregatorBalance,
		}
	}

	return b, nil
}

// Check reconciles every linked account in turn. Mismatches are collected and returned together,
// any other error stops the check.
func (s *Syncer) Check(ctx context.Context) ([]Balance, error) {
	accounts, err := s.store.LinkedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: linked accounts: %w", ErrConfiguration, err)
	}

	var (
		balances   []Balance
		mismatches []error
	)
	for _, acc := range accounts {
		b, err := s.Reconcile(ctx, acc)
		if err != nil && !errors.Is(err, ErrReconciliation) {
			return balances, fmt.Errorf("account %s: %w", acc.LedgerAccountName, err)
		}
		if err != nil {
			s.logger.Warn("balance mismatch", zap.Error(err))
			mismatches = append(mismatches, err)
		}
		balances = append(balances, b)
	}

	return balances, errors.Join(mismatches...)
}
