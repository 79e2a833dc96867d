package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/eqtlab/ledger-syncer/pkg/db"
	"github.com/eqtlab/ledger-syncer/syncer"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (s *Storage) GetTransactionsInRange(
	ctx context.Context,
	accountID string,
	from time.Time,
	to time.Time,
) ([]syncer.LedgerTransaction, error) {
	var txs []*syncer.LedgerTransaction
	err := s.db.Select(ctx, rangeQuery(accountID, from, to), db.ScanAll(&txs, func(tx *syncer.LedgerTransaction) db.ScanArgs {
		return db.ScanArgs{
			&tx.AccountID,
			&tx.Date,
			&tx.Amount,
			&tx.PayeeName,
			&tx.ImportedPayee,
			&tx.Notes,
			&tx.ImportedID,
			&tx.Cleared,
		}
	}))
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("db select: %w", err)
	}

	out := make([]syncer.LedgerTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, *tx)
	}
	return out, nil
}

func rangeQuery(accountID string, from, to time.Time) sq.SelectBuilder {
	return sq.
		Select(
			"account_id",
			"date",
			"amount",
			"payee_name",
			"imported_payee",
			"notes",
			"imported_id",
			"cleared",
		).
		From("transactions").
		Where(sq.Eq{"account_id": accountID}).
		Where(sq.GtOrEq{"date": from.Format(syncer.DateLayout)}).
		Where(sq.LtOrEq{"date": to.Format(syncer.DateLayout)}).
		OrderBy("date", "id")
}

// importBatchSize keeps a single insert well under the 65535 bind parameter limit.
const importBatchSize = 1000

// ImportTransactions inserts txs in one transaction, importBatchSize rows per statement.
// Rows whose imported_id already exists are left untouched and counted as duplicates.
func (s *Storage) ImportTransactions(
	ctx context.Context,
	accountID string,
	txs []syncer.LedgerTransaction,
) (syncer.ImportResult, error) {
	if len(txs) == 0 {
		return syncer.ImportResult{}, nil
	}

	var added int
	err := s.db.RunInTransaction(ctx, func(ctx context.Context, txDB *db.DB) error {
		for _, query := range importQueries(accountID, txs) {
			err := txDB.Insert(ctx, query, func(pgx.Rows) error {
				added++
				return nil
			})
			if err != nil && !isNoRows(err) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return syncer.ImportResult{}, fmt.Errorf("insert transactions: %w", err)
	}

	return syncer.ImportResult{Added: added, Duplicates: len(txs) - added}, nil
}

func importQueries(accountID string, txs []syncer.LedgerTransaction) []sq.InsertBuilder {
	queries := make([]sq.InsertBuilder, 0, (len(txs)+importBatchSize-1)/importBatchSize)
	for start := 0; start < len(txs); start += importBatchSize {
		end := min(start+importBatchSize, len(txs))
		queries = append(queries, importQuery(accountID, txs[start:end]))
	}
	return queries
}

func importQuery(accountID string, txs []syncer.LedgerTransaction) sq.InsertBuilder {
	query := sq.
		Insert("transactions").
		Columns(
			"account_id",
			"date",
			"amount",
			"payee_name",
			"imported_payee",
			"notes",
			"imported_id",
			"cleared",
		).
		Suffix("on conflict (imported_id) do nothing returning imported_id")

	for _, tx := range txs {
		query = query.Values(
			accountID,
			tx.Date.Format(syncer.DateLayout),
			tx.Amount,
			tx.PayeeName,
			tx.ImportedPayee,
			tx.Notes,
			tx.ImportedID,
			tx.Cleared,
		)
	}

	return query
}

func (s *Storage) ComputeSignedSum(ctx context.Context, accountID string) (int64, error) {
	var sum int64
	if err := s.db.Select(ctx, sumQuery(accountID), db.ScanOnce(&sum)); err != nil {
		return 0, fmt.Errorf("db select: %w", err)
	}

	return sum, nil
}

func sumQuery(accountID string) sq.SelectBuilder {
	return sq.
		Select("coalesce(sum(amount), 0)::bigint").
		From("transactions").
		Where(sq.Eq{"account_id": accountID})
}
