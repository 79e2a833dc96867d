package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/eqtlab/ledger-syncer/pkg/db"
	"github.com/eqtlab/ledger-syncer/syncer"
)

func (s *Storage) ListAccounts(ctx context.Context) ([]syncer.LedgerAccount, error) {
	var accounts []*syncer.LedgerAccount
	err := s.db.Select(ctx, listAccountsQuery(), db.ScanAll(&accounts, func(a *syncer.LedgerAccount) db.ScanArgs {
		return db.ScanArgs{&a.ID, &a.Name, &a.Type}
	}))
	if err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("db select: %w", err)
	}

	out := make([]syncer.LedgerAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, *a)
	}
	return out, nil
}

func listAccountsQuery() sq.SelectBuilder {
	return sq.
		Select("id", "name", "type").
		From("accounts").
		OrderBy("name")
}

// Sync stamps synced_at on every account that got transactions since it was last stamped.
func (s *Storage) Sync(ctx context.Context) error {
	if err := s.db.Update(ctx, syncQuery(), nil); err != nil {
		return fmt.Errorf("db update: %w", err)
	}

	return nil
}

func syncQuery() sq.UpdateBuilder {
	return sq.
		Update("accounts").
		Set("synced_at", sq.Expr("now()")).
		Where(`exists (
			select 1 from transactions
			where
				transactions.account_id = accounts.id and
				transactions.created_at > coalesce(accounts.synced_at, '-infinity'::timestamptz)
		)`)
}
