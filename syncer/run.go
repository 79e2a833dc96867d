package syncer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	timeutils "github.com/eqtlab/ledger-syncer/pkg/time"
	"github.com/eqtlab/ledger-syncer/syncer/bank"
)

// State of one account within an import run.
type State string

const (
	StatePending        State = "pending"
	StateWindowResolved State = "window_resolved"
	StateFetched        State = "fetched"
	StateFiltered       State = "filtered"
	StateMapped         State = "mapped"
	StateImported       State = "imported"
	StateCheckpointed   State = "checkpointed"
	StateSkipped        State = "skipped"
	StateFailed         State = "failed"
)

type Options struct {
	// Since overrides the resolved start date of every account.
	Since *time.Time
	// Account restricts the run to linked accounts with this ledger account name.
	Account string
}

type AccountReport struct {
	AccountID   string
	AccountName string
	State       State
	Start       time.Time
	End         time.Time
	Fetched     int
	Filtered    int
	Imported    int
	Duplicates  int
	Err         error
}

// RunReport has one entry per selected account, in processing order. Accounts after a failure stay pending.
type RunReport struct {
	RunID    string
	End      time.Time
	Accounts []AccountReport
}

func (r *RunReport) Checkpointed() int {
	n := 0
	for _, a := range r.Accounts {
		if a.State == StateCheckpointed {
			n++
		}
	}
	return n
}

// Import runs the accounts selected by opts in sequence. The first error of any account stops the
// run, accounts checkpointed before it keep their progress. When at least one account was
// checkpointed, the ledger is synced and shut down at the end regardless of the outcome.
func (s *Syncer) Import(ctx context.Context, opts Options) (*RunReport, error) {
	accounts, err := s.selectAccounts(ctx, opts.Account)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		RunID:    uuid.NewString(),
		End:      timeutils.Date(s.now()),
		Accounts: make([]AccountReport, len(accounts)),
	}
	for i, acc := range accounts {
		report.Accounts[i] = AccountReport{
			AccountID:   acc.LedgerAccountID,
			AccountName: acc.LedgerAccountName,
			State:       StatePending,
		}
	}

	logger := s.logger.With(zap.String("run_id", report.RunID))
	logger.Info("import started", zap.Int("accounts", len(accounts)), zap.String("end_date", report.End.Format(DateLayout)))

	cache := newFetchCache(s.aggregator)

	var runErr error
	for i, acc := range accounts {
		rep := &report.Accounts[i]
		if err := s.importAccount(ctx, logger, cache, acc, opts.Since, report.End, rep); err != nil {
			rep.State = StateFailed
			rep.Err = err
			runErr = fmt.Errorf("account %s: %w", acc.LedgerAccountName, err)
			break
		}
	}

	if report.Checkpointed() > 0 {
		// finalize even if the run was cancelled, the imported accounts are already committed
		if err := s.finalize(context.WithoutCancel(ctx)); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}

	if runErr != nil {
		logger.Error("import failed", zap.Error(runErr), zap.Int("checkpointed", report.Checkpointed()))
		return report, runErr
	}

	logger.Info("import finished", zap.Int("checkpointed", report.Checkpointed()))
	return report, nil
}

// selectAccounts validates every linked account before any of them is processed.
func (s *Syncer) selectAccounts(ctx context.Context, name string) ([]LinkedAccount, error) {
	linked, err := s.store.LinkedAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: linked accounts: %w", ErrConfiguration, err)
	}

	var selected []LinkedAccount
	for _, acc := range linked {
		if name == "" || strings.EqualFold(acc.LedgerAccountName, name) {
			selected = append(selected, acc)
		}
	}
	if name != "" && len(selected) == 0 {
		return nil, fmt.Errorf("%w: no linked account named %q", ErrConfiguration, name)
	}

	if len(selected) == 0 {
		return nil, nil
	}

	ledgerAccounts, err := s.ledger.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("ledger list accounts: %w", err)
	}
	known := make(map[string]struct{}, len(ledgerAccounts))
	for _, a := range ledgerAccounts {
		known[a.ID] = struct{}{}
	}

	var errs []error
	for _, acc := range selected {
		if err := validateAccount(acc, known); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, errors.Join(errs...))
	}

	return selected, nil
}

func validateAccount(acc LinkedAccount, known map[string]struct{}) error {
	switch {
	case acc.LedgerAccountID == "":
		return fmt.Errorf("linked account %q has no ledger account id", acc.LedgerAccountName)
	case acc.AggregatorAccountID == "":
		return fmt.Errorf("linked account %q has no aggregator account id", acc.LedgerAccountName)
	case acc.AccessToken == "":
		return fmt.Errorf("linked account %q has no access token", acc.LedgerAccountName)
	}

	if _, ok := known[acc.LedgerAccountID]; !ok {
		return fmt.Errorf("ledger account %s (%q) does not exist", acc.LedgerAccountID, acc.LedgerAccountName)
	}

	return nil
}

func (s *Syncer) importAccount(
	ctx context.Context,
	logger *zap.Logger,
	cache *fetchCache,
	acc LinkedAccount,
	since *time.Time,
	end time.Time,
	rep *AccountReport,
) error {
	logger = logger.With(zap.String("account_id", acc.LedgerAccountID), zap.String("account_name", acc.LedgerAccountName))

	start, err := s.ResolveStartDate(ctx, acc, since, end)
	if err != nil {
		return fmt.Errorf("resolve start date: %w", err)
	}
	rep.Start, rep.End, rep.State = start, end, StateWindowResolved

	if !start.Before(end) {
		rep.State = StateSkipped
		logger.Info("account is up to date", zap.String("start_date", start.Format(DateLayout)))
		return nil
	}

	began := s.now()
	batch, cached, err := cache.Fetch(ctx, acc.AccessToken, start, end)
	if err != nil {
		return err
	}
	rep.Fetched, rep.State = len(batch), StateFetched

	// give upstream and the operator a breather, the fetch time counts towards it
	if err := s.sleep(ctx, s.cfg.AccountPacing-s.now().Sub(began)); err != nil {
		return fmt.Errorf("pacing: %w", err)
	}

	own := filterByAccount(batch, acc.AggregatorAccountID)
	rep.Filtered, rep.State = len(own), StateFiltered

	bankID := bank.FromName(acc.BankName)
	mapped := make([]LedgerTransaction, 0, len(own))
	for _, raw := range own {
		tx, err := MapTransaction(acc.LedgerAccountID, bankID, raw, s.cfg.PendingPolicy)
		if err != nil {
			return err
		}
		mapped = append(mapped, tx)
	}
	rep.State = StateMapped

	res, err := s.ledger.ImportTransactions(ctx, acc.LedgerAccountID, mapped)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrImport, err)
	}
	rep.Imported, rep.Duplicates, rep.State = res.Added, res.Duplicates, StateImported

	if err := s.store.Set(ctx, CheckpointKey(acc.LedgerAccountID), end.Format(DateLayout)); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	rep.State = StateCheckpointed

	logger.Info(
		"account imported",
		zap.String("start_date", start.Format(DateLayout)),
		zap.String("end_date", end.Format(DateLayout)),
		zap.Bool("cached", cached),
		zap.Int("fetched", rep.Fetched),
		zap.Int("filtered", rep.Filtered),
		zap.Int("imported", rep.Imported),
		zap.Int("duplicates", rep.Duplicates),
	)

	return nil
}

func filterByAccount(batch []RawTransaction, accountID string) []RawTransaction {
	out := make([]RawTransaction, 0, len(batch))
	for _, tx := range batch {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out
}

func (s *Syncer) finalize(ctx context.Context) error {
	if err := s.ledger.Sync(ctx); err != nil {
		return fmt.Errorf("ledger sync: %w", err)
	}
	if err := s.ledger.Shutdown(ctx); err != nil {
		return fmt.Errorf("ledger shutdown: %w", err)
	}
	return nil
}
