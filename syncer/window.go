package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	timeutils "github.com/eqtlab/ledger-syncer/pkg/time"
)

// FallbackPolicy picks the start date of an account with no checkpoint and no recent ledger history.
type FallbackPolicy string

const (
	FallbackMonthStart FallbackPolicy = "month-start"
	FallbackEpoch      FallbackPolicy = "epoch"
)

func (p *FallbackPolicy) EnvDecode(val string) error {
	switch v := FallbackPolicy(val); v {
	case FallbackMonthStart, FallbackEpoch:
		*p = v
		return nil
	default:
		return fmt.Errorf("unknown fallback policy %q", val)
	}
}

type windowSource string

const (
	sourceSince      windowSource = "since"
	sourceCheckpoint windowSource = "checkpoint"
	sourceLedger     windowSource = "ledger"
	sourceFallback   windowSource = "fallback"
)

// ResolveStartDate returns the first date to fetch for acc. The first defined value wins: since,
// the stored checkpoint, the day after the newest ledger transaction within the lookback window,
// the fallback policy relative to today.
func (s *Syncer) ResolveStartDate(ctx context.Context, acc LinkedAccount, since *time.Time, today time.Time) (time.Time, error) {
	start, source, err := s.resolveStartDate(ctx, acc, since, today)
	if err != nil {
		return time.Time{}, err
	}

	s.logger.Debug(
		"start date resolved",
		zap.String("account_id", acc.LedgerAccountID),
		zap.String("source", string(source)),
		zap.String("start_date", start.Format(DateLayout)),
	)

	return start, nil
}

func (s *Syncer) resolveStartDate(
	ctx context.Context,
	acc LinkedAccount,
	since *time.Time,
	today time.Time,
) (time.Time, windowSource, error) {
	if since != nil {
		return timeutils.Date(*since), sourceSince, nil
	}

	checkpoint, err := s.store.Get(ctx, CheckpointKey(acc.LedgerAccountID))
	if err != nil {
		return time.Time{}, "", fmt.Errorf("read checkpoint: %w", err)
	}
	if checkpoint != "" {
		date, err := time.Parse(DateLayout, checkpoint)
		if err != nil {
			return time.Time{}, "", fmt.Errorf("%w: checkpoint of account %s: %w", ErrConfiguration, acc.LedgerAccountID, err)
		}
		return date, sourceCheckpoint, nil
	}

	// the ledger only answers for a bounded range, so older history counts as none
	from := today.AddDate(0, -s.cfg.LookbackMonths, 0)
	txs, err := s.ledger.GetTransactionsInRange(ctx, acc.LedgerAccountID, from, today)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("ledger transactions in range: %w", err)
	}

	var last time.Time
	for _, tx := range txs {
		if tx.Date.After(last) {
			last = tx.Date
		}
	}
	if !last.IsZero() {
		// the last day is assumed to be imported in full
		return timeutils.Date(last).AddDate(0, 0, 1), sourceLedger, nil
	}

	if s.cfg.Fallback == FallbackEpoch {
		return time.Unix(0, 0).UTC(), sourceFallback, nil
	}

	return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), sourceFallback, nil
}
