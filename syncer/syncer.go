package syncer

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vgarvardt/gue/v5"
	"go.uber.org/zap"

	timeutils "github.com/eqtlab/ledger-syncer/pkg/time"
)

// Syncer imports aggregator transactions of linked accounts into the ledger, one account at a time.
type Syncer struct {
	cfg        Config
	aggregator Aggregator
	ledger     Ledger
	store      Store
	q          *gue.Client
	logger     *zap.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

type Aggregator interface {
	// FetchTransactions returns every transaction of the item behind token dated within [start, end].
	FetchTransactions(ctx context.Context, token string, start, end time.Time) ([]RawTransaction, error)
	// FetchAccountBalance returns the current balance of one account of the item.
	FetchAccountBalance(ctx context.Context, token, accountID string) (decimal.Decimal, error)
}

type Ledger interface {
	ListAccounts(ctx context.Context) ([]LedgerAccount, error)
	// GetTransactionsInRange returns transactions of the account dated within [from, to].
	GetTransactionsInRange(ctx context.Context, accountID string, from, to time.Time) ([]LedgerTransaction, error)
	// ImportTransactions must be idempotent on ImportedID, the first write wins.
	ImportTransactions(ctx context.Context, accountID string, txs []LedgerTransaction) (ImportResult, error)
	// ComputeSignedSum returns the sum of all the account's amounts in minor units.
	ComputeSignedSum(ctx context.Context, accountID string) (int64, error)
	Sync(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Store holds linked accounts and import checkpoints addressed by dotted paths.
type Store interface {
	LinkedAccounts(ctx context.Context) ([]LinkedAccount, error)
	// Get returns an empty string for a missing path.
	Get(ctx context.Context, path string) (string, error)
	Set(ctx context.Context, path, value string) error
}

// New builds a Syncer. q may be nil unless Serve is used.
func New(a Aggregator, l Ledger, s Store, q *gue.Client, logger *zap.Logger, cfg Config) *Syncer {
	return &Syncer{
		cfg:        cfg,
		aggregator: a,
		ledger:     l,
		store:      s,
		q:          q,
		logger:     logger,
		now:        time.Now,
		sleep:      timeutils.Sleep,
	}
}

// nolint:lll
type Config struct {
	AccountPacing  time.Duration  `env:"ACCOUNT_PACING, default=2s"`        // Minimum time between the start of one account's fetch and the next step
	PendingPolicy  PendingPolicy  `env:"PENDING_POLICY, default=uncleared"` // What to do with pending transactions: uncleared or reject
	Fallback       FallbackPolicy `env:"FALLBACK, default=month-start"`     // Start date when nothing was ever imported: month-start or epoch
	LookbackMonths int            `env:"LOOKBACK_MONTHS, default=1"`        // How far back the ledger is searched for the last imported transaction
	ServeInterval  time.Duration  `env:"SERVE_INTERVAL, default=6h"`        // How often serve enqueues an import run
}
