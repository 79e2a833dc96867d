package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sourcegraph/conc/panics"
	"github.com/spf13/cobra"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
	adapter "github.com/vgarvardt/gue/v5/adapter/zap"
	"go.uber.org/zap"

	"github.com/eqtlab/ledger-syncer/aggregator/plaid"
	"github.com/eqtlab/ledger-syncer/config"
	"github.com/eqtlab/ledger-syncer/pkg/db"
	"github.com/eqtlab/ledger-syncer/pkg/logger"
	"github.com/eqtlab/ledger-syncer/pkg/postgres"
	"github.com/eqtlab/ledger-syncer/storage/file"
	storage "github.com/eqtlab/ledger-syncer/storage/postgres"
	"github.com/eqtlab/ledger-syncer/storage/ynab"
	"github.com/eqtlab/ledger-syncer/syncer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = newRootCmd().ExecuteContext(ctx) })
	if recovered := pc.Recovered().AsError(); recovered != nil {
		err = recovered
	}

	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds everything a command needs; close releases it.
type app struct {
	cfg    config.Config
	log    *logger.Logger
	store  *file.Store
	pool   *pgxpool.Pool
	syncer *syncer.Syncer
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	_ = a.log.Sync()
}

// loadStore is enough for commands that only touch linked accounts.
func loadStore(ctx context.Context, user string) (config.Config, *file.Store, error) {
	cfg, err := config.ParseEnv(ctx)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("%w: parse env: %w", syncer.ErrConfiguration, err)
	}

	store, err := file.Open(cfg.Store, user, cfg.Plaid.Env)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("%w: open store: %w", syncer.ErrConfiguration, err)
	}

	return cfg, store, nil
}

// newApp wires the syncer. withQueue connects to Postgres for the job queue even when the ledger
// lives elsewhere.
func newApp(ctx context.Context, user string, withQueue bool) (*app, error) {
	cfg, store, err := loadStore(ctx, user)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if withQueue && cfg.DB.URL == "" {
		return nil, fmt.Errorf("%w: DB_URL is required for the job queue", syncer.ErrConfiguration)
	}

	a := &app{cfg: cfg, log: logger.New(cfg.Debug), store: store}

	if cfg.Ledger.Driver == config.DriverPostgres || withQueue {
		if a.pool, err = connect(ctx, a.log, cfg.DB); err != nil {
			a.close()
			return nil, err
		}
	}

	var ledger syncer.Ledger
	switch cfg.Ledger.Driver {
	case config.DriverYNAB:
		if ledger, err = ynab.New(cfg.YNAB); err != nil {
			a.close()
			return nil, fmt.Errorf("%w: %w", syncer.ErrConfiguration, err)
		}
	default:
		ledger = storage.New(db.NewDB(a.pool, a.log.Logger))
	}

	aggregator, err := plaid.New(cfg.Plaid)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%w: %w", syncer.ErrConfiguration, err)
	}

	var q *gue.Client
	if withQueue {
		q, err = gue.NewClient(pgxv5.NewConnPool(a.pool), gue.WithClientLogger(adapter.New(a.log.Logger)))
		if err != nil {
			a.close()
			return nil, fmt.Errorf("gue new client: %w", err)
		}
	}

	a.syncer = syncer.New(aggregator, ledger, store, q, a.log.Logger, cfg.Syncer)
	return a, nil
}

func connect(ctx context.Context, log *logger.Logger, cfg postgres.Config) (*pgxpool.Pool, error) {
	version, err := postgres.Migrate(cfg)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Debug("schema migrated", zap.Uint("version", version))

	pool, err := postgres.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	return pool, nil
}

func newRootCmd() *cobra.Command {
	var user string

	root := &cobra.Command{
		Use:           "ledger-syncer",
		Short:         "Import bank transactions from Plaid into a budgeting ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&user, "user", "u", "default", "store profile to use")

	root.AddCommand(
		newImportCmd(&user),
		newCheckCmd(&user),
		newLsCmd(&user),
		newLinkCmd(&user),
		newConfigCmd(&user),
		newServeCmd(&user),
	)

	return root
}
