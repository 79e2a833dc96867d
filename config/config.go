package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/sethvargo/go-envconfig"
	"github.com/subosito/gotenv"

	"github.com/eqtlab/ledger-syncer/aggregator/plaid"
	"github.com/eqtlab/ledger-syncer/pkg/postgres"
	"github.com/eqtlab/ledger-syncer/storage/file"
	"github.com/eqtlab/ledger-syncer/storage/ynab"
	"github.com/eqtlab/ledger-syncer/syncer"
)

const (
	DriverPostgres = "postgres"
	DriverYNAB     = "ynab"
)

type Config struct {
	Debug  bool            `env:"APP_DEBUG"`
	Ledger Ledger          `env:",prefix=LEDGER_"`
	DB     postgres.Config `env:",prefix=DB_"`
	YNAB   ynab.Config     `env:",prefix=YNAB_"`
	Plaid  plaid.Config    `env:",prefix=PLAID_"`
	Store  file.Config     `env:",prefix=STORE_"`
	Syncer syncer.Config   `env:",prefix=SYNCER_"`
}

type Ledger struct {
	Driver string `env:"DRIVER, default=postgres"` // postgres or ynab
}

// ParseEnv reads the environment, after loading a .env file from the working directory if there
// is one. Variables already set win over the file.
func ParseEnv(ctx context.Context) (Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	return parse(ctx, envconfig.OsLookuper())
}

func parse(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	cfg := Config{}
	return cfg, envconfig.ProcessWith(ctx, &cfg, l)
}

// Validate reports every missing credential at once, wrapped in syncer.ErrConfiguration.
func (c Config) Validate() error {
	var errs []error

	if c.Plaid.ClientID == "" {
		errs = append(errs, errors.New("PLAID_CLIENT_ID is not set"))
	}
	switch c.Plaid.Env {
	case plaid.EnvSandbox, plaid.EnvDevelopment, plaid.EnvProduction:
		if c.Plaid.Secret() == "" {
			errs = append(errs, fmt.Errorf("no plaid secret for environment %s", c.Plaid.Env))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown PLAID_ENV %q", c.Plaid.Env))
	}

	switch c.Ledger.Driver {
	case DriverPostgres:
		if c.DB.URL == "" {
			errs = append(errs, errors.New("DB_URL is not set"))
		}
	case DriverYNAB:
		if c.YNAB.Token == "" || c.YNAB.BudgetID == "" {
			errs = append(errs, errors.New("YNAB_TOKEN and YNAB_BUDGET_ID must be set"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_DRIVER %q", c.Ledger.Driver))
	}

	if c.Syncer.LookbackMonths < 1 {
		errs = append(errs, errors.New("SYNCER_LOOKBACK_MONTHS must be at least 1"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", syncer.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}
